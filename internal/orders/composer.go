package orders

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CatalogPort resolves product references for the composer.
type CatalogPort interface {
	Resolve(ctx context.Context, productID int64) (ProductInfo, error)
}

// HistoryPort persists finalized orders. Append must be atomic: on error
// nothing is committed and the caller may retry.
type HistoryPort interface {
	Append(ctx context.Context, order Order) (int64, error)
}

// SequencerPort hands out the next document sequence for a prefix and year.
type SequencerPort interface {
	Next(ctx context.Context, prefix string, year int) (int64, error)
}

// Composer accumulates line items for one in-progress transaction and
// derives its financial summary. It owns exactly one draft at a time; a
// successful Finalize resets it to empty.
type Composer struct {
	kind    Kind
	catalog CatalogPort
	seq     SequencerPort
	history HistoryPort
	now     func() time.Time

	items []LineItem
}

// NewComposer builds a composer for the given transaction kind.
func NewComposer(kind Kind, catalog CatalogPort, seq SequencerPort, history HistoryPort) *Composer {
	return &Composer{kind: kind, catalog: catalog, seq: seq, history: history, now: time.Now}
}

// AddItem admits a line for the product. When a line for the same product
// already exists its quantity accumulates and the line total is recomputed
// with the price stored at first insertion; the new call's price is ignored.
func (c *Composer) AddItem(ctx context.Context, productID int64, quantity int, unitPrice float64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if c.kind == KindPurchase && unitPrice <= 0 {
		return fmt.Errorf("%w: unit cost must be positive", ErrValidation)
	}
	if unitPrice < 0 {
		return fmt.Errorf("%w: unit price must not be negative", ErrValidation)
	}

	product, err := c.catalog.Resolve(ctx, productID)
	if err != nil {
		return fmt.Errorf("%w: product %d", ErrProductNotFound, productID)
	}
	// Inactive products stay orderable from suppliers but can no longer be sold.
	if c.kind == KindSale && !product.IsActive {
		return fmt.Errorf("%w: product %s is not active", ErrValidation, product.Name)
	}

	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].Quantity += quantity
			c.items[i].LineTotal = float64(c.items[i].Quantity) * c.items[i].UnitPrice
			return nil
		}
	}

	// Sale drafts may omit the price and take the catalog one.
	if c.kind == KindSale && unitPrice == 0 {
		unitPrice = product.UnitPrice
	}

	c.items = append(c.items, LineItem{
		ProductID:       productID,
		Name:            product.Name,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DiscountPerUnit: 0,
		TaxRate:         product.TaxRate,
		LineTotal:       float64(quantity) * unitPrice,
	})
	return nil
}

// RemoveItem drops the line for the product. Removing an absent product is
// a no-op; the relative order of the remaining lines is preserved.
func (c *Composer) RemoveItem(productID int64) {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// SetDiscount records a per-unit discount on an existing line. The stored
// line total is intentionally left untouched; discounts only surface in the
// aggregate summary.
func (c *Composer) SetDiscount(productID int64, perUnit float64) error {
	if perUnit < 0 {
		return fmt.Errorf("%w: discount must not be negative", ErrValidation)
	}
	for i := range c.items {
		if c.items[i].ProductID == productID {
			c.items[i].DiscountPerUnit = perUnit
			return nil
		}
	}
	return fmt.Errorf("%w: product %d not in draft", ErrProductNotFound, productID)
}

// Items returns a copy of the current line set in insertion order.
func (c *Composer) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Totals computes the financial summary for the current item set. Sales and
// purchases use different tax semantics on purpose: sale prices embed the
// tax, purchase costs have it added on top.
func (c *Composer) Totals() Totals {
	if c.kind == KindPurchase {
		return purchaseTotals(c.items)
	}
	return saleTotals(c.items)
}

// Finalize snapshots the draft into an immutable Order, numbers it, appends
// it to history and resets the draft. On persistence failure the draft is
// left intact so the caller can retry.
func (c *Composer) Finalize(ctx context.Context, counterpartyName, counterpartyContact, paymentOrStatus string) (Order, error) {
	if len(c.items) == 0 {
		return Order{}, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	if strings.TrimSpace(counterpartyName) == "" {
		return Order{}, fmt.Errorf("%w: counterparty name is required", ErrValidation)
	}
	if paymentOrStatus == "" {
		paymentOrStatus = c.kind.DefaultPaymentOrStatus()
	}

	now := c.now().UTC()
	seq, err := c.seq.Next(ctx, c.kind.Prefix(), now.Year())
	if err != nil {
		return Order{}, fmt.Errorf("orders: next sequence: %w", err)
	}

	order := Order{
		DocNumber:           FormatDocNumber(c.kind.Prefix(), now.Year(), seq),
		Kind:                c.kind,
		CounterpartyName:    counterpartyName,
		CounterpartyContact: counterpartyContact,
		PaymentOrStatus:     paymentOrStatus,
		Items:               c.Items(),
		Totals:              c.Totals(),
		CreatedAt:           now,
	}

	id, err := c.history.Append(ctx, order)
	if err != nil {
		return Order{}, fmt.Errorf("orders: append: %w", err)
	}
	order.ID = id

	c.items = nil
	return order, nil
}

// saleTotals treats unit prices as tax inclusive: the tax column backs out
// the embedded component and is informational, the grand total subtracts the
// aggregate discount only.
func saleTotals(items []LineItem) Totals {
	var t Totals
	for _, item := range items {
		t.Subtotal += item.LineTotal
		t.Discount += item.DiscountPerUnit * float64(item.Quantity)
		if item.TaxRate > 0 {
			t.Tax += item.LineTotal * item.TaxRate / (100 + item.TaxRate)
		}
	}
	t.GrandTotal = t.Subtotal - t.Discount
	return t
}

// purchaseTaxRate is the flat assumption the purchase flow applies on top of
// the subtotal; purchases carry no discount model.
const purchaseTaxRate = 0.18

func purchaseTotals(items []LineItem) Totals {
	var t Totals
	for _, item := range items {
		t.Subtotal += item.LineTotal
	}
	t.Tax = t.Subtotal * purchaseTaxRate
	t.GrandTotal = t.Subtotal + t.Tax
	return t
}
