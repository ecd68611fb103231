package orders

import (
	"errors"
	"time"
)

// Kind discriminates the two transaction flavours a draft can take.
type Kind string

const (
	// KindSale drafts become customer invoices.
	KindSale Kind = "SALE"
	// KindPurchase drafts become supplier bills.
	KindPurchase Kind = "PURCHASE"
)

// Prefix returns the document number prefix for the kind.
func (k Kind) Prefix() string {
	if k == KindPurchase {
		return "BILL"
	}
	return "INV"
}

// DefaultPaymentOrStatus is the value used when finalize receives none.
func (k Kind) DefaultPaymentOrStatus() string {
	if k == KindPurchase {
		return "Received"
	}
	return "Cash"
}

// LineItem is one product-and-quantity entry within a draft or order.
type LineItem struct {
	ProductID       int64   `json:"product_id"`
	Name            string  `json:"name"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPerUnit float64 `json:"discount_per_unit"`
	TaxRate         float64 `json:"tax_rate"`
	LineTotal       float64 `json:"line_total"`
}

// Totals is the financial summary derived from a draft's item set.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	Discount   float64 `json:"discount"`
	Tax        float64 `json:"tax"`
	GrandTotal float64 `json:"grand_total"`
}

// Order is a finalized, immutable transaction record.
type Order struct {
	ID                  int64      `json:"id"`
	DocNumber           string     `json:"doc_number"`
	Kind                Kind       `json:"kind"`
	CounterpartyName    string     `json:"counterparty_name"`
	CounterpartyContact string     `json:"counterparty_contact,omitempty"`
	PaymentOrStatus     string     `json:"payment_or_status"`
	Items               []LineItem `json:"items"`
	Totals              Totals     `json:"totals"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ProductInfo is the catalog projection the composer needs to admit a line.
type ProductInfo struct {
	Name      string
	UnitPrice float64
	TaxRate   float64
	IsActive  bool
}

var (
	// ErrValidation indicates invalid composer input.
	ErrValidation = errors.New("orders: invalid input")
	// ErrProductNotFound indicates the product reference did not resolve.
	ErrProductNotFound = errors.New("orders: product not found")
)
