package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryCatalog struct {
	products map[int64]ProductInfo
}

func (c *memoryCatalog) Resolve(ctx context.Context, productID int64) (ProductInfo, error) {
	p, ok := c.products[productID]
	if !ok {
		return ProductInfo{}, ErrProductNotFound
	}
	return p, nil
}

type memoryHistory struct {
	orders []Order
	nextID int64
	fail   error
}

func (h *memoryHistory) Append(ctx context.Context, order Order) (int64, error) {
	if h.fail != nil {
		return 0, h.fail
	}
	h.nextID++
	order.ID = h.nextID
	h.orders = append(h.orders, order)
	return h.nextID, nil
}

type memorySequencer struct {
	counters map[string]int64
}

func (s *memorySequencer) Next(ctx context.Context, prefix string, year int) (int64, error) {
	if s.counters == nil {
		s.counters = make(map[string]int64)
	}
	key := sequenceKey(prefix, year)
	s.counters[key]++
	return s.counters[key], nil
}

func newTestComposer(kind Kind) (*Composer, *memoryHistory) {
	catalog := &memoryCatalog{products: map[int64]ProductInfo{
		1: {Name: "Masala Chai", UnitPrice: 165, TaxRate: 5, IsActive: true},
		2: {Name: "Basmati Rice 5kg", UnitPrice: 50, TaxRate: 0, IsActive: true},
		3: {Name: "Ghee 1L", UnitPrice: 720, TaxRate: 12, IsActive: true},
		4: {Name: "Jaggery Block", UnitPrice: 60, TaxRate: 0, IsActive: false},
	}}
	history := &memoryHistory{}
	c := NewComposer(kind, catalog, &memorySequencer{}, history)
	c.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return c, history
}

func TestAddItemMergesSameProduct(t *testing.T) {
	c, _ := newTestComposer(KindSale)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, 2, 165))
	require.NoError(t, c.AddItem(ctx, 1, 3, 999)) // later price must be ignored
	require.NoError(t, c.AddItem(ctx, 1, 1, 0))

	items := c.Items()
	require.Len(t, items, 1)
	require.Equal(t, 6, items[0].Quantity)
	require.InDelta(t, 165.0, items[0].UnitPrice, 0.0001)
	require.InDelta(t, 990.0, items[0].LineTotal, 0.0001)
}

func TestAddItemValidation(t *testing.T) {
	c, _ := newTestComposer(KindSale)
	ctx := context.Background()

	err := c.AddItem(ctx, 1, 0, 165)
	require.ErrorIs(t, err, ErrValidation)

	err = c.AddItem(ctx, 1, -2, 165)
	require.ErrorIs(t, err, ErrValidation)

	err = c.AddItem(ctx, 1, 1, -5)
	require.ErrorIs(t, err, ErrValidation)

	err = c.AddItem(ctx, 99, 1, 165)
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Empty(t, c.Items())
}

func TestSaleRejectsInactiveProduct(t *testing.T) {
	c, _ := newTestComposer(KindSale)
	ctx := context.Background()

	err := c.AddItem(ctx, 4, 1, 60)
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorContains(t, err, "not active")
	require.Empty(t, c.Items())
}

func TestPurchaseAcceptsInactiveProduct(t *testing.T) {
	c, _ := newTestComposer(KindPurchase)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 4, 5, 45))
	require.Len(t, c.Items(), 1)
}

func TestPurchaseRequiresPositiveCost(t *testing.T) {
	c, _ := newTestComposer(KindPurchase)
	ctx := context.Background()

	err := c.AddItem(ctx, 2, 10, 0)
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, c.AddItem(ctx, 2, 10, 50))
}

func TestSalePriceDefaultsFromCatalog(t *testing.T) {
	c, _ := newTestComposer(KindSale)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, 2, 0))
	items := c.Items()
	require.InDelta(t, 165.0, items[0].UnitPrice, 0.0001)
	require.InDelta(t, 330.0, items[0].LineTotal, 0.0001)
}

func TestRemoveItemPreservesOrder(t *testing.T) {
	c, _ := newTestComposer(KindSale)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, 1, 165))
	require.NoError(t, c.AddItem(ctx, 2, 1, 50))
	require.NoError(t, c.AddItem(ctx, 3, 1, 720))

	c.RemoveItem(2)
	items := c.Items()
	require.Len(t, items, 2)
	require.Equal(t, int64(1), items[0].ProductID)
	require.Equal(t, int64(3), items[1].ProductID)

	// removing an absent product is a no-op
	c.RemoveItem(2)
	require.Len(t, c.Items(), 2)

	// a fresh product appends at the end
	require.NoError(t, c.AddItem(ctx, 2, 1, 50))
	items = c.Items()
	require.Equal(t, int64(2), items[2].ProductID)
}

func TestSaleTotalsTaxInclusive(t *testing.T) {
	c, _ := newTestComposer(KindSale)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, 2, 165))

	totals := c.Totals()
	require.InDelta(t, 330.0, totals.Subtotal, 0.0001)
	require.InDelta(t, 0.0, totals.Discount, 0.0001)
	require.InDelta(t, 330.0*5/105, totals.Tax, 0.01)
	// tax is embedded in the price, never subtracted from the grand total
	require.InDelta(t, 330.0, totals.GrandTotal, 0.0001)
}

func TestSaleDiscountAggregateOnly(t *testing.T) {
	c, _ := newTestComposer(KindSale)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, 4, 100))
	require.NoError(t, c.SetDiscount(1, 10))

	items := c.Items()
	// line total keeps the undiscounted figure
	require.InDelta(t, 400.0, items[0].LineTotal, 0.0001)

	totals := c.Totals()
	require.InDelta(t, 400.0, totals.Subtotal, 0.0001)
	require.InDelta(t, 40.0, totals.Discount, 0.0001)
	require.InDelta(t, 360.0, totals.GrandTotal, 0.0001)

	require.ErrorIs(t, c.SetDiscount(99, 5), ErrProductNotFound)
	require.ErrorIs(t, c.SetDiscount(1, -1), ErrValidation)
}

func TestPurchaseTotalsTaxOnTop(t *testing.T) {
	c, _ := newTestComposer(KindPurchase)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 2, 10, 50))

	totals := c.Totals()
	require.InDelta(t, 500.0, totals.Subtotal, 0.0001)
	require.InDelta(t, 0.0, totals.Discount, 0.0001)
	require.InDelta(t, 90.0, totals.Tax, 0.0001)
	require.InDelta(t, 590.0, totals.GrandTotal, 0.0001)
}

func TestFinalizeResetsDraft(t *testing.T) {
	c, history := newTestComposer(KindSale)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, 2, 165))
	order, err := c.Finalize(ctx, "Asha Traders", "asha@example.com", "")
	require.NoError(t, err)

	require.Equal(t, "INV-2024-001", order.DocNumber)
	require.Equal(t, "Cash", order.PaymentOrStatus)
	require.Equal(t, "Asha Traders", order.CounterpartyName)
	require.Len(t, history.orders, 1)

	require.Empty(t, c.Items())
	totals := c.Totals()
	require.Zero(t, totals.Subtotal)
	require.Zero(t, totals.Discount)
	require.Zero(t, totals.Tax)
	require.Zero(t, totals.GrandTotal)
}

func TestFinalizeSequenceIncrements(t *testing.T) {
	c, _ := newTestComposer(KindSale)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, c.AddItem(ctx, 1, 1, 165))
		_, err := c.Finalize(ctx, "Walk-in", "", "")
		require.NoError(t, err)
	}
	require.NoError(t, c.AddItem(ctx, 1, 1, 165))
	order, err := c.Finalize(ctx, "Walk-in", "", "")
	require.NoError(t, err)
	require.Equal(t, "INV-2024-008", order.DocNumber)
}

func TestFinalizeRejections(t *testing.T) {
	c, history := newTestComposer(KindSale)
	ctx := context.Background()

	_, err := c.Finalize(ctx, "Asha Traders", "", "")
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, c.AddItem(ctx, 1, 1, 165))
	_, err = c.Finalize(ctx, "   ", "", "")
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, history.orders)
	require.Len(t, c.Items(), 1)
}

func TestFinalizeKeepsDraftOnPersistenceFailure(t *testing.T) {
	c, history := newTestComposer(KindSale)
	ctx := context.Background()
	history.fail = errors.New("connection refused")

	require.NoError(t, c.AddItem(ctx, 1, 2, 165))
	_, err := c.Finalize(ctx, "Asha Traders", "", "")
	require.Error(t, err)
	require.Len(t, c.Items(), 1)

	// retry succeeds with the draft untouched
	history.fail = nil
	order, err := c.Finalize(ctx, "Asha Traders", "", "")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	require.Empty(t, c.Items())
}

func TestPurchaseFinalizeDefaults(t *testing.T) {
	c, _ := newTestComposer(KindPurchase)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 2, 10, 50))
	order, err := c.Finalize(ctx, "Gupta Wholesale", "", "")
	require.NoError(t, err)
	require.Equal(t, "BILL-2024-001", order.DocNumber)
	require.Equal(t, "Received", order.PaymentOrStatus)
	require.InDelta(t, 590.0, order.Totals.GrandTotal, 0.0001)
}
