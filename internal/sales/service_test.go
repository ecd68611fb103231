package sales

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/customers"
	"github.com/tillpoint/tillpoint/internal/orders"
)

type movementRec struct {
	movementType string
	productID    int64
	qty          int
	refID        string
}

type memoryRepo struct {
	sales     map[int64]*Sale
	stock     map[int64]int
	movements []movementRec
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{sales: make(map[int64]*Sale), stock: make(map[int64]int)}
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	salesSnap := make(map[int64]*Sale, len(r.sales))
	for id, s := range r.sales {
		cp := *s
		cp.Items = append([]SaleItem(nil), s.Items...)
		salesSnap[id] = &cp
	}
	stockSnap := make(map[int64]int, len(r.stock))
	for id, qty := range r.stock {
		stockSnap[id] = qty
	}
	moveLen := len(r.movements)
	nextID := r.nextID

	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.sales = salesSnap
		r.stock = stockSnap
		r.movements = r.movements[:moveLen]
		r.nextID = nextID
		return err
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter Filter) ([]Sale, int, Summary, error) {
	var out []Sale
	var summary Summary
	for _, s := range r.sales {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, *s)
		summary.TotalSales++
		summary.TotalRevenue += s.GrandTotal
	}
	if summary.TotalSales > 0 {
		summary.AverageSale = summary.TotalRevenue / float64(summary.TotalSales)
	}
	return out, summary.TotalSales, summary, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	return *s, nil
}

func (r *memoryRepo) LastDocNumber(ctx context.Context, prefix string, year int) (string, error) {
	return "", nil
}

func (t *memoryTx) InsertSale(ctx context.Context, s Sale) (int64, error) {
	t.repo.nextID++
	s.ID = t.repo.nextID
	s.Items = nil
	t.repo.sales[s.ID] = &s
	return s.ID, nil
}

func (t *memoryTx) InsertItems(ctx context.Context, saleID int64, items []SaleItem) error {
	s, ok := t.repo.sales[saleID]
	if !ok {
		return ErrNotFound
	}
	s.Items = append([]SaleItem(nil), items...)
	return nil
}

func (t *memoryTx) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	s, ok := t.repo.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	return *s, nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id int64, status string, refundedAmount float64) error {
	s, ok := t.repo.sales[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.RefundedAmount = refundedAmount
	return nil
}

func (t *memoryTx) LockStock(ctx context.Context, productID int64) (int, error) {
	return t.repo.stock[productID], nil
}

func (t *memoryTx) SetStock(ctx context.Context, productID int64, qty int) error {
	t.repo.stock[productID] = qty
	return nil
}

func (t *memoryTx) LogMovement(ctx context.Context, movementType string, productID int64, qty int, refID, note string) error {
	t.repo.movements = append(t.repo.movements, movementRec{movementType, productID, qty, refID})
	return nil
}

type memoryCatalog struct {
	products map[int64]orders.ProductInfo
}

func (c *memoryCatalog) Resolve(ctx context.Context, productID int64) (orders.ProductInfo, error) {
	p, ok := c.products[productID]
	if !ok {
		return orders.ProductInfo{}, fmt.Errorf("no such product")
	}
	return p, nil
}

type memorySequencer struct {
	counters map[string]int64
}

func (s *memorySequencer) Next(ctx context.Context, prefix string, year int) (int64, error) {
	if s.counters == nil {
		s.counters = make(map[string]int64)
	}
	key := fmt.Sprintf("%s-%d", prefix, year)
	s.counters[key]++
	return s.counters[key], nil
}

type memoryCustomers struct {
	customers map[int64]customers.Customer
	purchases map[int64]float64
}

func (m *memoryCustomers) Get(ctx context.Context, id int64) (customers.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return customers.Customer{}, customers.ErrNotFound
	}
	return c, nil
}

func (m *memoryCustomers) RecordPurchase(ctx context.Context, id int64, amount float64) error {
	if m.purchases == nil {
		m.purchases = make(map[int64]float64)
	}
	m.purchases[id] += amount
	return nil
}

func newTestService(repo *memoryRepo) (*Service, *memoryCustomers) {
	catalog := &memoryCatalog{products: map[int64]orders.ProductInfo{
		1: {Name: "Masala Chai", UnitPrice: 40, TaxRate: 5, IsActive: true},
		2: {Name: "Samosa", UnitPrice: 25, TaxRate: 5, IsActive: true},
		3: {Name: "Kesar Lassi", UnitPrice: 55, TaxRate: 5, IsActive: false},
	}}
	cust := &memoryCustomers{customers: map[int64]customers.Customer{
		7: {ID: 7, Name: "Priya Sharma", Phone: "98400-12345"},
	}}
	svc := NewService(slog.Default(), repo, catalog, &memorySequencer{}, cust, ServiceConfig{})
	return svc, cust
}

func TestCreateWalkInSale(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	repo.stock[2] = 10
	svc, _ := newTestService(repo)

	sale, err := svc.Create(context.Background(), CreateRequest{
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 4},
			{ProductID: 1, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, customers.WalkInName, sale.CustomerName)
	require.Equal(t, "cash", sale.PaymentMethod)
	require.Equal(t, StatusCompleted, sale.Status)

	// Same product merges: 3x40 + 4x25.
	require.Len(t, sale.Items, 2)
	require.Equal(t, 3, sale.Items[0].Quantity)
	require.Equal(t, 220.0, sale.Subtotal)
	require.Equal(t, 220.0, sale.GrandTotal)

	require.Equal(t, 7, repo.stock[1])
	require.Equal(t, 6, repo.stock[2])
	require.Len(t, repo.movements, 2)
	require.Equal(t, "OUT", repo.movements[0].movementType)
	require.Equal(t, sale.SaleNumber, repo.movements[0].refID)
}

func TestCreateAssignsInvoiceNumbers(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 50
	svc, _ := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateRequest{Items: []ItemRequest{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateRequest{Items: []ItemRequest{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)

	require.Regexp(t, `^INV-\d{4}-001$`, first.SaleNumber)
	require.Regexp(t, `^INV-\d{4}-002$`, second.SaleNumber)
}

func TestCreateRejectsInactiveProduct(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[3] = 10
	svc, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{
		Items: []ItemRequest{{ProductID: 3, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorContains(t, err, "not active")
	require.Empty(t, repo.sales)
	require.Equal(t, 10, repo.stock[3])
	require.Empty(t, repo.movements)
}

func TestCreateRegisteredCustomer(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc, cust := newTestService(repo)
	customerID := int64(7)

	sale, err := svc.Create(context.Background(), CreateRequest{
		CustomerID:    &customerID,
		PaymentMethod: "upi",
		Items:         []ItemRequest{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, "Priya Sharma", sale.CustomerName)
	require.Equal(t, "upi", sale.PaymentMethod)
	require.Equal(t, 80.0, cust.purchases[customerID])
}

func TestCreateUnknownCustomer(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc, _ := newTestService(repo)
	customerID := int64(404)

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: &customerID,
		Items:      []ItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 2
	svc, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{
		Items: []ItemRequest{{ProductID: 1, Quantity: 5}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Empty(t, repo.sales)
	require.Empty(t, repo.movements)
	require.Equal(t, 2, repo.stock[1])
}

func TestVoidRestoresStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc, _ := newTestService(repo)
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateRequest{Items: []ItemRequest{{ProductID: 1, Quantity: 4}}})
	require.NoError(t, err)
	require.Equal(t, 6, repo.stock[1])

	voided, err := svc.Void(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, StatusVoided, voided.Status)
	require.Equal(t, 10, repo.stock[1])

	_, err = svc.Void(ctx, sale.ID)
	require.ErrorIs(t, err, ErrAlreadyVoided)
}

func TestRefundPartialThenFull(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc, _ := newTestService(repo)
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateRequest{Items: []ItemRequest{{ProductID: 1, Quantity: 4}}})
	require.NoError(t, err)

	partial, err := svc.Refund(ctx, sale.ID, RefundRequest{
		Amount: 40,
		Items:  []RefundItem{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyRefunded, partial.Status)
	require.Equal(t, 40.0, partial.RefundedAmount)
	require.Equal(t, 7, repo.stock[1])

	full, err := svc.Refund(ctx, sale.ID, RefundRequest{Amount: 120})
	require.NoError(t, err)
	require.Equal(t, StatusRefunded, full.Status)
	require.Equal(t, 160.0, full.RefundedAmount)
}

func TestRefundCap(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc, _ := newTestService(repo)
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateRequest{Items: []ItemRequest{{ProductID: 1, Quantity: 2}}})
	require.NoError(t, err)

	_, err = svc.Refund(ctx, sale.ID, RefundRequest{Amount: sale.GrandTotal + 1})
	require.ErrorIs(t, err, ErrRefundExceeds)
}

func TestVoidedSaleNotRefundable(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc, _ := newTestService(repo)
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateRequest{Items: []ItemRequest{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)
	_, err = svc.Void(ctx, sale.ID)
	require.NoError(t, err)

	_, err = svc.Refund(ctx, sale.ID, RefundRequest{Amount: 10})
	require.ErrorIs(t, err, ErrNotRefundable)
}
