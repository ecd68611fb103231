package purchases

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/orders"
)

type memoryRepo struct {
	purchases map[int64]*Purchase
	stock     map[int64]int
	movements []string
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{purchases: make(map[int64]*Purchase), stock: make(map[int64]int)}
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) List(ctx context.Context, filter Filter) ([]Purchase, int, error) {
	var out []Purchase
	for _, p := range r.purchases {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Purchase, error) {
	p, ok := r.purchases[id]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	return *p, nil
}

func (r *memoryRepo) LastDocNumber(ctx context.Context, prefix string, year int) (string, error) {
	return "", nil
}

func (t *memoryTx) InsertPurchase(ctx context.Context, p Purchase) (int64, error) {
	t.repo.nextID++
	p.ID = t.repo.nextID
	t.repo.purchases[p.ID] = &p
	return p.ID, nil
}

func (t *memoryTx) InsertItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error {
	p, ok := t.repo.purchases[purchaseID]
	if !ok {
		return ErrNotFound
	}
	p.Items = append([]PurchaseItem(nil), items...)
	return nil
}

func (t *memoryTx) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	p, ok := t.repo.purchases[id]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	return *p, nil
}

func (t *memoryTx) MarkReceived(ctx context.Context, id int64, receivedAt time.Time) error {
	p, ok := t.repo.purchases[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = StatusReceived
	p.ReceivedAt = &receivedAt
	return nil
}

func (t *memoryTx) LockStock(ctx context.Context, productID int64) (int, error) {
	return t.repo.stock[productID], nil
}

func (t *memoryTx) SetStock(ctx context.Context, productID int64, qty int) error {
	t.repo.stock[productID] = qty
	return nil
}

func (t *memoryTx) LogMovement(ctx context.Context, productID int64, qty int, refID, note string) error {
	t.repo.movements = append(t.repo.movements, fmt.Sprintf("IN:%d:%d:%s", productID, qty, refID))
	return nil
}

type memoryCatalog struct{}

func (memoryCatalog) Resolve(ctx context.Context, productID int64) (orders.ProductInfo, error) {
	if productID > 100 {
		return orders.ProductInfo{}, fmt.Errorf("no such product")
	}
	return orders.ProductInfo{Name: fmt.Sprintf("Product %d", productID), UnitPrice: 100, IsActive: true}, nil
}

type memorySequencer struct {
	n int64
}

func (s *memorySequencer) Next(ctx context.Context, prefix string, year int) (int64, error) {
	s.n++
	return s.n, nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(slog.Default(), repo, memoryCatalog{}, &memorySequencer{})
}

func TestCreateReceivedPurchase(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	purchase, err := svc.Create(context.Background(), CreateRequest{
		SupplierName: "Chennai Beverages",
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 3, UnitCost: 100},
			{ProductID: 2, Quantity: 2, UnitCost: 100},
		},
	})
	require.NoError(t, err)
	require.Regexp(t, `^BILL-\d{4}-001$`, purchase.BillNumber)
	require.Equal(t, StatusReceived, purchase.Status)
	require.NotNil(t, purchase.ReceivedAt)

	// Flat tax on top of the subtotal.
	require.Equal(t, 500.0, purchase.Subtotal)
	require.Equal(t, 90.0, purchase.Tax)
	require.Equal(t, 590.0, purchase.GrandTotal)

	require.Equal(t, 3, repo.stock[1])
	require.Equal(t, 2, repo.stock[2])
	require.Len(t, repo.movements, 2)
}

func TestCreateMergesSameProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	purchase, err := svc.Create(context.Background(), CreateRequest{
		SupplierName: "Chennai Beverages",
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 2, UnitCost: 80},
			{ProductID: 1, Quantity: 3, UnitCost: 95},
		},
	})
	require.NoError(t, err)
	require.Len(t, purchase.Items, 1)
	require.Equal(t, 5, purchase.Items[0].Quantity)
	// First cost wins on merge.
	require.Equal(t, 80.0, purchase.Items[0].UnitCost)
	require.Equal(t, 400.0, purchase.Subtotal)
}

func TestCreatePendingDefersStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	purchase, err := svc.Create(ctx, CreateRequest{
		SupplierName: "Chennai Beverages",
		Status:       StatusPending,
		Items:        []ItemRequest{{ProductID: 1, Quantity: 10, UnitCost: 50}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, purchase.Status)
	require.Nil(t, purchase.ReceivedAt)
	require.Zero(t, repo.stock[1])

	received, err := svc.Receive(ctx, purchase.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)
	require.Equal(t, 10, repo.stock[1])

	_, err = svc.Receive(ctx, purchase.ID)
	require.ErrorIs(t, err, ErrAlreadyReceived)
	require.Equal(t, 10, repo.stock[1])
}

func TestCreateRequiresPositiveCost(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		SupplierName: "Chennai Beverages",
		Items:        []ItemRequest{{ProductID: 1, Quantity: 2, UnitCost: 0}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateUnknownProduct(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		SupplierName: "Chennai Beverages",
		Items:        []ItemRequest{{ProductID: 999, Quantity: 1, UnitCost: 10}},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRequiresSupplier(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		SupplierName: "   ",
		Items:        []ItemRequest{{ProductID: 1, Quantity: 1, UnitCost: 10}},
	})
	require.ErrorIs(t, err, ErrValidation)
}
