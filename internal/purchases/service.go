package purchases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tillpoint/tillpoint/internal/orders"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter Filter) ([]Purchase, int, error)
	Get(ctx context.Context, id int64) (Purchase, error)
	LastDocNumber(ctx context.Context, prefix string, year int) (string, error)
}

type TxRepository interface {
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	InsertItems(ctx context.Context, purchaseID int64, items []PurchaseItem) error
	GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	MarkReceived(ctx context.Context, id int64, receivedAt time.Time) error
	LockStock(ctx context.Context, productID int64) (int, error)
	SetStock(ctx context.Context, productID int64, qty int) error
	LogMovement(ctx context.Context, productID int64, qty int, refID, note string) error
}

type Service struct {
	logger  *slog.Logger
	repo    Repository
	catalog orders.CatalogPort
	seq     orders.SequencerPort
	now     func() time.Time
}

func NewService(logger *slog.Logger, repo Repository, catalog orders.CatalogPort, seq orders.SequencerPort) *Service {
	return &Service{logger: logger, repo: repo, catalog: catalog, seq: seq, now: time.Now}
}

// Create composes and finalizes a supplier bill. Stock lands in inventory
// immediately for received purchases; pending ones post it on Receive.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Purchase, error) {
	if len(req.Items) == 0 {
		return Purchase{}, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	if strings.TrimSpace(req.SupplierName) == "" {
		return Purchase{}, fmt.Errorf("%w: supplier name is required", ErrValidation)
	}

	history := &purchaseHistory{repo: s.repo, now: s.now}
	composer := orders.NewComposer(orders.KindPurchase, s.catalog, s.seq, history)

	for _, item := range req.Items {
		if err := composer.AddItem(ctx, item.ProductID, item.Quantity, item.UnitCost); err != nil {
			return Purchase{}, mapComposerError(err)
		}
	}

	order, err := composer.Finalize(ctx, req.SupplierName, req.SupplierContact, req.Status)
	if err != nil {
		return Purchase{}, mapComposerError(err)
	}

	return s.repo.Get(ctx, order.ID)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Purchase, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Purchase, error) {
	if id <= 0 {
		return Purchase{}, fmt.Errorf("%w: purchase id must be positive", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Receive books a pending purchase's stock into inventory.
func (s *Service) Receive(ctx context.Context, id int64) (Purchase, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		purchase, err := tx.GetPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if purchase.Status == StatusReceived {
			return ErrAlreadyReceived
		}
		if err := postStock(ctx, tx, purchase); err != nil {
			return err
		}
		return tx.MarkReceived(ctx, id, s.now().UTC())
	})
	if err != nil {
		return Purchase{}, err
	}
	return s.repo.Get(ctx, id)
}

type purchaseHistory struct {
	repo Repository
	now  func() time.Time
}

func (h *purchaseHistory) Append(ctx context.Context, order orders.Order) (int64, error) {
	var purchaseID int64
	err := h.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		purchase := purchaseFromOrder(order)
		if purchase.Status == StatusReceived {
			receivedAt := h.now().UTC()
			purchase.ReceivedAt = &receivedAt
		}
		id, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, id, purchase.Items); err != nil {
			return err
		}
		if purchase.Status == StatusReceived {
			if err := postStock(ctx, tx, purchase); err != nil {
				return err
			}
		}
		purchaseID = id
		return nil
	})
	return purchaseID, err
}

func postStock(ctx context.Context, tx TxRepository, purchase Purchase) error {
	for _, item := range purchase.Items {
		qty, err := tx.LockStock(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if err := tx.SetStock(ctx, item.ProductID, qty+item.Quantity); err != nil {
			return err
		}
		if err := tx.LogMovement(ctx, item.ProductID, item.Quantity, purchase.BillNumber, ""); err != nil {
			return err
		}
	}
	return nil
}

func purchaseFromOrder(order orders.Order) Purchase {
	items := make([]PurchaseItem, 0, len(order.Items))
	for _, line := range order.Items {
		items = append(items, PurchaseItem{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitPrice,
			LineTotal:   line.LineTotal,
		})
	}
	return Purchase{
		ID:              order.ID,
		BillNumber:      order.DocNumber,
		SupplierName:    order.CounterpartyName,
		SupplierContact: order.CounterpartyContact,
		Status:          order.PaymentOrStatus,
		Subtotal:        order.Totals.Subtotal,
		Tax:             order.Totals.Tax,
		GrandTotal:      order.Totals.GrandTotal,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}

func mapComposerError(err error) error {
	switch {
	case errors.Is(err, orders.ErrValidation):
		return fmt.Errorf("%w: %s", ErrValidation, strings.TrimPrefix(err.Error(), "orders: "))
	case errors.Is(err, orders.ErrProductNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, strings.TrimPrefix(err.Error(), "orders: "))
	default:
		return err
	}
}
