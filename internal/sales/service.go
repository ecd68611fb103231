package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tillpoint/tillpoint/internal/customers"
	"github.com/tillpoint/tillpoint/internal/orders"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter Filter) ([]Sale, int, Summary, error)
	Get(ctx context.Context, id int64) (Sale, error)
	LastDocNumber(ctx context.Context, prefix string, year int) (string, error)
}

// TxRepository covers the writes a sale lifecycle performs. Stock rows are
// touched in the same transaction as the sale itself so a failed insert never
// leaves phantom movements behind.
type TxRepository interface {
	InsertSale(ctx context.Context, s Sale) (int64, error)
	InsertItems(ctx context.Context, saleID int64, items []SaleItem) error
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	UpdateStatus(ctx context.Context, id int64, status string, refundedAmount float64) error
	LockStock(ctx context.Context, productID int64) (int, error)
	SetStock(ctx context.Context, productID int64, qty int) error
	LogMovement(ctx context.Context, movementType string, productID int64, qty int, refID, note string) error
}

// CustomerPort is satisfied by the customers service.
type CustomerPort interface {
	Get(ctx context.Context, id int64) (customers.Customer, error)
	RecordPurchase(ctx context.Context, id int64, amount float64) error
}

type ServiceConfig struct {
	AllowNegativeStock bool
}

type Service struct {
	logger   *slog.Logger
	repo     Repository
	catalog  orders.CatalogPort
	seq      orders.SequencerPort
	customer CustomerPort
	cfg      ServiceConfig
}

func NewService(logger *slog.Logger, repo Repository, catalog orders.CatalogPort, seq orders.SequencerPort, customer CustomerPort, cfg ServiceConfig) *Service {
	return &Service{logger: logger, repo: repo, catalog: catalog, seq: seq, customer: customer, cfg: cfg}
}

// Create composes and finalizes a sale in one shot. Items for the same
// product merge into a single line; the first line's price wins.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Sale, error) {
	if len(req.Items) == 0 {
		return Sale{}, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}

	customerName := customers.WalkInName
	customerContact := ""
	if req.CustomerID != nil {
		c, err := s.customer.Get(ctx, *req.CustomerID)
		if err != nil {
			if errors.Is(err, customers.ErrNotFound) {
				return Sale{}, fmt.Errorf("%w: customer %d", ErrNotFound, *req.CustomerID)
			}
			return Sale{}, err
		}
		customerName = c.Name
		customerContact = c.Phone
	}

	history := &saleHistory{repo: s.repo, customerID: req.CustomerID, allowNegative: s.cfg.AllowNegativeStock}
	composer := orders.NewComposer(orders.KindSale, s.catalog, s.seq, history)

	for _, item := range req.Items {
		if err := composer.AddItem(ctx, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
			return Sale{}, mapComposerError(err)
		}
		if item.Discount > 0 {
			if err := composer.SetDiscount(item.ProductID, item.Discount); err != nil {
				return Sale{}, mapComposerError(err)
			}
		}
	}

	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	order, err := composer.Finalize(ctx, customerName, customerContact, paymentMethod)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return Sale{}, err
		}
		return Sale{}, mapComposerError(err)
	}

	if req.CustomerID != nil {
		if err := s.customer.RecordPurchase(ctx, *req.CustomerID, order.Totals.GrandTotal); err != nil {
			s.logger.Warn("record customer purchase failed", "error", err, "customer_id", *req.CustomerID, "sale", order.DocNumber)
		}
	}

	return saleFromOrder(order, req.CustomerID), nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Sale, int, Summary, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, fmt.Errorf("%w: sale id must be positive", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Void cancels a completed sale and puts its stock back.
func (s *Service) Void(ctx context.Context, id int64) (Sale, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sale.Status == StatusVoided {
			return ErrAlreadyVoided
		}
		for _, item := range sale.Items {
			qty, err := tx.LockStock(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := tx.SetStock(ctx, item.ProductID, qty+item.Quantity); err != nil {
				return err
			}
			if err := tx.LogMovement(ctx, "IN", item.ProductID, item.Quantity, sale.SaleNumber, "sale voided"); err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, id, StatusVoided, sale.RefundedAmount)
	})
	if err != nil {
		return Sale{}, err
	}
	return s.repo.Get(ctx, id)
}

// Refund returns part or all of a sale's value. Restocked items go back to
// inventory; the status flips to refunded once the full total is covered.
func (s *Service) Refund(ctx context.Context, id int64, req RefundRequest) (Sale, error) {
	if req.Amount <= 0 {
		return Sale{}, fmt.Errorf("%w: refund amount must be positive", ErrValidation)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if sale.Status == StatusVoided {
			return ErrNotRefundable
		}
		remaining := sale.GrandTotal - sale.RefundedAmount
		if req.Amount > remaining+0.005 {
			return fmt.Errorf("%w: %.2f remaining", ErrRefundExceeds, remaining)
		}

		for _, ri := range req.Items {
			item, ok := findItem(sale.Items, ri.ProductID)
			if !ok {
				return fmt.Errorf("%w: product %d not on sale", ErrValidation, ri.ProductID)
			}
			if ri.Quantity > item.Quantity {
				return fmt.Errorf("%w: cannot restock more than sold", ErrValidation)
			}
			qty, err := tx.LockStock(ctx, ri.ProductID)
			if err != nil {
				return err
			}
			if err := tx.SetStock(ctx, ri.ProductID, qty+ri.Quantity); err != nil {
				return err
			}
			if err := tx.LogMovement(ctx, "IN", ri.ProductID, ri.Quantity, sale.SaleNumber, "sale refund"); err != nil {
				return err
			}
		}

		refunded := sale.RefundedAmount + req.Amount
		status := StatusPartiallyRefunded
		if refunded >= sale.GrandTotal-0.005 {
			status = StatusRefunded
		}
		return tx.UpdateStatus(ctx, id, status, refunded)
	})
	if err != nil {
		return Sale{}, err
	}
	return s.repo.Get(ctx, id)
}

// saleHistory adapts the repository into the composer's persistence port.
// Append writes the sale, its items and the stock decrements in a single
// transaction so the composer's retry contract holds.
type saleHistory struct {
	repo          Repository
	customerID    *int64
	allowNegative bool
}

func (h *saleHistory) Append(ctx context.Context, order orders.Order) (int64, error) {
	var saleID int64
	err := h.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale := saleFromOrder(order, h.customerID)
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		if err := tx.InsertItems(ctx, id, sale.Items); err != nil {
			return err
		}
		for _, item := range sale.Items {
			qty, err := tx.LockStock(ctx, item.ProductID)
			if err != nil {
				return err
			}
			next := qty - item.Quantity
			if next < 0 && !h.allowNegative {
				return fmt.Errorf("%w: product %d has %d on hand", ErrInsufficientStock, item.ProductID, qty)
			}
			if err := tx.SetStock(ctx, item.ProductID, next); err != nil {
				return err
			}
			if err := tx.LogMovement(ctx, "OUT", item.ProductID, -item.Quantity, order.DocNumber, ""); err != nil {
				return err
			}
		}
		saleID = id
		return nil
	})
	return saleID, err
}

func saleFromOrder(order orders.Order, customerID *int64) Sale {
	items := make([]SaleItem, 0, len(order.Items))
	for _, line := range order.Items {
		items = append(items, SaleItem{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Discount:    line.DiscountPerUnit,
			TaxRate:     line.TaxRate,
			LineTotal:   line.LineTotal,
		})
	}
	return Sale{
		ID:            order.ID,
		SaleNumber:    order.DocNumber,
		CustomerID:    customerID,
		CustomerName:  order.CounterpartyName,
		PaymentMethod: order.PaymentOrStatus,
		Status:        StatusCompleted,
		Subtotal:      order.Totals.Subtotal,
		Discount:      order.Totals.Discount,
		Tax:           order.Totals.Tax,
		GrandTotal:    order.Totals.GrandTotal,
		Items:         items,
		CreatedAt:     order.CreatedAt,
	}
}

func findItem(items []SaleItem, productID int64) (SaleItem, bool) {
	for _, item := range items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return SaleItem{}, false
}

func mapComposerError(err error) error {
	switch {
	case errors.Is(err, orders.ErrValidation):
		return fmt.Errorf("%w: %s", ErrValidation, trimPrefix(err))
	case errors.Is(err, orders.ErrProductNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, trimPrefix(err))
	default:
		return err
	}
}

func trimPrefix(err error) string {
	return strings.TrimPrefix(err.Error(), "orders: ")
}
