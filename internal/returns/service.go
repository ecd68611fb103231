package returns

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tillpoint/tillpoint/internal/orders"
	"github.com/tillpoint/tillpoint/internal/sales"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter Filter) ([]Return, int, error)
	Get(ctx context.Context, id int64) (Return, error)
	ListCreditNotes(ctx context.Context, customerID *int64) ([]CreditNote, error)
	LastDocNumber(ctx context.Context, prefix string, year int) (string, error)
}

type TxRepository interface {
	InsertReturn(ctx context.Context, ret Return) (int64, error)
	InsertItems(ctx context.Context, returnID int64, items []ReturnItem) error
	InsertCreditNote(ctx context.Context, note CreditNote) (int64, error)
	GetReturnForUpdate(ctx context.Context, id int64) (Return, error)
	UpdateReason(ctx context.Context, id int64, reason string) error
	DeleteReturn(ctx context.Context, id int64) error
	VoidCreditNote(ctx context.Context, returnID int64) error
	LockStock(ctx context.Context, productID int64) (int, error)
	SetStock(ctx context.Context, productID int64, qty int) error
	LogMovement(ctx context.Context, movementType string, productID int64, qty int, refID, note string) error
}

// SalePort is satisfied by the sales service.
type SalePort interface {
	Get(ctx context.Context, id int64) (sales.Sale, error)
}

// CustomerPort is satisfied by the customers service.
type CustomerPort interface {
	GrantCredit(ctx context.Context, id int64, amount float64) (float64, error)
	RedeemCredit(ctx context.Context, id int64, amount float64) (float64, error)
}

type Service struct {
	logger   *slog.Logger
	repo     Repository
	sales    SalePort
	customer CustomerPort
	seq      orders.SequencerPort
	now      func() time.Time
}

func NewService(logger *slog.Logger, repo Repository, salePort SalePort, customer CustomerPort, seq orders.SequencerPort) *Service {
	return &Service{logger: logger, repo: repo, sales: salePort, customer: customer, seq: seq, now: time.Now}
}

// Create records a return against a completed sale. Returned items go back
// to stock at their original sale price; a credit note refund books the
// amount onto the customer's store credit.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Return, error) {
	if len(req.Items) == 0 {
		return Return{}, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	refundMethod := req.RefundMethod
	if refundMethod == "" {
		refundMethod = RefundCash
	}

	sale, err := s.sales.Get(ctx, req.SaleID)
	if err != nil {
		return Return{}, fmt.Errorf("%w: sale %d", ErrNotFound, req.SaleID)
	}
	if sale.Status == sales.StatusVoided {
		return Return{}, fmt.Errorf("%w: sale is voided", ErrSaleNotReturnable)
	}
	if refundMethod == RefundCreditNote && sale.CustomerID == nil {
		return Return{}, ErrCreditNeedsCustomer
	}

	items, refundAmount, err := buildItems(sale, req.Items)
	if err != nil {
		return Return{}, err
	}

	now := s.now().UTC()
	returnSeq, err := s.seq.Next(ctx, "RET", now.Year())
	if err != nil {
		return Return{}, fmt.Errorf("returns: next sequence: %w", err)
	}

	ret := Return{
		ReturnNumber: orders.FormatDocNumber("RET", now.Year(), returnSeq),
		SaleID:       sale.ID,
		SaleNumber:   sale.SaleNumber,
		CustomerID:   sale.CustomerID,
		CustomerName: sale.CustomerName,
		Reason:       strings.TrimSpace(req.Reason),
		RefundMethod: refundMethod,
		RefundAmount: refundAmount,
		Items:        items,
		CreatedAt:    now,
	}

	var noteSeq int64
	if refundMethod == RefundCreditNote {
		noteSeq, err = s.seq.Next(ctx, "CN", now.Year())
		if err != nil {
			return Return{}, fmt.Errorf("returns: next sequence: %w", err)
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertReturn(ctx, ret)
		if err != nil {
			return err
		}
		ret.ID = id
		if err := tx.InsertItems(ctx, id, ret.Items); err != nil {
			return err
		}
		for _, item := range ret.Items {
			qty, err := tx.LockStock(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := tx.SetStock(ctx, item.ProductID, qty+item.Quantity); err != nil {
				return err
			}
			if err := tx.LogMovement(ctx, "IN", item.ProductID, item.Quantity, ret.ReturnNumber, "sale return"); err != nil {
				return err
			}
		}
		if refundMethod == RefundCreditNote {
			note := CreditNote{
				NoteNumber: orders.FormatDocNumber("CN", now.Year(), noteSeq),
				ReturnID:   id,
				CustomerID: *sale.CustomerID,
				Amount:     refundAmount,
				Status:     CreditNoteActive,
				CreatedAt:  now,
			}
			noteID, err := tx.InsertCreditNote(ctx, note)
			if err != nil {
				return err
			}
			note.ID = noteID
			ret.CreditNote = &note
		}
		return nil
	})
	if err != nil {
		return Return{}, err
	}

	if ret.CreditNote != nil {
		if _, err := s.customer.GrantCredit(ctx, ret.CreditNote.CustomerID, refundAmount); err != nil {
			s.logger.Warn("grant store credit failed", "error", err, "customer_id", ret.CreditNote.CustomerID, "return", ret.ReturnNumber)
		}
	}
	return ret, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Return, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Return, error) {
	if id <= 0 {
		return Return{}, fmt.Errorf("%w: return id must be positive", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateReason(ctx context.Context, id int64, reason string) (Return, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetReturnForUpdate(ctx, id); err != nil {
			return err
		}
		return tx.UpdateReason(ctx, id, strings.TrimSpace(reason))
	})
	if err != nil {
		return Return{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete undoes a return: the restocked items go back out and any credit
// note is voided with its credit clawed back.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var ret Return
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		found, err := tx.GetReturnForUpdate(ctx, id)
		if err != nil {
			return err
		}
		ret = found
		for _, item := range ret.Items {
			qty, err := tx.LockStock(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err := tx.SetStock(ctx, item.ProductID, qty-item.Quantity); err != nil {
				return err
			}
			if err := tx.LogMovement(ctx, "OUT", item.ProductID, -item.Quantity, ret.ReturnNumber, "return deleted"); err != nil {
				return err
			}
		}
		if ret.CreditNote != nil && ret.CreditNote.Status == CreditNoteActive {
			if err := tx.VoidCreditNote(ctx, id); err != nil {
				return err
			}
		}
		return tx.DeleteReturn(ctx, id)
	})
	if err != nil {
		return err
	}

	if ret.CreditNote != nil && ret.CreditNote.Status == CreditNoteActive {
		if _, err := s.customer.RedeemCredit(ctx, ret.CreditNote.CustomerID, ret.CreditNote.Amount); err != nil {
			s.logger.Warn("claw back store credit failed", "error", err, "customer_id", ret.CreditNote.CustomerID, "return", ret.ReturnNumber)
		}
	}
	return nil
}

func (s *Service) ListCreditNotes(ctx context.Context, customerID *int64) ([]CreditNote, error) {
	return s.repo.ListCreditNotes(ctx, customerID)
}

// buildItems checks the requested lines against what the sale actually sold
// and prices the refund at the original unit price.
func buildItems(sale sales.Sale, requested []ItemRequest) ([]ReturnItem, float64, error) {
	var items []ReturnItem
	var total float64
	for _, req := range requested {
		if req.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: return quantity must be positive", ErrValidation)
		}
		var sold *sales.SaleItem
		for i := range sale.Items {
			if sale.Items[i].ProductID == req.ProductID {
				sold = &sale.Items[i]
				break
			}
		}
		if sold == nil {
			return nil, 0, fmt.Errorf("%w: product %d was not on sale %s", ErrValidation, req.ProductID, sale.SaleNumber)
		}
		if req.Quantity > sold.Quantity {
			return nil, 0, fmt.Errorf("%w: cannot return %d of product %d, only %d sold", ErrValidation, req.Quantity, req.ProductID, sold.Quantity)
		}
		lineTotal := float64(req.Quantity) * sold.UnitPrice
		items = append(items, ReturnItem{
			ProductID:   req.ProductID,
			ProductName: sold.ProductName,
			Quantity:    req.Quantity,
			UnitPrice:   sold.UnitPrice,
			LineTotal:   lineTotal,
		})
		total += lineTotal
	}
	return items, total, nil
}
