package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListLevels(ctx context.Context, filter LevelFilter) ([]Level, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// Service coordinates stock movements and level queries.
type Service struct {
	repo     RepositoryPort
	allowNeg bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, allowNeg: cfg.AllowNegativeStock}
}

// PostInbound increases stock, e.g. a received purchase or a sale return.
func (s *Service) PostInbound(ctx context.Context, input MovementInput) (Movement, error) {
	if input.ProductID == 0 {
		return Movement{}, errors.New("inventory: product required")
	}
	if input.Qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	return s.postMovement(ctx, MovementTypeIn, input.ProductID, input.Qty, input)
}

// PostOutbound decreases stock, e.g. a completed sale.
func (s *Service) PostOutbound(ctx context.Context, input MovementInput) (Movement, error) {
	if input.ProductID == 0 {
		return Movement{}, errors.New("inventory: product required")
	}
	if input.Qty <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	return s.postMovement(ctx, MovementTypeOut, input.ProductID, -input.Qty, input)
}

// PostAdjustment applies a manual correction which may be positive or negative.
func (s *Service) PostAdjustment(ctx context.Context, input MovementInput) (Movement, error) {
	if input.ProductID == 0 {
		return Movement{}, errors.New("inventory: product required")
	}
	if input.Qty == 0 {
		return Movement{}, ErrInvalidQuantity
	}
	return s.postMovement(ctx, MovementTypeAdjust, input.ProductID, input.Qty, input)
}

// Available reports the current on-hand quantity for a product.
func (s *Service) Available(ctx context.Context, productID int64) (int, error) {
	var qty int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetLevelForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				qty = 0
				return nil
			}
			return err
		}
		qty = current
		return nil
	})
	return qty, err
}

// Levels lists stock levels with their status classification.
func (s *Service) Levels(ctx context.Context, filter LevelFilter) ([]Level, error) {
	levels, err := s.repo.ListLevels(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := levels[:0]
	for _, level := range levels {
		level.Status = Classify(level.Qty, level.MinStockLevel)
		if filter.Status != "" && level.Status != filter.Status {
			continue
		}
		out = append(out, level)
	}
	return out, nil
}

// Movements lists the movement history.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

func (s *Service) postMovement(ctx context.Context, mt MovementType, productID int64, qtyChange int, input MovementInput) (Movement, error) {
	movement := Movement{
		Type:      mt,
		ProductID: productID,
		Qty:       qtyChange,
		RefModule: input.RefModule,
		RefID:     input.RefID,
		Note:      input.Note,
		PostedAt:  time.Now().UTC(),
	}
	if movement.RefID == "" {
		movement.RefID = uuid.NewString()
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetLevelForUpdate(ctx, productID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		next := current + qtyChange
		if next < 0 && !s.allowNeg {
			return fmt.Errorf("%w: product %d has %d on hand", ErrNegativeStock, productID, current)
		}
		if err := tx.UpsertLevel(ctx, productID, next); err != nil {
			return err
		}
		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	return movement, nil
}
