package customers

import (
	"context"
	"fmt"
	"strings"
)

type Repository interface {
	List(ctx context.Context, filter Filter) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id int64, c Customer) error
	Delete(ctx context.Context, id int64) error
	AdjustCredit(ctx context.Context, id int64, delta float64) (float64, error)
	AddPurchaseTotal(ctx context.Context, id int64, amount float64) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Customer, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, fmt.Errorf("%w: customer id must be positive", ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, c Customer) (Customer, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Customer{}, fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	c.StoreCredit = 0
	c.TotalPurchases = 0
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, id int64, c Customer) error {
	if id <= 0 {
		return fmt.Errorf("%w: customer id must be positive", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	return s.repo.Update(ctx, id, c)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: customer id must be positive", ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// GrantCredit adds store credit, e.g. when a credit note is issued.
func (s *Service) GrantCredit(ctx context.Context, id int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}
	return s.repo.AdjustCredit(ctx, id, amount)
}

// RedeemCredit deducts store credit and fails when the balance is short.
func (s *Service) RedeemCredit(ctx context.Context, id int64, amount float64) (float64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: credit amount must be positive", ErrValidation)
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if c.StoreCredit < amount {
		return 0, fmt.Errorf("%w: has %.2f, needs %.2f", ErrCredit, c.StoreCredit, amount)
	}
	return s.repo.AdjustCredit(ctx, id, -amount)
}

// RecordPurchase bumps the lifetime purchase total after a completed sale.
func (s *Service) RecordPurchase(ctx context.Context, id int64, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("%w: purchase amount must not be negative", ErrValidation)
	}
	return s.repo.AddPurchaseTotal(ctx, id, amount)
}
