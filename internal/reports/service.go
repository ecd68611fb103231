package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/tillpoint/tillpoint/internal/inventory"
)

type Repository interface {
	SummarizeSales(ctx context.Context, from, to time.Time) (SalesSummary, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
}

// InventoryPort is satisfied by the inventory service.
type InventoryPort interface {
	Levels(ctx context.Context, filter inventory.LevelFilter) ([]inventory.Level, error)
}

type Service struct {
	repo  Repository
	stock InventoryPort
	cache *Cache
}

func NewService(repo Repository, stock InventoryPort, cache *Cache) *Service {
	return &Service{repo: repo, stock: stock, cache: cache}
}

func (s *Service) SalesSummary(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "sales_summary", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return SalesSummary{}, err
	}
	var summary SalesSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.repo.SummarizeSales(ctx, from, to)
	})
	return summary, err
}

func (s *Service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}
	key, err := s.cache.BuildKey(ctx, "reports", "top_products", from.Format("2006-01-02"), to.Format("2006-01-02"), fmt.Sprint(limit))
	if err != nil {
		return nil, err
	}
	var products []TopProduct
	err = s.cache.FetchJSON(ctx, key, &products, func(ctx context.Context) (any, error) {
		return s.repo.TopProducts(ctx, from, to, limit)
	})
	return products, err
}

// LowStock reads live inventory; stale numbers here would defeat the point.
func (s *Service) LowStock(ctx context.Context) ([]inventory.Level, error) {
	levels, err := s.stock.Levels(ctx, inventory.LevelFilter{})
	if err != nil {
		return nil, err
	}
	var flagged []inventory.Level
	for _, level := range levels {
		if level.Status == inventory.StatusLowStock || level.Status == inventory.StatusOutOfStock {
			flagged = append(flagged, level)
		}
	}
	return flagged, nil
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
