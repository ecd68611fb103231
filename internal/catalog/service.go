package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/tillpoint/tillpoint/internal/orders"
)

type Repository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProductBySKU(ctx context.Context, sku string) (Product, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	UpdateProduct(ctx context.Context, id int64, p Product) error
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	CreateCategory(ctx context.Context, c Category) (Category, error)
	UpdateCategory(ctx context.Context, id int64, c Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: product id must be positive", ErrValidation)
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p Product) (Product, error) {
	if err := s.validateProduct(p); err != nil {
		return Product{}, err
	}
	if strings.TrimSpace(p.SKU) == "" {
		p.SKU = GenerateSKU()
	}
	return s.repo.CreateProduct(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, p Product) error {
	if id <= 0 {
		return fmt.Errorf("%w: product id must be positive", ErrValidation)
	}
	if err := s.validateProduct(p); err != nil {
		return err
	}
	return s.repo.UpdateProduct(ctx, id, p)
}

// DeleteProduct deactivates rather than removes when the product has
// transaction history; the repository decides which applies.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: product id must be positive", ErrValidation)
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) validateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if p.Cost < 0 {
		return fmt.Errorf("%w: cost must not be negative", ErrValidation)
	}
	if p.TaxRate < 0 || p.TaxRate > 100 {
		return fmt.Errorf("%w: tax rate must be between 0 and 100", ErrValidation)
	}
	if p.MinStockLevel < 0 {
		return fmt.Errorf("%w: min stock level must not be negative", ErrValidation)
	}
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, fmt.Errorf("%w: category id must be positive", ErrValidation)
	}
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, c Category) (Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Category{}, fmt.Errorf("%w: category name is required", ErrValidation)
	}
	return s.repo.CreateCategory(ctx, c)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, c Category) error {
	if id <= 0 {
		return fmt.Errorf("%w: category id must be positive", ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrValidation)
	}
	return s.repo.UpdateCategory(ctx, id, c)
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: category id must be positive", ErrValidation)
	}
	return s.repo.DeleteCategory(ctx, id)
}

// Resolver adapts the catalog to the order composer's product lookup.
type Resolver struct {
	service *Service
}

func NewResolver(service *Service) *Resolver {
	return &Resolver{service: service}
}

func (r *Resolver) Resolve(ctx context.Context, productID int64) (orders.ProductInfo, error) {
	p, err := r.service.GetProduct(ctx, productID)
	if err != nil {
		return orders.ProductInfo{}, err
	}
	return orders.ProductInfo{
		Name:      p.Name,
		UnitPrice: p.Price,
		TaxRate:   p.TaxRate,
		IsActive:  p.IsActive,
	}, nil
}
