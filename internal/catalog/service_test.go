package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products   map[int64]Product
	categories map[int64]Category
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product), categories: make(map[int64]Category)}
}

func (r *memoryRepo) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if filter.IsActive != nil && p.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) GetProductBySKU(ctx context.Context, sku string) (Product, error) {
	for _, p := range r.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *memoryRepo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	for _, existing := range r.products {
		if existing.SKU == p.SKU {
			return Product{}, ErrDuplicate
		}
	}
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) UpdateProduct(ctx context.Context, id int64, p Product) error {
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	p.ID = id
	r.products[id] = p
	return nil
}

func (r *memoryRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memoryRepo) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	for _, c := range r.categories {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryRepo) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) CreateCategory(ctx context.Context, c Category) (Category, error) {
	r.nextID++
	c.ID = r.nextID
	r.categories[c.ID] = c
	return c, nil
}

func (r *memoryRepo) UpdateCategory(ctx context.Context, id int64, c Category) error {
	if _, ok := r.categories[id]; !ok {
		return ErrNotFound
	}
	c.ID = id
	r.categories[id] = c
	return nil
}

func (r *memoryRepo) DeleteCategory(ctx context.Context, id int64) error {
	if _, ok := r.categories[id]; !ok {
		return ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

func TestCreateProductGeneratesSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())

	p, err := svc.CreateProduct(context.Background(), Product{Name: "Masala Chai", Price: 40, IsActive: true})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(p.SKU, "SKU-"))
	require.Len(t, p.SKU, 12)
	require.True(t, p.IsActive)
}

func TestCreateProductKeepsSuppliedSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())

	p, err := svc.CreateProduct(context.Background(), Product{Name: "Masala Chai", SKU: "CHAI-001", Price: 40})
	require.NoError(t, err)
	require.Equal(t, "CHAI-001", p.SKU)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, Product{Name: "   "})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, Product{Name: "Chai", Price: -1})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(ctx, Product{Name: "Chai", TaxRate: 120})
	require.ErrorIs(t, err, ErrValidation)
}

func TestGenerateSKUUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sku := GenerateSKU()
		require.False(t, seen[sku], "duplicate SKU %s", sku)
		seen[sku] = true
	}
}

func TestResolver(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, Product{Name: "Filter Coffee", Price: 55, TaxRate: 5, IsActive: true})
	require.NoError(t, err)

	resolver := NewResolver(svc)
	info, err := resolver.Resolve(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Filter Coffee", info.Name)
	require.Equal(t, 55.0, info.UnitPrice)
	require.Equal(t, 5.0, info.TaxRate)
	require.True(t, info.IsActive)

	_, err = resolver.Resolve(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryCRUD(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, Category{Name: ""})
	require.ErrorIs(t, err, ErrValidation)

	c, err := svc.CreateCategory(ctx, Category{Name: "Beverages"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateCategory(ctx, c.ID, Category{Name: "Hot Beverages"}))
	got, err := svc.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "Hot Beverages", got.Name)

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	_, err = svc.GetCategory(ctx, c.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
