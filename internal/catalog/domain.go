package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("catalog: not found")
	ErrDuplicate  = errors.New("catalog: duplicate")
	ErrValidation = errors.New("catalog: invalid input")
	ErrInUse      = errors.New("catalog: record in use")
)

// Product is a sellable or purchasable item.
type Product struct {
	ID            int64     `json:"id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CategoryID    *int64    `json:"category_id,omitempty"`
	CategoryName  string    `json:"category_name,omitempty"`
	Price         float64   `json:"price"`
	Cost          float64   `json:"cost"`
	TaxRate       float64   `json:"tax_rate"`
	MinStockLevel int       `json:"min_stock_level"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type ProductFilter struct {
	Search     string
	CategoryID *int64
	IsActive   *bool
	Page       int
	Limit      int
}

// GenerateSKU issues a fresh SKU when the caller did not supply one.
func GenerateSKU() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "SKU-" + strings.ToUpper(id[:8])
}
