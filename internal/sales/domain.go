package sales

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("sales: not found")
	ErrValidation        = errors.New("sales: invalid input")
	ErrAlreadyVoided     = errors.New("sales: sale already voided")
	ErrNotRefundable     = errors.New("sales: sale not refundable")
	ErrRefundExceeds     = errors.New("sales: refund exceeds remaining total")
	ErrInsufficientStock = errors.New("sales: insufficient stock")
)

const (
	StatusCompleted         = "completed"
	StatusVoided            = "voided"
	StatusRefunded          = "refunded"
	StatusPartiallyRefunded = "partially_refunded"
)

type Sale struct {
	ID             int64      `json:"id"`
	SaleNumber     string     `json:"sale_number"`
	CustomerID     *int64     `json:"customer_id,omitempty"`
	CustomerName   string     `json:"customer_name"`
	PaymentMethod  string     `json:"payment_method"`
	Status         string     `json:"status"`
	Subtotal       float64    `json:"subtotal"`
	Discount       float64    `json:"discount"`
	Tax            float64    `json:"tax"`
	GrandTotal     float64    `json:"grand_total"`
	RefundedAmount float64    `json:"refunded_amount"`
	Items          []SaleItem `json:"items,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type SaleItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	SKU         string  `json:"sku,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	TaxRate     float64 `json:"tax_rate"`
	LineTotal   float64 `json:"line_total"`
}

type ItemRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0"`
}

type CreateRequest struct {
	CustomerID    *int64        `json:"customer_id"`
	PaymentMethod string        `json:"payment_method"`
	Items         []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type RefundItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type RefundRequest struct {
	Amount float64      `json:"amount" validate:"required,gt=0"`
	Items  []RefundItem `json:"items" validate:"dive"`
}

type Filter struct {
	From          *time.Time
	To            *time.Time
	CustomerID    *int64
	Status        string
	PaymentMethod string
	MinAmount     *float64
	MaxAmount     *float64
	Search        string
	Page          int
	Limit         int
}

// Summary aggregates the filtered result set, not just the current page.
type Summary struct {
	TotalSales   int     `json:"total_sales"`
	TotalRevenue float64 `json:"total_revenue"`
	AverageSale  float64 `json:"average_sale"`
}
