package purchases

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("purchases: not found")
	ErrValidation      = errors.New("purchases: invalid input")
	ErrAlreadyReceived = errors.New("purchases: purchase already received")
)

const (
	StatusPending  = "Pending"
	StatusReceived = "Received"
)

type Purchase struct {
	ID              int64          `json:"id"`
	BillNumber      string         `json:"bill_number"`
	SupplierName    string         `json:"supplier_name"`
	SupplierContact string         `json:"supplier_contact,omitempty"`
	Status          string         `json:"status"`
	Subtotal        float64        `json:"subtotal"`
	Tax             float64        `json:"tax"`
	GrandTotal      float64        `json:"grand_total"`
	Items           []PurchaseItem `json:"items,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	ReceivedAt      *time.Time     `json:"received_at,omitempty"`
}

type PurchaseItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitCost    float64 `json:"unit_cost"`
	LineTotal   float64 `json:"line_total"`
}

type ItemRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitCost  float64 `json:"unit_cost" validate:"required,gt=0"`
}

type CreateRequest struct {
	SupplierName    string        `json:"supplier_name" validate:"required"`
	SupplierContact string        `json:"supplier_contact"`
	Status          string        `json:"status" validate:"omitempty,oneof=Pending Received"`
	Items           []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type Filter struct {
	From   *time.Time
	To     *time.Time
	Status string
	Page   int
	Limit  int
}
