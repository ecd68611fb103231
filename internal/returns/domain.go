package returns

import (
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("returns: not found")
	ErrValidation          = errors.New("returns: invalid input")
	ErrSaleNotReturnable   = errors.New("returns: sale not returnable")
	ErrCreditNeedsCustomer = errors.New("returns: credit note requires a registered customer")
)

const (
	RefundCash       = "cash"
	RefundCreditNote = "credit_note"
)

const (
	CreditNoteActive = "active"
	CreditNoteVoided = "voided"
)

type Return struct {
	ID           int64        `json:"id"`
	ReturnNumber string       `json:"return_number"`
	SaleID       int64        `json:"sale_id"`
	SaleNumber   string       `json:"sale_number"`
	CustomerID   *int64       `json:"customer_id,omitempty"`
	CustomerName string       `json:"customer_name"`
	Reason       string       `json:"reason,omitempty"`
	RefundMethod string       `json:"refund_method"`
	RefundAmount float64      `json:"refund_amount"`
	Items        []ReturnItem `json:"items,omitempty"`
	CreditNote   *CreditNote  `json:"credit_note,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type ReturnItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

type CreditNote struct {
	ID         int64     `json:"id"`
	NoteNumber string    `json:"note_number"`
	ReturnID   int64     `json:"return_id"`
	CustomerID int64     `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type ItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type CreateRequest struct {
	SaleID       int64         `json:"sale_id" validate:"required,gt=0"`
	Reason       string        `json:"reason"`
	RefundMethod string        `json:"refund_method" validate:"omitempty,oneof=cash credit_note"`
	Items        []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type Filter struct {
	SaleID *int64
	Page   int
	Limit  int
}
