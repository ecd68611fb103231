package inventory

import (
	"errors"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementTypeIn represents an inbound movement (purchase receipt, return).
	MovementTypeIn MovementType = "IN"
	// MovementTypeOut represents an outbound movement (sale).
	MovementTypeOut MovementType = "OUT"
	// MovementTypeAdjust indicates a manual adjustment.
	MovementTypeAdjust MovementType = "ADJUST"
)

// Movement records one stock change against a product.
type Movement struct {
	ID        int64        `json:"id"`
	Type      MovementType `json:"type"`
	ProductID int64        `json:"product_id"`
	Qty       int          `json:"qty"`
	RefModule string       `json:"ref_module,omitempty"`
	RefID     string       `json:"ref_id,omitempty"`
	Note      string       `json:"note,omitempty"`
	PostedAt  time.Time    `json:"posted_at"`
}

// Level summarises the on-hand quantity for a product.
type Level struct {
	ProductID     int64     `json:"product_id"`
	SKU           string    `json:"sku"`
	Name          string    `json:"name"`
	Qty           int       `json:"qty"`
	MinStockLevel int       `json:"min_stock_level"`
	Status        Status    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Status classifies a stock level against its threshold.
type Status string

const (
	// StatusInStock means the quantity is above the minimum level.
	StatusInStock Status = "in_stock"
	// StatusLowStock means the quantity is at or below the minimum level.
	StatusLowStock Status = "low_stock"
	// StatusOutOfStock means nothing is on hand.
	StatusOutOfStock Status = "out_of_stock"
)

// Classify derives the stock status from quantity and minimum level.
func Classify(qty, minLevel int) Status {
	switch {
	case qty <= 0:
		return StatusOutOfStock
	case qty <= minLevel:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// MovementInput describes a stock change request.
type MovementInput struct {
	ProductID int64
	Qty       int
	RefModule string
	RefID     string
	Note      string
}

// LevelFilter narrows level listings.
type LevelFilter struct {
	Status Status
	Search string
	Limit  int
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// ErrNegativeStock is triggered when a movement would drive quantity below zero.
var ErrNegativeStock = errors.New("inventory: negative stock not allowed")

// ErrInvalidQuantity indicates a zero or wrongly signed quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")

// ErrNotFound indicates a missing stock record.
var ErrNotFound = errors.New("inventory: not found")
