package customers

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("customers: not found")
	ErrValidation = errors.New("customers: invalid input")
	ErrCredit     = errors.New("customers: insufficient store credit")
)

// WalkInName is used on sales that carry no registered customer.
const WalkInName = "Walk-in Customer"

type Customer struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	Address        string    `json:"address,omitempty"`
	StoreCredit    float64   `json:"store_credit"`
	TotalPurchases float64   `json:"total_purchases"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Filter struct {
	Search string
	Page   int
	Limit  int
}
