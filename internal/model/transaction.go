// Package model defines the core domain types shared across the application.
package model

import (
	"time"
)

// Transaction represents a single ledger transaction as returned by the
// remote ledger API.
type Transaction struct {
	Date         time.Time `json:"date"`
	Name         string    `json:"name"` // Raw transaction description
	MerchantName string    `json:"merchant_name"`
	Category     string    `json:"category"` // Empty until categorized
	Note         string    `json:"note"`
	ID           int64     `json:"id"`
	Amount       float64   `json:"amount"` // Signed: negative for expenses
}

// Categorized reports whether the transaction has been assigned a category.
func (t *Transaction) Categorized() bool {
	return t.Category != ""
}
