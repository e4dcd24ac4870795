// Package model defines the core data types shared across the application.
package model

import (
	"time"
)

// Transaction represents a single bank transaction.
//
// Amount follows the canonical storage sign convention: negative values are
// expenses (money out), positive values are income (money in). Plaid emits
// the opposite convention, so every ingestion path must normalize before
// handing a Transaction to storage.
type Transaction struct {
	Date         time.Time
	ProviderID   string // Plaid's transaction id, unique across all accounts
	AccountID    string // Plaid's account id
	Name         string // Raw transaction description
	MerchantName string // Cleaned merchant name, may equal Name
	Category     []string
	UserID       int64
	Amount       float64
}

// NormalizeProviderAmount converts a Plaid-convention amount
// (positive = expense) to the canonical storage convention.
func NormalizeProviderAmount(amount float64) float64 {
	return -amount
}
