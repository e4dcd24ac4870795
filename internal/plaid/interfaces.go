package plaid

import (
	"context"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// Provider defines the contract for the external banking-data provider.
// This interface allows for easy mocking in tests and swapping data sources.
type Provider interface {
	// GetAccounts fetches all accounts reachable through an access token.
	// The returned accounts carry no ItemID; the caller owns that linkage.
	GetAccounts(ctx context.Context, accessToken string) ([]model.Account, error)

	// SyncTransactions requests one page of the incremental change feed.
	// An empty cursor means first-ever sync.
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*model.SyncPage, error)
}
