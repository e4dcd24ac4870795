// Package plaid provides a client for interacting with the Plaid API.
package plaid

import (
	"context"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// MockProvider is a mock implementation of Provider for testing.
type MockProvider struct {
	// Functions that can be set by tests to control behavior
	GetAccountsFn      func(ctx context.Context, accessToken string) ([]model.Account, error)
	SyncTransactionsFn func(ctx context.Context, accessToken, cursor string) (*model.SyncPage, error)

	// Call tracking
	GetAccountsCalls      int
	SyncTransactionsCalls []SyncTransactionsCall
}

// SyncTransactionsCall records the parameters of a SyncTransactions call.
type SyncTransactionsCall struct {
	AccessToken string
	Cursor      string
}

// NewMockProvider creates a new mock Plaid provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		SyncTransactionsCalls: []SyncTransactionsCall{},
	}
}

// GetAccounts implements Provider.GetAccounts.
func (m *MockProvider) GetAccounts(ctx context.Context, accessToken string) ([]model.Account, error) {
	m.GetAccountsCalls++

	if m.GetAccountsFn != nil {
		return m.GetAccountsFn(ctx, accessToken)
	}
	return []model.Account{}, nil
}

// SyncTransactions implements Provider.SyncTransactions.
func (m *MockProvider) SyncTransactions(ctx context.Context, accessToken, cursor string) (*model.SyncPage, error) {
	m.SyncTransactionsCalls = append(m.SyncTransactionsCalls, SyncTransactionsCall{
		AccessToken: accessToken,
		Cursor:      cursor,
	})

	if m.SyncTransactionsFn != nil {
		return m.SyncTransactionsFn(ctx, accessToken, cursor)
	}
	return &model.SyncPage{}, nil
}

// Ensure MockProvider implements the Provider interface.
var _ Provider = (*MockProvider)(nil)
