// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	UserID    int64
	Limit     int
	Offset    int
}

// Writer holds the typed write operations available both directly and
// inside a database transaction. Upserts are keyed by provider id and
// idempotent: the sync service relies on reapplying a page being harmless.
type Writer interface {
	UpsertTransaction(ctx context.Context, txn model.Transaction) error
	DeleteTransaction(ctx context.Context, providerID string) error
	UpsertAccount(ctx context.Context, account model.Account) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	Writer

	// Transaction reads
	GetTransactionByProviderID(ctx context.Context, providerID string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	// Account reads
	GetAccounts(ctx context.Context, itemID string) ([]model.Account, error)

	// Linked connection operations
	SaveItem(ctx context.Context, item *model.PlaidItem) error
	GetItems(ctx context.Context, userID int64) ([]model.PlaidItem, error)
	UpdateItemSync(ctx context.Context, itemID, cursor string, lastSync time.Time) error

	// Conversation log
	GetConversation(ctx context.Context, threadID string) (*model.Conversation, error)
	AppendMessages(ctx context.Context, userID int64, threadID string, messages ...model.Message) error

	// Agent-facing capabilities
	ExecuteQuery(ctx context.Context, query string) []model.Row
	SchemaDescription(ctx context.Context) (string, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction. Writes performed through
// it become visible only on Commit; the sync service wraps each change-feed
// page in one.
type Transaction interface {
	Commit() error
	Rollback() error
	Writer
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
