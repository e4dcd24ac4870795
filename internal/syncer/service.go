// Package syncer implements the incremental transaction synchronization
// protocol: for each linked bank connection it refreshes account metadata,
// pages through the provider's change feed, applies each page in one
// database transaction, and persists the resume cursor only after every
// page has been committed. Reprocessing a page is harmless because adds and
// modifies are idempotent upserts keyed by provider transaction id and
// removes tolerate already-absent rows (at-least-once delivery).
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/pennywise-fi/pennywise/internal/common"
	"github.com/pennywise-fi/pennywise/internal/model"
	"github.com/pennywise-fi/pennywise/internal/plaid"
	"github.com/pennywise-fi/pennywise/internal/service"
)

// Service synchronizes linked bank connections against the store.
type Service struct {
	store    service.Storage
	provider plaid.Provider
	logger   *slog.Logger

	mu    gosync.Mutex
	locks map[string]*gosync.Mutex
}

// New creates a sync service with explicit capability handles.
func New(store service.Storage, provider plaid.Provider) *Service {
	return &Service{
		store:    store,
		provider: provider,
		logger:   slog.Default().With("component", "syncer"),
		locks:    make(map[string]*gosync.Mutex),
	}
}

// itemLock returns the per-connection mutex, creating it on first use.
// Overlapping sync invocations for the same connection are serialized; the
// provider's cursor protocol tolerates duplicates but concurrent
// delete/insert interleaving would not be safe.
func (s *Service) itemLock(itemID string) *gosync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[itemID]
	if !ok {
		lock = &gosync.Mutex{}
		s.locks[itemID] = lock
	}
	return lock
}

// SyncItem drives one connection to completion or a recorded failure.
// A failure aborts the remaining pages for this connection only;
// already-committed pages are retained and the durable cursor stays at the
// last consistent point, so the next run resumes without skipping data.
func (s *Service) SyncItem(ctx context.Context, item *model.PlaidItem) model.SyncSummary {
	lock := s.itemLock(item.ItemID)
	lock.Lock()
	defer lock.Unlock()

	var summary model.SyncSummary

	if err := s.syncAccounts(ctx, item); err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary
	}

	cursor := item.Cursor
	for {
		page, err := s.provider.SyncTransactions(ctx, item.AccessToken, cursor)
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			return summary
		}

		if err := s.applyPage(ctx, item, page); err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			return summary
		}

		summary.Added += len(page.Added)
		summary.Modified += len(page.Modified)
		summary.Removed += len(page.Removed)

		cursor = page.NextCursor
		if !page.HasMore {
			break
		}
	}

	if err := s.store.UpdateItemSync(ctx, item.ItemID, cursor, time.Now().UTC()); err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary
	}
	item.Cursor = cursor
	item.LastSync = time.Now().UTC()

	s.logger.Info("Synced connection",
		"item_id", item.ItemID,
		"added", summary.Added,
		"modified", summary.Modified,
		"removed", summary.Removed)

	return summary
}

// syncAccounts refreshes all account records for a connection, overwriting
// wholesale. There is no incremental diff for accounts.
func (s *Service) syncAccounts(ctx context.Context, item *model.PlaidItem) error {
	accounts, err := s.provider.GetAccounts(ctx, item.AccessToken)
	if err != nil {
		return fmt.Errorf("account sync failed: %w", err)
	}

	for _, account := range accounts {
		account.ItemID = item.ItemID
		if err := s.store.UpsertAccount(ctx, account); err != nil {
			return fmt.Errorf("account sync failed: %w", err)
		}
	}
	return nil
}

// applyPage applies one change-feed page inside a single database
// transaction. On any failure the whole page rolls back.
func (s *Service) applyPage(ctx context.Context, item *model.PlaidItem, page *model.SyncPage) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to start page transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, txn := range page.Added {
		txn.UserID = item.UserID
		if err := tx.UpsertTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to apply added transaction: %w", err)
		}
	}

	for _, txn := range page.Modified {
		txn.UserID = item.UserID
		if err := tx.UpsertTransaction(ctx, txn); err != nil {
			return fmt.Errorf("failed to apply modified transaction: %w", err)
		}
	}

	for _, providerID := range page.Removed {
		if err := tx.DeleteTransaction(ctx, providerID); err != nil {
			return fmt.Errorf("failed to apply removed transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page: %w", err)
	}
	return nil
}

// SyncAll syncs every linked connection for a user and aggregates the
// per-connection summaries. Returns common.ErrNoLinkedItems when the user
// has no connections at all.
func (s *Service) SyncAll(ctx context.Context, userID int64) (model.SyncSummary, error) {
	items, err := s.store.GetItems(ctx, userID)
	if err != nil {
		return model.SyncSummary{}, fmt.Errorf("failed to load connections: %w", err)
	}
	if len(items) == 0 {
		return model.SyncSummary{}, common.ErrNoLinkedItems
	}

	var total model.SyncSummary
	for i := range items {
		total.Merge(s.SyncItem(ctx, &items[i]))
	}
	return total, nil
}
