package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pennywise-fi/pennywise/internal/common"
	"github.com/pennywise-fi/pennywise/internal/model"
	"github.com/pennywise-fi/pennywise/internal/service"
)

// UpsertTransaction inserts a transaction or overwrites its fields in place,
// keyed by provider transaction id. Reapplying the same record is harmless;
// the sync service depends on this for at-least-once page delivery.
func (s *SQLiteStorage) UpsertTransaction(ctx context.Context, txn model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return upsertTransactionTx(ctx, s.db, txn)
}

func upsertTransactionTx(ctx context.Context, db execer, txn model.Transaction) error {
	categoryJSON, err := marshalCategories(txn.Category)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO transactions (
			provider_transaction_id, user_id, account_id, amount, date, name, merchant_name, category
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_transaction_id) DO UPDATE SET
			user_id = excluded.user_id,
			account_id = excluded.account_id,
			amount = excluded.amount,
			date = excluded.date,
			name = excluded.name,
			merchant_name = excluded.merchant_name,
			category = excluded.category
	`,
		txn.ProviderID,
		txn.UserID,
		txn.AccountID,
		txn.Amount,
		txn.Date,
		txn.Name,
		txn.MerchantName,
		categoryJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction %s: %w", txn.ProviderID, err)
	}
	return nil
}

// DeleteTransaction removes a transaction by provider id. Deleting an
// already-absent row is not an error.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, providerID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(providerID, "providerID"); err != nil {
		return err
	}
	return deleteTransactionTx(ctx, s.db, providerID)
}

func deleteTransactionTx(ctx context.Context, db execer, providerID string) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM transactions WHERE provider_transaction_id = ?`, providerID); err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", providerID, err)
	}
	return nil
}

// GetTransactionByProviderID fetches a single transaction.
func (s *SQLiteStorage) GetTransactionByProviderID(ctx context.Context, providerID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(providerID, "providerID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT provider_transaction_id, user_id, account_id, amount, date, name, merchant_name, category
		FROM transactions
		WHERE provider_transaction_id = ?
	`, providerID)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", providerID, err)
	}
	return txn, nil
}

// GetTransactions returns transactions matching the filter, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT provider_transaction_id, user_id, account_id, amount, date, name, merchant_name, category
		FROM transactions
		WHERE 1=1`
	var args []any

	if filter.UserID != 0 {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.StartDate != nil {
		query += ` AND date >= ?`
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += ` AND date <= ?`
		args = append(args, *filter.EndDate)
	}

	query += ` ORDER BY date DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var merchantName sql.NullString
	var categoryJSON sql.NullString
	var date time.Time

	err := row.Scan(
		&txn.ProviderID,
		&txn.UserID,
		&txn.AccountID,
		&txn.Amount,
		&date,
		&txn.Name,
		&merchantName,
		&categoryJSON,
	)
	if err != nil {
		return nil, err
	}

	txn.Date = date
	txn.MerchantName = merchantName.String
	if categoryJSON.Valid && categoryJSON.String != "" {
		if err := json.Unmarshal([]byte(categoryJSON.String), &txn.Category); err != nil {
			return nil, fmt.Errorf("corrupt category data for %s: %w", txn.ProviderID, err)
		}
	}

	return &txn, nil
}

func marshalCategories(categories []string) (string, error) {
	if len(categories) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(categories)
	if err != nil {
		return "", fmt.Errorf("failed to marshal categories %s: %w", strings.Join(categories, ","), err)
	}
	return string(b), nil
}
