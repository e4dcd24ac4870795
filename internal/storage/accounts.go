package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// UpsertAccount overwrites an account record wholesale, keyed by provider
// account id. Account sync never diffs; every pass rewrites everything.
func (s *SQLiteStorage) UpsertAccount(ctx context.Context, account model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}
	return upsertAccountTx(ctx, s.db, account)
}

func upsertAccountTx(ctx context.Context, db execer, account model.Account) error {
	currency := account.Currency
	if currency == "" {
		currency = "USD"
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (
			account_id, item_id, name, official_name, type, subtype,
			balance_available, balance_current, balance_limit, currency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			item_id = excluded.item_id,
			name = excluded.name,
			official_name = excluded.official_name,
			type = excluded.type,
			subtype = excluded.subtype,
			balance_available = excluded.balance_available,
			balance_current = excluded.balance_current,
			balance_limit = excluded.balance_limit,
			currency = excluded.currency
	`,
		account.ProviderID,
		account.ItemID,
		account.Name,
		account.OfficialName,
		account.Type,
		account.Subtype,
		account.BalanceAvailable,
		account.BalanceCurrent,
		account.BalanceLimit,
		currency,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", account.ProviderID, err)
	}
	return nil
}

// GetAccounts returns all accounts belonging to a linked connection.
func (s *SQLiteStorage) GetAccounts(ctx context.Context, itemID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(itemID, "itemID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, item_id, name, official_name, type, subtype,
		       balance_available, balance_current, balance_limit, currency
		FROM accounts
		WHERE item_id = ?
		ORDER BY name
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var a model.Account
		var name, officialName, accountType, subtype, currency sql.NullString
		var available, current, limit sql.NullFloat64

		if err := rows.Scan(
			&a.ProviderID, &a.ItemID, &name, &officialName, &accountType,
			&subtype, &available, &current, &limit, &currency,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		a.Name = name.String
		a.OfficialName = officialName.String
		a.Type = accountType.String
		a.Subtype = subtype.String
		a.BalanceAvailable = available.Float64
		a.BalanceCurrent = current.Float64
		a.BalanceLimit = limit.Float64
		a.Currency = currency.String

		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
