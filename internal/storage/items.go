package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pennywise-fi/pennywise/internal/model"
)

// SaveItem persists a newly linked bank connection.
func (s *SQLiteStorage) SaveItem(ctx context.Context, item *model.PlaidItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("item cannot be nil")
	}
	if err := validateString(item.ItemID, "itemID"); err != nil {
		return err
	}
	if err := validateString(item.AccessToken, "accessToken"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plaid_items (item_id, user_id, access_token, institution_id, institution_name, cursor)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			access_token = excluded.access_token,
			institution_id = excluded.institution_id,
			institution_name = excluded.institution_name
	`,
		item.ItemID,
		item.UserID,
		item.AccessToken,
		item.InstitutionID,
		item.InstitutionName,
		item.Cursor,
	)
	if err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ItemID, err)
	}
	return nil
}

// GetItems returns all linked connections for a user.
func (s *SQLiteStorage) GetItems(ctx context.Context, userID int64) ([]model.PlaidItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, user_id, access_token, institution_id, institution_name, cursor, last_sync, created_at
		FROM plaid_items
		WHERE user_id = ?
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.PlaidItem
	for rows.Next() {
		var item model.PlaidItem
		var institutionID, institutionName sql.NullString
		var lastSync, createdAt sql.NullTime

		if err := rows.Scan(
			&item.ItemID,
			&item.UserID,
			&item.AccessToken,
			&institutionID,
			&institutionName,
			&item.Cursor,
			&lastSync,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		item.InstitutionID = institutionID.String
		item.InstitutionName = institutionName.String
		item.LastSync = lastSync.Time
		item.CreatedAt = createdAt.Time

		items = append(items, item)
	}

	return items, rows.Err()
}

// UpdateItemSync durably advances a connection's cursor and last-sync time.
// Called only after every page up to that cursor has been committed.
func (s *SQLiteStorage) UpdateItemSync(ctx context.Context, itemID, cursor string, lastSync time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(itemID, "itemID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE plaid_items SET cursor = ?, last_sync = ? WHERE item_id = ?
	`, cursor, lastSync, itemID)
	if err != nil {
		return fmt.Errorf("failed to update item sync state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %s does not exist", itemID)
	}
	return nil
}
