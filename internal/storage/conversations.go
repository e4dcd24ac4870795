package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pennywise-fi/pennywise/internal/common"
	"github.com/pennywise-fi/pennywise/internal/model"
)

// GetConversation fetches the message log for one thread.
// Returns common.ErrNotFound when the thread has never been seen.
func (s *SQLiteStorage) GetConversation(ctx context.Context, threadID string) (*model.Conversation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(threadID, "threadID"); err != nil {
		return nil, err
	}

	var conv model.Conversation
	var messagesJSON string
	var updatedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT thread_id, user_id, messages, updated_at
		FROM conversations
		WHERE thread_id = ?
	`, threadID).Scan(&conv.ThreadID, &conv.UserID, &messagesJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation %s: %w", threadID, err)
	}

	conv.UpdatedAt = updatedAt.Time
	if err := json.Unmarshal([]byte(messagesJSON), &conv.Messages); err != nil {
		return nil, fmt.Errorf("corrupt message log for thread %s: %w", threadID, err)
	}

	return &conv, nil
}

// AppendMessages appends messages to a thread's log, creating the thread on
// first use. The log is append-only; persisted history is never rewritten.
func (s *SQLiteStorage) AppendMessages(ctx context.Context, userID int64, threadID string, messages ...model.Message) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(threadID, "threadID"); err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing []model.Message
	var messagesJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT messages FROM conversations WHERE thread_id = ?`, threadID).Scan(&messagesJSON)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first message on this thread
	case err != nil:
		return fmt.Errorf("failed to load conversation %s: %w", threadID, err)
	default:
		if err := json.Unmarshal([]byte(messagesJSON), &existing); err != nil {
			return fmt.Errorf("corrupt message log for thread %s: %w", threadID, err)
		}
	}

	combined, err := json.Marshal(append(existing, messages...))
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (thread_id, user_id, messages, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`, threadID, userID, string(combined), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", threadID, err)
	}

	return tx.Commit()
}
