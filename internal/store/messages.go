// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/mia-tui/internal/model"
)

// =============================================================================
// MESSAGES
// =============================================================================

const messageColumns = `id, chat_id, content, sender_type, sender_id,
	actions_hidden, loading_status, ignore_at, ui, created_at, updated_at, deleted_at`

func scanMessage(row interface{ Scan(...any) error }) (*model.Message, error) {
	var m model.Message
	var senderType, status, ui string
	var actionsHidden int
	var ignoreAt, deletedAt sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&m.ID, &m.ChatID, &m.Content, &senderType, &m.SenderID,
		&actionsHidden, &status, &ignoreAt, &ui, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	m.SenderType = model.SenderType(senderType)
	m.LoadingStatus = model.LoadingStatus(status)
	m.ActionsHidden = actionsHidden != 0
	if ui != "" {
		if err := json.Unmarshal([]byte(ui), &m.UI); err != nil {
			return nil, fmt.Errorf("message %s: corrupt ui state: %w", m.ID, err)
		}
	}
	m.IgnoreAt = fromMillisPtr(ignoreAt)
	m.CreatedAt = fromMillis(createdAt)
	m.UpdatedAt = fromMillis(updatedAt)
	m.DeletedAt = fromMillisPtr(deletedAt)
	return &m, nil
}

// execer abstracts over *sql.DB and *sql.Tx for inserts.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertMessage fills in defaults, allocates the creation timestamp and
// runs the insert on ex. Caller holds writeMu.
func (s *Store) insertMessage(ctx context.Context, ex execer, m *model.Message) error {
	if m.ID == "" {
		m.ID = NewID("msg")
	}
	if m.LoadingStatus == "" {
		m.LoadingStatus = model.StatusOK
	}

	createdAt, err := s.allocMessageTime(m.ChatID)
	if err != nil {
		return err
	}
	m.CreatedAt = createdAt
	m.UpdatedAt = createdAt

	ui, err := json.Marshal(m.UI)
	if err != nil {
		return fmt.Errorf("message %s: encode ui state: %w", m.ID, err)
	}

	actionsHidden := 0
	if m.ActionsHidden {
		actionsHidden = 1
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO chat_messages (id, chat_id, content, sender_type, sender_id,
			actions_hidden, loading_status, ignore_at, ui, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, m.Content, string(m.SenderType), m.SenderID,
		actionsHidden, string(m.LoadingStatus), toMillisPtr(m.IgnoreAt),
		string(ui), toMillis(createdAt), toMillis(createdAt))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// CreateMessage inserts a new message. A zero ID is filled in, and the
// creation timestamp is allocated strictly after every other message in the
// chat regardless of wall-clock resolution.
func (s *Store) CreateMessage(ctx context.Context, m *model.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.insertMessage(ctx, s.db, m)
}

// CreateMessagePair inserts two messages of the same chat in one
// transaction, first then second. Either both land or neither does.
func (s *Store) CreateMessagePair(ctx context.Context, first, second *model.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if err := s.insertMessage(ctx, tx, first); err != nil {
		return err
	}
	if err := s.insertMessage(ctx, tx, second); err != nil {
		return err
	}
	return tx.Commit()
}

// GetMessage returns the message with the given id, including soft-deleted
// rows so callers can distinguish deleted from never-existed.
func (s *Store) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM chat_messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return m, nil
}

// UpdateMessage persists a message's mutable fields: content, sender,
// loading status, ignore and UI state. CreatedAt never changes.
func (s *Store) UpdateMessage(ctx context.Context, m *model.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ui, err := json.Marshal(m.UI)
	if err != nil {
		return fmt.Errorf("message %s: encode ui state: %w", m.ID, err)
	}
	actionsHidden := 0
	if m.ActionsHidden {
		actionsHidden = 1
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_messages SET content = ?, sender_type = ?, sender_id = ?,
			actions_hidden = ?, loading_status = ?, ignore_at = ?, ui = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		m.Content, string(m.SenderType), m.SenderID, actionsHidden,
		string(m.LoadingStatus), toMillisPtr(m.IgnoreAt), string(ui),
		toMillis(now), m.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return fmt.Errorf("message %s: %w", m.ID, ErrNotFound)
	}
	m.UpdatedAt = now
	return nil
}

// DeleteMessage soft-deletes a message.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := toMillis(time.Now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_messages SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListChatMessages returns all live messages of a chat ordered by creation
// time ascending.
func (s *Store) ListChatMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM chat_messages
		WHERE chat_id = ? AND deleted_at IS NULL
		ORDER BY created_at ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return messages, nil
}

// History returns the messages of a chat eligible for outbound conversation
// history: completed, not ignored, not deleted, ascending by creation time.
// When before is non-nil only messages created strictly earlier qualify.
func (s *Store) History(ctx context.Context, chatID string, before *time.Time) ([]model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages
		WHERE chat_id = ? AND deleted_at IS NULL AND ignore_at IS NULL
		AND loading_status = ?`
	args := []any{chatID, string(model.StatusOK)}
	if before != nil {
		query += ` AND created_at < ?`
		args = append(args, toMillis(*before))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return messages, nil
}

// NextMessageAfter returns the earliest live message in the chat created
// strictly after the given time, or ErrNotFound when none exists.
func (s *Store) NextMessageAfter(ctx context.Context, chatID string, after time.Time) (*model.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+` FROM chat_messages
		WHERE chat_id = ? AND deleted_at IS NULL AND created_at > ?
		ORDER BY created_at ASC LIMIT 1`, chatID, toMillis(after))
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no message after %s in chat %s: %w",
			after.Format(time.RFC3339), chatID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return m, nil
}
