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
// CHATS
// =============================================================================

func scanChat(row interface{ Scan(...any) error }) (*model.Chat, error) {
	var c model.Chat
	var usage string
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64
	err := row.Scan(&c.ID, &c.Name, &usage, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if usage != "" {
		if err := json.Unmarshal([]byte(usage), &c.TokenUsage); err != nil {
			return nil, fmt.Errorf("chat %s: corrupt token usage: %w", c.ID, err)
		}
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	c.DeletedAt = fromMillisPtr(deletedAt)
	return &c, nil
}

// CreateChat inserts a new chat. A zero ID is filled in.
func (s *Store) CreateChat(ctx context.Context, c *model.Chat) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if c.ID == "" {
		c.ID = NewID("chat")
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	usage, err := json.Marshal(c.TokenUsage)
	if err != nil {
		return fmt.Errorf("chat %s: encode token usage: %w", c.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chats (id, name, token_usage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(usage), toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// GetChat returns the non-deleted chat with the given id.
func (s *Store) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, token_usage, created_at, updated_at, deleted_at
		FROM chats WHERE id = ? AND deleted_at IS NULL`, id)
	c, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return c, nil
}

// UpdateChat updates a chat's name and token usage.
func (s *Store) UpdateChat(ctx context.Context, c *model.Chat) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	usage, err := json.Marshal(c.TokenUsage)
	if err != nil {
		return fmt.Errorf("chat %s: encode token usage: %w", c.ID, err)
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE chats SET name = ?, token_usage = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		c.Name, string(usage), toMillis(now), c.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return fmt.Errorf("chat %s: %w", c.ID, ErrNotFound)
	}
	c.UpdatedAt = now
	return nil
}

// DeleteChat soft-deletes a chat together with its messages.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := toMillis(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE chats SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return fmt.Errorf("chat %s: %w", id, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE chat_messages SET deleted_at = ?, updated_at = ?
		WHERE chat_id = ? AND deleted_at IS NULL`, now, now, id); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	return tx.Commit()
}

// ListChats returns one page of non-deleted chats.
func (s *Store) ListChats(ctx context.Context, filters ListFilters) (*ListPage[model.Chat], error) {
	filters = filters.Normalize()
	suffix, err := orderClause(filters)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chats WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, token_usage, created_at, updated_at, deleted_at
		FROM chats WHERE deleted_at IS NULL`+suffix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	page := &ListPage[model.Chat]{
		Data:        []model.Chat{},
		Total:       total,
		CurrentPage: filters.CurrentPage,
		PageSize:    filters.PageSize,
	}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		page.Data = append(page.Data, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return page, nil
}

// ListChatNames returns the names of all non-deleted chats. Used for
// auto-naming new chats.
func (s *Store) ListChatNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM chats WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return names, nil
}

// GetChatDetail returns a chat together with its live messages, each joined
// with its sender record, ordered by creation time ascending.
func (s *Store) GetChatDetail(ctx context.Context, id string) (*model.ChatDetail, error) {
	chat, err := s.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.ListChatMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	joined, err := s.joinSenders(ctx, messages)
	if err != nil {
		return nil, err
	}
	return &model.ChatDetail{Chat: *chat, Messages: joined}, nil
}

// joinSenders attaches sender records to messages. A sender that cannot be
// resolved (deleted bot, unknown id) leaves Sender nil rather than failing
// the whole read.
func (s *Store) joinSenders(ctx context.Context, messages []model.Message) ([]model.MessageWithSender, error) {
	users := make(map[string]*model.MessageSender)
	bots := make(map[string]*model.MessageSender)

	out := make([]model.MessageWithSender, 0, len(messages))
	for i := range messages {
		m := model.MessageWithSender{Message: messages[i]}
		switch m.SenderType {
		case model.SenderUser:
			sender, ok := users[m.SenderID]
			if !ok {
				if u, err := s.GetUser(ctx, m.SenderID); err == nil {
					sender = &model.MessageSender{
						Type:        model.SenderUser,
						ID:          u.ID,
						Name:        u.Name,
						DisplayName: u.DisplayName,
						AvatarURL:   u.AvatarURL,
					}
				}
				users[m.SenderID] = sender
			}
			m.Sender = sender
		case model.SenderBot:
			sender, ok := bots[m.SenderID]
			if !ok {
				if b, err := s.GetBot(ctx, m.SenderID); err == nil {
					sender = &model.MessageSender{
						Type:        model.SenderBot,
						ID:          b.ID,
						Name:        b.Name,
						DisplayName: b.DisplayName,
						AvatarURL:   b.AvatarURL,
					}
				}
				bots[m.SenderID] = sender
			}
			m.Sender = sender
		}
		out = append(out, m)
	}
	return out, nil
}
