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
// BOTS
// =============================================================================

const botColumns = `id, name, display_name, avatar_url, kind, description,
	bot_template_id, bot_template_params, created_at, updated_at, deleted_at`

func scanBot(row interface{ Scan(...any) error }) (*model.Bot, error) {
	var b model.Bot
	var params string
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64
	err := row.Scan(&b.ID, &b.Name, &b.DisplayName, &b.AvatarURL, &b.Kind,
		&b.Description, &b.BotTemplateID, &params, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if params != "" {
		if err := json.Unmarshal([]byte(params), &b.BotTemplateParams); err != nil {
			return nil, fmt.Errorf("bot %s: corrupt template params: %w", b.ID, err)
		}
	}
	b.CreatedAt = fromMillis(createdAt)
	b.UpdatedAt = fromMillis(updatedAt)
	b.DeletedAt = fromMillisPtr(deletedAt)
	return &b, nil
}

// CreateBot inserts a new bot. A zero ID is filled in.
func (s *Store) CreateBot(ctx context.Context, b *model.Bot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if b.ID == "" {
		b.ID = NewID("bot")
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	params, err := json.Marshal(b.BotTemplateParams)
	if err != nil {
		return fmt.Errorf("bot %s: encode template params: %w", b.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bots (id, name, display_name, avatar_url, kind, description,
			bot_template_id, bot_template_params, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.DisplayName, b.AvatarURL, b.Kind, b.Description,
		b.BotTemplateID, string(params), toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// GetBot returns the non-deleted bot with the given id.
func (s *Store) GetBot(ctx context.Context, id string) (*model.Bot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+botColumns+` FROM bots WHERE id = ? AND deleted_at IS NULL`, id)
	b, err := scanBot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return b, nil
}

// GetBotByName returns the non-deleted bot with the given name. An
// ambiguous name is reported as ErrNotUnique rather than picking a winner.
func (s *Store) GetBotByName(ctx context.Context, name string) (*model.Bot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+botColumns+` FROM bots WHERE name = ? AND deleted_at IS NULL LIMIT 2`, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var found *model.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		if found != nil {
			return nil, fmt.Errorf("bot name %q: %w", name, ErrNotUnique)
		}
		found = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if found == nil {
		return nil, fmt.Errorf("bot name %q: %w", name, ErrNotFound)
	}
	return found, nil
}

// UpdateBot updates a bot's configurable fields.
func (s *Store) UpdateBot(ctx context.Context, b *model.Bot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	params, err := json.Marshal(b.BotTemplateParams)
	if err != nil {
		return fmt.Errorf("bot %s: encode template params: %w", b.ID, err)
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE bots SET name = ?, display_name = ?, avatar_url = ?, kind = ?,
			description = ?, bot_template_id = ?, bot_template_params = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		b.Name, b.DisplayName, b.AvatarURL, b.Kind, b.Description,
		b.BotTemplateID, string(params), toMillis(now), b.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return fmt.Errorf("bot %s: %w", b.ID, ErrNotFound)
	}
	b.UpdatedAt = now
	return nil
}

// DeleteBot soft-deletes a bot.
func (s *Store) DeleteBot(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := toMillis(time.Now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE bots SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`, now, now, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return fmt.Errorf("bot %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountBotsWithName counts non-deleted bots named name, excluding excludeID.
// Used to enforce name uniqueness before create/update.
func (s *Store) CountBotsWithName(ctx context.Context, name, excludeID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bots
		WHERE name = ? AND id != ? AND deleted_at IS NULL`, name, excludeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

// ListBots returns one page of non-deleted bots.
func (s *Store) ListBots(ctx context.Context, filters ListFilters) (*ListPage[model.Bot], error) {
	filters = filters.Normalize()
	suffix, err := orderClause(filters)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bots WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+botColumns+` FROM bots WHERE deleted_at IS NULL`+suffix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	page := &ListPage[model.Bot]{
		Data:        []model.Bot{},
		Total:       total,
		CurrentPage: filters.CurrentPage,
		PageSize:    filters.PageSize,
	}
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		page.Data = append(page.Data, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return page, nil
}

// =============================================================================
// BOT TEMPLATES
// =============================================================================

// GetBotTemplate returns the non-deleted template with the given id.
func (s *Store) GetBotTemplate(ctx context.Context, id string) (*model.BotTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at, deleted_at
		FROM bot_templates WHERE id = ? AND deleted_at IS NULL`, id)

	var t model.BotTemplate
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64
	err := row.Scan(&t.ID, &t.Name, &t.Description, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bot template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	t.DeletedAt = fromMillisPtr(deletedAt)
	return &t, nil
}

// ListBotTemplates returns one page of non-deleted bot templates.
func (s *Store) ListBotTemplates(ctx context.Context, filters ListFilters) (*ListPage[model.BotTemplate], error) {
	filters = filters.Normalize()
	suffix, err := orderClause(filters)
	if err != nil {
		return nil, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bot_templates WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at, deleted_at
		FROM bot_templates WHERE deleted_at IS NULL`+suffix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	page := &ListPage[model.BotTemplate]{
		Data:        []model.BotTemplate{},
		Total:       total,
		CurrentPage: filters.CurrentPage,
		PageSize:    filters.PageSize,
	}
	for rows.Next() {
		var t model.BotTemplate
		var createdAt, updatedAt int64
		var deletedAt sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &createdAt, &updatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		t.CreatedAt = fromMillis(createdAt)
		t.UpdatedAt = fromMillis(updatedAt)
		t.DeletedAt = fromMillisPtr(deletedAt)
		page.Data = append(page.Data, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return page, nil
}
