// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/mia-tui/internal/model"
)

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, display_name, avatar_url, created_at, updated_at, deleted_at
		FROM users WHERE id = ? AND deleted_at IS NULL`, id)

	var u model.User
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64
	err := row.Scan(&u.ID, &u.Name, &u.DisplayName, &u.AvatarURL, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	u.DeletedAt = fromMillisPtr(deletedAt)
	return &u, nil
}

// UpdateUser updates the user's profile fields.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = ?, display_name = ?, avatar_url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		u.Name, u.DisplayName, u.AvatarURL, toMillis(now), u.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	u.UpdatedAt = now
	return nil
}
