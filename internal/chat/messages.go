// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"time"
)

// MessageUpdate describes a user edit to a message. Nil/false fields leave
// the corresponding state untouched.
type MessageUpdate struct {
	// Content replaces the message content when non-nil.
	Content *string
	// ToggleIgnore flips whether the message is excluded from outbound
	// history.
	ToggleIgnore bool
	// ToggleCollapse flips the collapsed presentation flag.
	ToggleCollapse bool
}

// UpdateMessage applies a user edit. Content and ignore changes trigger a
// token-usage recomputation for the owning chat.
func (s *Service) UpdateMessage(ctx context.Context, messageID string, upd MessageUpdate) error {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return messageErr(err)
	}
	if m.DeletedAt != nil {
		return fmt.Errorf("message %s: %w", messageID, ErrMessageDeleted)
	}

	affectsHistory := false
	if upd.Content != nil {
		m.Content = *upd.Content
		affectsHistory = true
	}
	if upd.ToggleIgnore {
		if m.IgnoreAt == nil {
			now := time.Now()
			m.IgnoreAt = &now
		} else {
			m.IgnoreAt = nil
		}
		affectsHistory = true
	}
	if upd.ToggleCollapse {
		m.UI.Collapsed = !m.UI.Collapsed
	}

	if err := s.store.UpdateMessage(ctx, m); err != nil {
		return messageErr(err)
	}
	s.notifyMessageUpdated(m.ChatID, m.ID)

	if affectsHistory {
		s.refreshTokenUsage(ctx, m.ChatID)
	}
	return nil
}

// DeleteMessage soft-deletes a message and refreshes the chat's usage.
func (s *Service) DeleteMessage(ctx context.Context, messageID string) error {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return messageErr(err)
	}
	if m.DeletedAt != nil {
		return fmt.Errorf("message %s: %w", messageID, ErrMessageDeleted)
	}

	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		return messageErr(err)
	}
	s.notifyChatUpdated(m.ChatID)
	s.refreshTokenUsage(ctx, m.ChatID)
	return nil
}
