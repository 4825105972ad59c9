// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/mia-tui/internal/model"
	"github.com/jeranaias/mia-tui/internal/store"
)

// =============================================================================
// CHAT CRUD
// =============================================================================

// defaultChatName is the base for auto-generated chat names.
const defaultChatName = "New Chat"

// CreateChat creates a chat. An empty name is auto-filled with the next
// free "New Chat N" continuation.
func (s *Service) CreateChat(ctx context.Context, name string) (*model.Chat, error) {
	if name == "" {
		names, err := s.store.ListChatNames(ctx)
		if err != nil {
			return nil, err
		}
		name = nextChatName(names)
	}

	c := &model.Chat{Name: name}
	if err := s.store.CreateChat(ctx, c); err != nil {
		return nil, err
	}
	s.notifyChatUpdated(c.ID)
	return c, nil
}

// nextChatName continues the "New Chat N" sequence past the highest suffix
// already in use. The bare "New Chat" counts as N=1.
func nextChatName(existing []string) string {
	max := 0
	for _, name := range existing {
		if name == defaultChatName {
			if max < 1 {
				max = 1
			}
			continue
		}
		rest, ok := strings.CutPrefix(name, defaultChatName+" ")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > max {
			max = n
		}
	}
	if max == 0 {
		return defaultChatName
	}
	return fmt.Sprintf("%s %d", defaultChatName, max+1)
}

// RenameChat sets a chat's name.
func (s *Service) RenameChat(ctx context.Context, chatID, name string) error {
	c, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return chatErr(err)
	}
	c.Name = name
	if err := s.store.UpdateChat(ctx, c); err != nil {
		return chatErr(err)
	}
	s.notifyChatUpdated(chatID)
	return nil
}

// DeleteChat soft-deletes a chat and its messages.
func (s *Service) DeleteChat(ctx context.Context, chatID string) error {
	if err := s.store.DeleteChat(ctx, chatID); err != nil {
		return chatErr(err)
	}
	s.notifyChatUpdated(chatID)
	return nil
}

// ListChats returns one page of chats.
func (s *Service) ListChats(ctx context.Context, filters store.ListFilters) (*store.ListPage[model.Chat], error) {
	return s.store.ListChats(ctx, filters)
}

// GetChatByID returns a chat with its messages and their sender records.
func (s *Service) GetChatByID(ctx context.Context, chatID string) (*model.ChatDetail, error) {
	detail, err := s.store.GetChatDetail(ctx, chatID)
	if err != nil {
		return nil, chatErr(err)
	}
	return detail, nil
}

// =============================================================================
// CURRENT USER
// =============================================================================

// GetCurrentUser returns the local user profile.
func (s *Service) GetCurrentUser(ctx context.Context) (*model.User, error) {
	return s.store.GetUser(ctx, model.DefaultUserID)
}

// UpdateCurrentUser updates the local user profile.
func (s *Service) UpdateCurrentUser(ctx context.Context, name, displayName, avatarURL string) (*model.User, error) {
	u, err := s.store.GetUser(ctx, model.DefaultUserID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		u.Name = name
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
	if avatarURL != "" {
		u.AvatarURL = avatarURL
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
