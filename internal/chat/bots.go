// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/mia-tui/internal/bot"
	"github.com/jeranaias/mia-tui/internal/model"
	"github.com/jeranaias/mia-tui/internal/store"
)

// =============================================================================
// BOT MANAGEMENT
// =============================================================================

// checkBotNameValid enforces name uniqueness among live bots, excluding the
// bot being edited.
func (s *Service) checkBotNameValid(ctx context.Context, name, excludeID string) error {
	if name == "" {
		return fmt.Errorf("bot name must not be empty: %w", ErrDuplicateBotName)
	}
	n, err := s.store.CountBotsWithName(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%q: %w", name, ErrDuplicateBotName)
	}
	return nil
}

// CreateBot validates and creates a bot, then drops any stale registry
// cache entries for its name.
func (s *Service) CreateBot(ctx context.Context, b *model.Bot) error {
	if err := s.checkBotNameValid(ctx, b.Name, ""); err != nil {
		return err
	}
	if _, err := s.store.GetBotTemplate(ctx, b.BotTemplateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", bot.ErrUnsupportedTemplate, b.BotTemplateID)
		}
		return err
	}

	if err := s.store.CreateBot(ctx, b); err != nil {
		return err
	}
	s.registry.Invalidate(b.ID, b.Name)
	return nil
}

// UpdateBot validates and applies a bot edit. Built-in bots are immutable.
func (s *Service) UpdateBot(ctx context.Context, b *model.Bot) error {
	if model.IsPredefinedBot(b.ID) {
		return fmt.Errorf("%s: %w", b.ID, ErrPredefinedBot)
	}
	if err := s.checkBotNameValid(ctx, b.Name, b.ID); err != nil {
		return err
	}

	old, err := s.store.GetBot(ctx, b.ID)
	if err != nil {
		return botErr(err, b.ID)
	}

	if err := s.store.UpdateBot(ctx, b); err != nil {
		return botErr(err, b.ID)
	}
	// Invalidate under the pre-update name; a rename leaves the old name
	// keyed in the cache otherwise.
	s.registry.Invalidate(b.ID, old.Name)
	return nil
}

// DeleteBot soft-deletes a bot. Built-in bots cannot be deleted.
func (s *Service) DeleteBot(ctx context.Context, id string) error {
	if model.IsPredefinedBot(id) {
		return fmt.Errorf("%s: %w", id, ErrPredefinedBot)
	}

	old, err := s.store.GetBot(ctx, id)
	if err != nil {
		return botErr(err, id)
	}
	if err := s.store.DeleteBot(ctx, id); err != nil {
		return botErr(err, id)
	}
	s.registry.Invalidate(id, old.Name)
	return nil
}

// GetBot returns a bot by id.
func (s *Service) GetBot(ctx context.Context, id string) (*model.Bot, error) {
	b, err := s.store.GetBot(ctx, id)
	if err != nil {
		return nil, botErr(err, id)
	}
	return b, nil
}

// ListBots returns one page of bots.
func (s *Service) ListBots(ctx context.Context, filters store.ListFilters) (*store.ListPage[model.Bot], error) {
	return s.store.ListBots(ctx, filters)
}

// ListBotTemplates returns one page of bot templates.
func (s *Service) ListBotTemplates(ctx context.Context, filters store.ListFilters) (*store.ListPage[model.BotTemplate], error) {
	return s.store.ListBotTemplates(ctx, filters)
}
