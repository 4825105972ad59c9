// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"time"

	"github.com/jeranaias/mia-tui/internal/model"
)

// seed creates the built-in records every installation carries: the local
// user, the runtime adapter templates, and the predefined bots. Template
// and bot definitions are upserted so newer builds can revise them; the
// user row is created once and left alone afterwards.
func (s *Store) seed() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := toMillis(time.Now())

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO users (id, name, display_name, created_at, updated_at)
		VALUES (?, 'me', 'Me', ?, ?)`,
		model.DefaultUserID, now, now); err != nil {
		return err
	}

	templates := []struct {
		id, name, description string
	}{
		{model.BotTemplateOpenAIChat, "OpenAI Chat", "Streaming chat completions against an OpenAI-compatible API"},
		{model.BotTemplateOpenAIImage, "OpenAI Image", "Image generation against an OpenAI-compatible API"},
		{model.NopBotTemplateID, "Nop", "Placeholder template that never responds"},
	}
	for _, t := range templates {
		if _, err := tx.Exec(`
			INSERT INTO bot_templates (id, name, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				description = excluded.description,
				updated_at = excluded.updated_at,
				deleted_at = NULL`,
			t.id, t.name, t.description, now, now); err != nil {
			return err
		}
	}

	bots := []struct {
		id, name, displayName, description, templateID string
	}{
		{model.BotIDChatGPT, "chatgpt", "ChatGPT", "General-purpose chat assistant", model.BotTemplateOpenAIChat},
		{model.BotIDDalle, "dalle", "DALL-E", "Image generation from a text prompt", model.BotTemplateOpenAIImage},
		{model.NopBotID, "nop", "...", "Placeholder sender for pending replies", model.NopBotTemplateID},
	}
	for _, b := range bots {
		if _, err := tx.Exec(`
			INSERT INTO bots (id, name, display_name, description, bot_template_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				display_name = excluded.display_name,
				description = excluded.description,
				bot_template_id = excluded.bot_template_id,
				updated_at = excluded.updated_at,
				deleted_at = NULL`,
			b.id, b.name, b.displayName, b.description, b.templateID, now, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}
