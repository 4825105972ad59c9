// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// WELL-KNOWN IDS
// =============================================================================

// Well-known record ids. These are created by the store's seed step and are
// stable across installations.
const (
	// DefaultUserID is the id of the single local user.
	DefaultUserID = "_user"

	// NopBotID is the sentinel bot assigned to a reply placeholder before
	// the real responding bot has been resolved.
	NopBotID = "_nop"

	// NopBotTemplateID is the template of the sentinel bot.
	NopBotTemplateID = "_nop"

	// Predefined bot ids.
	BotIDChatGPT = "_chatgpt"
	BotIDDalle   = "_dalle"

	// Bot template ids. Each template id selects a runtime adapter.
	BotTemplateOpenAIChat  = "_openai-chat"
	BotTemplateOpenAIImage = "_openai-image"
)

// PredefinedBotIDs lists bots that cannot be modified or deleted through the
// normal bot-management paths.
var PredefinedBotIDs = map[string]bool{
	BotIDChatGPT: true,
	BotIDDalle:   true,
	NopBotID:     true,
}

// PredefinedBotTemplateIDs lists the built-in bot templates.
var PredefinedBotTemplateIDs = map[string]bool{
	BotTemplateOpenAIChat:  true,
	BotTemplateOpenAIImage: true,
	NopBotTemplateID:       true,
}

// IsPredefinedBot reports whether id belongs to a built-in bot.
func IsPredefinedBot(id string) bool {
	return PredefinedBotIDs[id]
}

// =============================================================================
// USER
// =============================================================================

// User is the local profile record. Exactly one user with DefaultUserID
// exists per installation.
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	AvatarURL   string     `json:"avatar_url"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// =============================================================================
// BOT / BOT TEMPLATE
// =============================================================================

// BotTemplateParams holds per-bot configuration interpreted by the runtime
// adapter selected by the bot's template (for example an initial system
// prompt for chat bots). Stored as a JSON object.
type BotTemplateParams map[string]any

// InitPrompt returns the configured persona prompt, if any.
func (p BotTemplateParams) InitPrompt() string {
	if p == nil {
		return ""
	}
	s, _ := p["init_prompt"].(string)
	return s
}

// Bot is a configured conversational responder backed by a runtime adapter.
type Bot struct {
	ID          string `json:"id"`
	// Name is unique among non-deleted bots and is what @-mentions resolve.
	Name              string            `json:"name"`
	DisplayName       string            `json:"display_name"`
	AvatarURL         string            `json:"avatar_url"`
	Kind              string            `json:"kind"`
	Description       string            `json:"description"`
	BotTemplateID     string            `json:"bot_template_id"`
	BotTemplateParams BotTemplateParams `json:"bot_template_params"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         *time.Time        `json:"deleted_at,omitempty"`
}

// BotTemplate identifies which runtime adapter implementation handles a bot.
type BotTemplate struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// =============================================================================
// CHAT
// =============================================================================

// TokenUsage tracks the token consumption attributed to a chat.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Chat is a named conversation thread owning an ordered set of messages.
type Chat struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	TokenUsage TokenUsage `json:"token_usage"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// ChatDetail is a chat together with its (non-deleted) messages, each joined
// with its sender record, ordered by creation time ascending.
type ChatDetail struct {
	Chat
	Messages []MessageWithSender `json:"messages"`
}
