// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/jeranaias/mia-tui/internal/bot"
	"github.com/jeranaias/mia-tui/internal/model"
	"github.com/jeranaias/mia-tui/internal/store"
	"github.com/jeranaias/mia-tui/internal/stream"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrBotNotFound     = errors.New("bot not found")
	ErrMessageDeleted  = errors.New("message already deleted")

	// ErrNotBotMessage indicates regeneration targeted a message that was
	// not generated by a bot.
	ErrNotBotMessage = errors.New("message was not generated by a bot")

	// ErrDuplicateBotName indicates another live bot already uses the name.
	ErrDuplicateBotName = errors.New("bot name already in use")

	// ErrPredefinedBot indicates a built-in bot was targeted by a mutating
	// bot-management operation.
	ErrPredefinedBot = errors.New("predefined bot cannot be modified")
)

// =============================================================================
// SERVICE
// =============================================================================

// Callbacks are fire-and-forget UI notification hooks. Either may be nil.
type Callbacks struct {
	// OnMessageUpdated fires after any persisted change to a message,
	// including every streamed chunk.
	OnMessageUpdated func(chatID, messageID string)
	// OnChatUpdated fires after chat-level changes: new messages, chat
	// metadata writes, deletions.
	OnChatUpdated func(chatID string)
}

// Options configures a Service.
type Options struct {
	// DefaultBotName answers messages without a resolvable @mention.
	DefaultBotName string
	// HistoryTokenLimit caps the estimated token count of the outbound
	// conversation history. Zero means unlimited.
	HistoryTokenLimit int
	Callbacks         Callbacks
}

// Service owns the send/regenerate/auto-reply workflows and the plain CRUD
// operations around chats, messages, bots and the local user.
type Service struct {
	store             *store.Store
	registry          *bot.Registry
	provider          bot.ProviderClient
	defaultBotName    string
	historyTokenLimit int
	callbacks         Callbacks

	// active tracks in-flight reply streams by placeholder message id so
	// StopGenerateMessage can abort them.
	mu     sync.Mutex
	active map[string]stream.Handle[bot.Reply]
}

// NewService creates the orchestrator.
func NewService(st *store.Store, registry *bot.Registry, provider bot.ProviderClient, opts Options) *Service {
	if opts.DefaultBotName == "" {
		opts.DefaultBotName = "chatgpt"
	}
	return &Service{
		store:             st,
		registry:          registry,
		provider:          provider,
		defaultBotName:    opts.DefaultBotName,
		historyTokenLimit: opts.HistoryTokenLimit,
		callbacks:         opts.Callbacks,
		active:            make(map[string]stream.Handle[bot.Reply]),
	}
}

// trimHistory drops the oldest messages until the estimated token count of
// the remainder fits the configured limit. The newest message always
// survives so the bot has something to answer.
func (s *Service) trimHistory(history []model.Message) []model.Message {
	if s.historyTokenLimit <= 0 {
		return history
	}
	for len(history) > 1 && model.EstimateHistoryTokens(history) > s.historyTokenLimit {
		history = history[1:]
	}
	return history
}

func (s *Service) notifyMessageUpdated(chatID, messageID string) {
	if s.callbacks.OnMessageUpdated != nil {
		s.callbacks.OnMessageUpdated(chatID, messageID)
	}
}

func (s *Service) notifyChatUpdated(chatID string) {
	if s.callbacks.OnChatUpdated != nil {
		s.callbacks.OnChatUpdated(chatID)
	}
}

// refreshTokenUsage recomputes a chat's token usage from the estimated
// token counts of its live history. Best-effort; callers treat failures as
// non-fatal since usage is advisory.
func (s *Service) refreshTokenUsage(ctx context.Context, chatID string) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return
	}
	history, err := s.store.History(ctx, chatID, nil)
	if err != nil {
		return
	}

	var usage model.TokenUsage
	for i := range history {
		t := history[i].EstimateTokens()
		if history[i].SenderType == model.SenderBot {
			usage.CompletionTokens += t
		} else {
			usage.PromptTokens += t
		}
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	chat.TokenUsage = usage
	if err := s.store.UpdateChat(ctx, chat); err != nil {
		return
	}
	s.notifyChatUpdated(chatID)
}
