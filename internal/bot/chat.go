// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bot

import (
	"context"

	"github.com/jeranaias/mia-tui/internal/model"
	"github.com/jeranaias/mia-tui/internal/openai"
	"github.com/jeranaias/mia-tui/internal/stream"
)

// DefaultChatModel is used when a bot's params carry no "model" entry.
const DefaultChatModel = "gpt-4o-mini"

// chatService streams chat completions for a conversation.
type chatService struct {
	bot    *model.Bot
	client ProviderClient
}

func newChatService(b *model.Bot, client ProviderClient) *chatService {
	return &chatService{bot: b, client: client}
}

func (s *chatService) Features() Features {
	return Features{History: true}
}

// SendMessage maps the conversation onto the wire roles and streams the
// completion. Each non-empty delta becomes one text reply fragment.
func (s *chatService) SendMessage(ctx context.Context, history []model.Message) (stream.Handle[Reply], error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	messages := make([]openai.ChatMessage, 0, len(history)+1)
	if prompt := s.bot.BotTemplateParams.InitPrompt(); prompt != "" {
		messages = append(messages, openai.NewSystemMessage(prompt))
	}
	for i := range history {
		m := &history[i]
		switch m.SenderType {
		case model.SenderUser:
			messages = append(messages, openai.NewUserMessage(m.Content))
		case model.SenderBot:
			messages = append(messages, openai.NewAssistantMessage(m.Content))
		default:
			messages = append(messages, openai.NewSystemMessage(m.Content))
		}
	}

	m, _ := s.bot.BotTemplateParams["model"].(string)
	if m == "" {
		m = DefaultChatModel
	}

	chunks := s.client.ChatStream(ctx, openai.ChatRequest{
		Model:    m,
		Messages: messages,
	})
	return stream.Map(chunks, func(c openai.ChatCompletionChunk) Reply {
		return Reply{Kind: ReplyText, Value: c.GetContent()}
	}), nil
}
