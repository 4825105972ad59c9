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
	"github.com/jeranaias/mia-tui/internal/util"
)

// =============================================================================
// SEND / REGENERATE / AUTO-REPLY
// =============================================================================

// SendNewMessage appends content as a user message and streams the bot's
// reply into a fresh placeholder message. The responding bot comes from a
// leading @mention on the new message, falling back to the configured
// default bot. Blocks until the reply stream finishes.
func (s *Service) SendNewMessage(ctx context.Context, chatID, content string) error {
	if _, err := s.store.GetChat(ctx, chatID); err != nil {
		return chatErr(err)
	}

	history, err := s.store.History(ctx, chatID, nil)
	if err != nil {
		return err
	}

	userMsg := &model.Message{
		ChatID:        chatID,
		Content:       content,
		SenderType:    model.SenderUser,
		SenderID:      model.DefaultUserID,
		LoadingStatus: model.StatusOK,
	}
	placeholder := &model.Message{
		ChatID:        chatID,
		SenderType:    model.SenderBot,
		SenderID:      model.NopBotID,
		LoadingStatus: model.StatusWaitFirst,
	}
	// One transaction: a user message must never land without its reply
	// placeholder.
	if err := s.store.CreateMessagePair(ctx, userMsg, placeholder); err != nil {
		return err
	}
	s.notifyChatUpdated(chatID)

	history = append(history, *userMsg)
	return s.generate(ctx, placeholder, history, true)
}

// RegenerateMessage re-runs generation for a bot message in place, keeping
// its id and chat position. Regenerating a user message targets the next
// message instead, creating a fresh placeholder when the user message is
// the last one in the chat.
func (s *Service) RegenerateMessage(ctx context.Context, chatID, messageID string) error {
	target, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return messageErr(err)
	}
	if target.ChatID != chatID {
		return fmt.Errorf("message %s not in chat %s: %w", messageID, chatID, ErrMessageNotFound)
	}

	if target.SenderType == model.SenderUser {
		next, err := s.store.NextMessageAfter(ctx, chatID, target.CreatedAt)
		switch {
		case err == nil:
			target = next
		case errors.Is(err, store.ErrNotFound):
			target = &model.Message{
				ChatID:        chatID,
				SenderType:    model.SenderBot,
				SenderID:      model.NopBotID,
				LoadingStatus: model.StatusWaitFirst,
			}
			if err := s.store.CreateMessage(ctx, target); err != nil {
				return err
			}
			s.notifyChatUpdated(chatID)
		default:
			return err
		}
	}

	if target.DeletedAt != nil {
		return fmt.Errorf("message %s: %w", target.ID, ErrMessageDeleted)
	}
	// The advance from a user message may land on another user message;
	// only bot output is ever regenerated.
	if target.SenderType != model.SenderBot {
		return fmt.Errorf("message %s: %w", target.ID, ErrNotBotMessage)
	}

	// Reset in place so the id and position survive.
	target.Content = ""
	target.LoadingStatus = model.StatusWaitFirst
	if err := s.store.UpdateMessage(ctx, target); err != nil {
		return messageErr(err)
	}
	s.notifyMessageUpdated(chatID, target.ID)

	history, err := s.store.History(ctx, chatID, &target.CreatedAt)
	if err != nil {
		return err
	}
	return s.generate(ctx, target, history, true)
}

// AutoReplyMessage creates a fresh placeholder and has the default bot
// reply to the conversation as it stands. @mentions are ignored.
func (s *Service) AutoReplyMessage(ctx context.Context, chatID string) error {
	if _, err := s.store.GetChat(ctx, chatID); err != nil {
		return chatErr(err)
	}

	history, err := s.store.History(ctx, chatID, nil)
	if err != nil {
		return err
	}

	placeholder := &model.Message{
		ChatID:        chatID,
		SenderType:    model.SenderBot,
		SenderID:      model.NopBotID,
		LoadingStatus: model.StatusWaitFirst,
	}
	if err := s.store.CreateMessage(ctx, placeholder); err != nil {
		return err
	}
	s.notifyChatUpdated(chatID)

	return s.generate(ctx, placeholder, history, false)
}

// StopGenerateMessage aborts the in-flight stream feeding a message, if
// any, and forces the message to a terminal ok status unless it already
// ended in error.
func (s *Service) StopGenerateMessage(ctx context.Context, messageID string) error {
	s.mu.Lock()
	if h, ok := s.active[messageID]; ok {
		h.Abort()
	}
	s.mu.Unlock()

	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return messageErr(err)
	}
	if m.DeletedAt != nil {
		return fmt.Errorf("message %s: %w", messageID, ErrMessageDeleted)
	}
	if m.LoadingStatus != model.StatusError && m.LoadingStatus != model.StatusOK {
		m.LoadingStatus = model.StatusOK
		if err := s.store.UpdateMessage(ctx, m); err != nil {
			return messageErr(err)
		}
		s.notifyMessageUpdated(m.ChatID, m.ID)
	}
	return nil
}

// =============================================================================
// GENERATION CORE
// =============================================================================

// generate resolves the responding bot, fixes the placeholder's sender,
// streams the reply into it, and settles the terminal status. history is
// the outbound conversation, newest last; useMention enables @mention
// resolution from the last history message.
func (s *Service) generate(ctx context.Context, placeholder *model.Message, history []model.Message, useMention bool) error {
	history = s.trimHistory(history)

	b, err := s.resolveBot(ctx, placeholder, history, useMention)
	if err != nil {
		s.markError(ctx, placeholder)
		return err
	}

	svc, err := bot.New(b, s.provider)
	if err != nil {
		s.markError(ctx, placeholder)
		return err
	}

	placeholder.SenderType = model.SenderBot
	placeholder.SenderID = b.ID
	if err := s.store.UpdateMessage(ctx, placeholder); err != nil {
		return messageErr(err)
	}
	s.notifyMessageUpdated(placeholder.ChatID, placeholder.ID)

	handle, err := svc.SendMessage(ctx, history)
	if err != nil {
		s.markError(ctx, placeholder)
		return err
	}

	s.mu.Lock()
	s.active[placeholder.ID] = handle
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.active, placeholder.ID)
		s.mu.Unlock()
	}()

	if err := handle.OnData(func(r bot.Reply) {
		switch r.Kind {
		case bot.ReplyText:
			placeholder.Content += r.Value
		case bot.ReplyImageURL:
			placeholder.Content += fmt.Sprintf("![image](%s)", r.Value)
		case bot.ReplyImageB64:
			placeholder.Content += fmt.Sprintf("![image](data:image/png;base64,%s)", r.Value)
		}
		if placeholder.LoadingStatus == model.StatusWaitFirst {
			placeholder.LoadingStatus = model.StatusLoading
		}
		// Chunk writes are best-effort; the terminal write below settles
		// the final content and status.
		_ = s.store.UpdateMessage(ctx, placeholder)
		s.notifyMessageUpdated(placeholder.ChatID, placeholder.ID)
	}); err != nil {
		s.markError(ctx, placeholder)
		return err
	}

	// Both completion and user abort settle as ok; abort is not an error.
	if _, err := handle.Wait(); err != nil {
		s.markError(ctx, placeholder)
		return fmt.Errorf("bot reply failed: %w", err)
	}

	placeholder.LoadingStatus = model.StatusOK
	if err := s.store.UpdateMessage(ctx, placeholder); err != nil {
		return messageErr(err)
	}
	s.notifyMessageUpdated(placeholder.ChatID, placeholder.ID)

	s.refreshTokenUsage(ctx, placeholder.ChatID)
	return nil
}

// resolveBot picks the responding bot for a placeholder: an already-fixed
// sender wins, then a leading @mention on the newest message, then the
// configured default bot.
func (s *Service) resolveBot(ctx context.Context, placeholder *model.Message, history []model.Message, useMention bool) (*model.Bot, error) {
	if placeholder.SenderID != "" && placeholder.SenderID != model.NopBotID {
		b, err := s.registry.ResolveByID(ctx, placeholder.SenderID)
		if err != nil {
			return nil, botErr(err, placeholder.SenderID)
		}
		return b, nil
	}

	if useMention && len(history) > 0 {
		if prefix := util.ExtractBotNamePrefix(history[len(history)-1].Content); prefix.Name != "" {
			b, err := s.registry.ResolveByName(ctx, prefix.Name)
			if err != nil {
				return nil, botErr(err, prefix.Name)
			}
			return b, nil
		}
	}

	b, err := s.registry.ResolveByName(ctx, s.defaultBotName)
	if err != nil {
		return nil, botErr(err, s.defaultBotName)
	}
	return b, nil
}

// markError forces a placeholder into the error state. Best-effort: the
// caller is already returning the original failure.
func (s *Service) markError(ctx context.Context, placeholder *model.Message) {
	placeholder.LoadingStatus = model.StatusError
	_ = s.store.UpdateMessage(ctx, placeholder)
	s.notifyMessageUpdated(placeholder.ChatID, placeholder.ID)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func chatErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%v: %w", err, ErrChatNotFound)
	}
	return err
}

func messageErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%v: %w", err, ErrMessageNotFound)
	}
	return err
}

func botErr(err error, ref string) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrNotUnique) {
		return fmt.Errorf("%s: %w", ref, ErrBotNotFound)
	}
	return err
}
