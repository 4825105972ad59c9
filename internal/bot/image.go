// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/jeranaias/mia-tui/internal/model"
	"github.com/jeranaias/mia-tui/internal/openai"
	"github.com/jeranaias/mia-tui/internal/stream"
	"github.com/jeranaias/mia-tui/internal/util"
)

// imageService generates one image from the latest prompt. Conversation
// context beyond the last message is not used.
type imageService struct {
	bot    *model.Bot
	client ProviderClient
}

func newImageService(b *model.Bot, client ProviderClient) *imageService {
	return &imageService{bot: b, client: client}
}

func (s *imageService) Features() Features {
	return Features{History: false}
}

// SendMessage takes the last message as the prompt, with any leading
// @mention of the bot stripped, and yields a single image reply.
func (s *imageService) SendMessage(ctx context.Context, history []model.Message) (stream.Handle[Reply], error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	last := history[len(history)-1]
	prompt := last.Content
	if prefix := util.ExtractBotNamePrefix(prompt); prefix.Name != "" {
		prompt = prefix.TrimmedContent
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyHistory
	}

	size, _ := s.bot.BotTemplateParams["size"].(string)

	return stream.New(ctx, func(ctx context.Context, emit func(Reply)) error {
		resp, err := s.client.GenerateImages(ctx, openai.ImagesRequest{
			Prompt: prompt,
			N:      1,
			Size:   size,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return errors.New("no image in response")
		}
		d := resp.Data[0]
		if d.URL != "" {
			emit(Reply{Kind: ReplyImageURL, Value: d.URL})
		} else {
			emit(Reply{Kind: ReplyImageB64, Value: d.B64JSON})
		}
		return nil
	}), nil
}
