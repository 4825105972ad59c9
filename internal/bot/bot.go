// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bot

import (
	"context"
	"errors"

	"github.com/jeranaias/mia-tui/internal/model"
	"github.com/jeranaias/mia-tui/internal/openai"
	"github.com/jeranaias/mia-tui/internal/stream"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnsupportedTemplate indicates a bot references a template with no
	// runtime adapter.
	ErrUnsupportedTemplate = errors.New("unsupported bot template")

	// ErrEmptyHistory indicates an adapter was asked to reply to nothing.
	ErrEmptyHistory = errors.New("empty conversation history")
)

// =============================================================================
// REPLY
// =============================================================================

// ReplyKind distinguishes the payload of a Reply.
type ReplyKind string

const (
	ReplyText     ReplyKind = "text"
	ReplyImageURL ReplyKind = "image_url"
	ReplyImageB64 ReplyKind = "image_b64"
)

// Reply is one streamed fragment of a bot's answer. Text replies are
// appended to the message; image replies reference or inline a picture.
type Reply struct {
	Kind  ReplyKind
	Value string
}

// =============================================================================
// SERVICE
// =============================================================================

// Features describes what an adapter supports.
type Features struct {
	// History reports whether the adapter consumes the whole conversation
	// or only the latest message.
	History bool
}

// Service is the runtime face of a bot: Send a conversation, stream back
// reply fragments.
type Service interface {
	Features() Features
	SendMessage(ctx context.Context, history []model.Message) (stream.Handle[Reply], error)
}

// ProviderClient is the slice of the API client the adapters use. Satisfied
// by *openai.Client.
type ProviderClient interface {
	ChatStream(ctx context.Context, req openai.ChatRequest) *stream.Stream[openai.ChatCompletionChunk]
	GenerateImages(ctx context.Context, req openai.ImagesRequest) (*openai.ImagesResponse, error)
}
