// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package bot

import (
	"fmt"

	"github.com/jeranaias/mia-tui/internal/model"
)

// New builds the runtime service for a bot based on its template id.
func New(b *model.Bot, client ProviderClient) (Service, error) {
	switch b.BotTemplateID {
	case model.BotTemplateOpenAIChat:
		return newChatService(b, client), nil
	case model.BotTemplateOpenAIImage:
		return newImageService(b, client), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTemplate, b.BotTemplateID)
	}
}
