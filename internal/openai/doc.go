// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package openai implements a client for OpenAI-compatible APIs.
//
// It covers the two endpoints the bot adapters need: streaming chat
// completions (SSE) and image generation. Any server speaking the OpenAI
// wire format works; the base URL is configurable.
package openai
