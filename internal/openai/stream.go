// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/mia-tui/internal/stream"
)

// =============================================================================
// STREAMING TYPES
// =============================================================================

// ChatCompletionChunk is a single chunk of a streaming chat completion.
type ChatCompletionChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the content from the first choice's delta.
func (c *ChatCompletionChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// IsDone returns true if the chunk carries a finish reason.
func (c *ChatCompletionChunk) IsDone() bool {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason != ""
	}
	return false
}

// StreamError is a failure during streaming, preserving any partial content
// received before the error.
type StreamError struct {
	Partial string // Content received before the error
	Err     error
}

func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next SSE event: data lines joined by newlines,
// terminated by a blank line. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
				return nil, io.EOF
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (event:, id:, retry:, comments)
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream performs a streaming chat completion request. Chunks are
// delivered through the returned stream; the whole request is bounded by
// the client's stream timeout, and expiry surfaces as a StreamError from
// Wait. Malformed chunks are skipped.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest) *stream.Stream[ChatCompletionChunk] {
	req.Stream = true

	return stream.New(ctx, func(ctx context.Context, emit func(ChatCompletionChunk)) error {
		if !c.IsConfigured() {
			return ErrNotConfigured
		}

		ctx, cancel := context.WithTimeout(ctx, c.streamTimeout)
		defer cancel()

		bodyBytes, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.endpoint+"/v1/chat/completions", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(httpReq)
		httpReq.Header.Set("Accept", "text/event-stream")
		httpReq.Header.Set("Cache-Control", "no-cache")

		resp, err := sharedStreamingClient.Do(httpReq)
		if err != nil {
			return &StreamError{Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := readResponse(resp)
			return c.handleErrorResponse(resp.StatusCode, body)
		}

		var accumulated strings.Builder
		if err := processStream(ctx, resp.Body, func(chunk ChatCompletionChunk) {
			accumulated.WriteString(chunk.GetContent())
			emit(chunk)
		}); err != nil {
			return &StreamError{Partial: accumulated.String(), Err: err}
		}
		return nil
	})
}

// processStream reads and dispatches the SSE stream until [DONE], a finish
// reason, EOF or context expiry.
func processStream(ctx context.Context, body io.Reader, callback func(ChatCompletionChunk)) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			// Body reads fail with the context error once the deadline
			// passes; prefer reporting that over the transport detail.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			continue
		}

		callback(chunk)

		if chunk.IsDone() {
			return nil
		}
	}
}
