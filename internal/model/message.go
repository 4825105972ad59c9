// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// SenderType identifies who produced a message.
type SenderType string

const (
	SenderUser SenderType = "user"
	SenderBot  SenderType = "bot"
)

// String returns the string representation of the sender type.
func (s SenderType) String() string {
	return string(s)
}

// =============================================================================
// LOADING STATUS
// =============================================================================

// LoadingStatus is the per-message generation state machine:
//
//	wait_first -> loading -> ok|error
//
// wait_first may transition directly to ok or error when no streamed chunk
// ever arrives. The only backward transition is an explicit reset to
// wait_first when a message is regenerated.
type LoadingStatus string

const (
	StatusWaitFirst LoadingStatus = "wait_first"
	StatusLoading   LoadingStatus = "loading"
	StatusOK        LoadingStatus = "ok"
	StatusError     LoadingStatus = "error"
)

// String returns the string representation of the status.
func (s LoadingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is a terminal state.
func (s LoadingStatus) IsTerminal() bool {
	return s == StatusOK || s == StatusError
}

// =============================================================================
// MESSAGE
// =============================================================================

// MessageUI holds per-message presentation flags persisted alongside the
// message content.
type MessageUI struct {
	Collapsed bool `json:"collapsed"`
}

// Message is a single entry in a chat.
type Message struct {
	ID     string `json:"id"`
	ChatID string `json:"chat_id"`

	Content    string     `json:"content"`
	SenderType SenderType `json:"sender_type"`
	SenderID   string     `json:"sender_id"`

	ActionsHidden bool          `json:"actions_hidden"`
	LoadingStatus LoadingStatus `json:"loading_status"`

	// IgnoreAt excludes the message from outbound conversation history
	// without deleting it.
	IgnoreAt *time.Time `json:"ignore_at,omitempty"`

	UI MessageUI `json:"ui"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsLoading reports whether the message is still being generated.
func (m *Message) IsLoading() bool {
	return m.LoadingStatus == StatusLoading || m.LoadingStatus == StatusWaitFirst
}

// InHistory reports whether the message is eligible for outbound
// conversation history: completed, not ignored, not deleted.
func (m *Message) InHistory() bool {
	return m.LoadingStatus == StatusOK && m.IgnoreAt == nil && m.DeletedAt == nil
}

// EstimateTokens gives a rough estimate of the message's token count.
// Uses the approximation of ~4 characters per token.
func (m *Message) EstimateTokens() int {
	return (len(m.Content) + 3) / 4
}

// =============================================================================
// SENDER JOIN
// =============================================================================

// MessageSender is the denormalized sender record attached to a message for
// display: either the local user or the responding bot.
type MessageSender struct {
	Type        SenderType `json:"type"`
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	AvatarURL   string     `json:"avatar_url"`
}

// MessageWithSender is a message joined with its sender record. Sender may
// be nil when the sender record could not be resolved.
type MessageWithSender struct {
	Message
	Sender *MessageSender `json:"sender,omitempty"`
}

// EstimateHistoryTokens sums the estimated token counts of the messages that
// qualify for outbound history.
func EstimateHistoryTokens(messages []Message) int {
	total := 0
	for i := range messages {
		if messages[i].InHistory() {
			total += messages[i].EstimateTokens()
		}
	}
	return total
}
