// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// =============================================================================
// BOT MENTION EXTRACTION
// =============================================================================

// botNamePattern matches an @-mention token. Bot names may contain letters,
// digits, '-', '_', '.' and '$'.
var botNamePattern = regexp.MustCompile(`@([-_.$0-9a-zA-Z]+)`)

// BotNamePrefix is the result of scanning message content for a bot mention.
type BotNamePrefix struct {
	// Name is the mentioned bot name, or "" when no mention was found.
	Name string

	// Content is the original content, unchanged.
	Content string

	// TrimmedContent is the content with the mention token removed, suitable
	// for use as a prompt. Equal to Content when no mention was found.
	TrimmedContent string
}

// ExtractBotNamePrefix finds the first bot mention in content.
//
// A mention only counts when the '@' sits at the start of the (left-trimmed)
// content or immediately after a sentence boundary: whitespace or
// sentence-terminating punctuation. "a@b" is an email-like token, not a
// mention.
func ExtractBotNamePrefix(content string) BotNamePrefix {
	trimmed := strings.TrimLeftFunc(content, unicode.IsSpace)

	for _, loc := range botNamePattern.FindAllStringSubmatchIndex(trimmed, -1) {
		start, end := loc[0], loc[1]
		if start > 0 {
			prev, _ := utf8.DecodeLastRuneInString(trimmed[:start])
			if !isSentenceBoundary(prev) {
				continue
			}
		}

		name := trimmed[loc[2]:loc[3]]
		before := trimmed[:start]
		after := strings.TrimLeft(trimmed[end:], " \t")

		return BotNamePrefix{
			Name:           name,
			Content:        content,
			TrimmedContent: before + after,
		}
	}

	return BotNamePrefix{
		Name:           "",
		Content:        content,
		TrimmedContent: content,
	}
}

// isSentenceBoundary reports whether r terminates a sentence, so that a
// mention directly after it is recognized.
func isSentenceBoundary(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', '!', '?', ',', ';', ':',
		'。', '！', '？', '，', '；', '：', '…':
		// CJK full stop, full-width !, ?, comma, semicolon, colon, ellipsis.
		return true
	}
	return false
}
