// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bot turns stored bot records into runtime services that can
// answer a conversation.
//
// A bot's template id selects its adapter: chat bots stream completions,
// image bots generate a single picture from the latest prompt. The Registry
// caches id and name lookups for the hot resolution path.
package bot
