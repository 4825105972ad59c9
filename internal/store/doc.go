// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides SQLite-backed persistence for users, bots, bot
// templates, chats and chat messages.
//
// All deletes are soft: rows gain a deleted_at timestamp and are excluded
// from reads. Message creation timestamps are strictly increasing within a
// chat so that created_at is a total order over a conversation.
package store
