// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the persisted record types for the chat client:
// users, bots, bot templates, chats and chat messages.
//
// Every record is soft-deleted via an optional DeletedAt timestamp; messages
// carry an additional IgnoreAt marker that removes them from outbound
// conversation history without deleting them. A small set of well-known
// record ids (the current user, the predefined bots and bot templates, and
// the sentinel no-op bot) is defined here and seeded by the store.
package model
