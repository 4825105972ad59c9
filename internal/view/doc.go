// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package view keeps in-memory read projections of the record store for
// synchronous UI consumption: full chats by id, paginated chat lists keyed
// by their filters, and per-chat token counts.
//
// Views are refreshed wholesale by re-running the underlying query; there
// is no partial invalidation. The cache never writes to the store.
package view
