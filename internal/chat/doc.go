// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the message orchestrator: the workflows that take
// a user-typed message, resolve the responding bot, stream its reply into a
// persisted placeholder message, and keep chat metadata current.
//
// Every message moves through the states wait_first -> loading -> ok|error.
// A reply placeholder starts out owned by the sentinel no-op bot and gets
// its real sender once resolution succeeds. Callers receive progress via
// the per-service notification callbacks.
package chat
