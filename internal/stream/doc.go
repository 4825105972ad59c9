// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream provides the single-consumer stream handle used between the
// provider API client, the bot runtime adapters and the message
// orchestrator.
//
// A handle carries incrementally produced values to exactly one consumer.
// Values produced before the consumer registers are buffered and flushed in
// order on registration. The handle is abortable: Abort cancels the
// producer's context, and Wait then resolves with (false, nil) so that a
// user-initiated stop is distinguishable from a provider failure.
package stream
