// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for mia.
//
// Configuration is read from ~/.mia/config.toml with built-in defaults and
// environment variable overrides (MIA_OPENAI_ENDPOINT, MIA_OPENAI_API_KEY).
package config
