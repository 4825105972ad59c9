// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/mia-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete mia configuration.
type Config struct {
	// API contains OpenAI-compatible provider settings.
	API APIConfig `toml:"api"`

	// Chat contains conversation behavior settings.
	Chat ChatConfig `toml:"chat"`

	// Storage contains local persistence settings.
	Storage StorageConfig `toml:"storage"`
}

// APIConfig contains OpenAI-compatible provider configuration.
type APIConfig struct {
	// Endpoint is the base URL of the OpenAI-compatible API.
	Endpoint string `toml:"endpoint"`
	// APIKey is the bearer token sent with every request.
	APIKey string `toml:"api_key"`
}

// ChatConfig contains conversation behavior configuration.
type ChatConfig struct {
	// DefaultBotName is the bot that answers messages without an @mention.
	DefaultBotName string `toml:"default_bot_name"`
	// HistoryTokenLimit caps the estimated token count of history sent to a bot.
	// Zero means no limit.
	HistoryTokenLimit int `toml:"history_token_limit"`
}

// StorageConfig contains local persistence configuration.
type StorageConfig struct {
	// DatabasePath is the SQLite database file (empty = ~/.mia/mia.db).
	DatabasePath string `toml:"database_path"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Endpoint: "https://api.openai.com",
		},
		Chat: ChatConfig{
			DefaultBotName: "chatgpt",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the mia configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mia"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// DatabasePath resolves the SQLite database path, falling back to the
// default location inside the config directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.DatabasePath != "" {
		return c.Storage.DatabasePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mia.db"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from ~/.mia/config.toml, falling back to defaults
// when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadFile(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads TOML configuration from the given path into cfg.
func LoadFile(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Save saves the configuration to the default TOML config path.
// SECURITY: Config files are written 0600 since they hold API keys.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(cfg, path)
}

// SaveFile saves the configuration to a TOML file with 0600 permissions.
// The write is atomic so a crash mid-save cannot corrupt the config.
func SaveFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# mia configuration file")
	fmt.Fprintln(&buf, "# Generated by mia - edit with care")
	fmt.Fprintln(&buf, "")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES AND VALIDATION
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	if endpoint := os.Getenv("MIA_OPENAI_ENDPOINT"); endpoint != "" {
		c.API.Endpoint = endpoint
	}
	if key := os.Getenv("MIA_OPENAI_API_KEY"); key != "" {
		c.API.APIKey = key
	}
	if name := os.Getenv("MIA_DEFAULT_BOT"); name != "" {
		c.Chat.DefaultBotName = name
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint must not be empty")
	}
	u, err := url.Parse(c.API.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.endpoint is not a valid URL: %q", c.API.Endpoint)
	}
	if c.Chat.DefaultBotName == "" {
		return fmt.Errorf("chat.default_bot_name must not be empty")
	}
	if c.Chat.HistoryTokenLimit < 0 {
		return fmt.Errorf("chat.history_token_limit must not be negative")
	}
	return nil
}
