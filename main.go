// mia - a terminal chat client with pluggable bot backends.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/mia-tui/internal/bot"
	"github.com/jeranaias/mia-tui/internal/cli"
	"github.com/jeranaias/mia-tui/internal/config"
	"github.com/jeranaias/mia-tui/internal/openai"
	"github.com/jeranaias/mia-tui/internal/store"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "", "chat":
		if err := runChat(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := handleConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("mia %s (%s)\n", Version, GitCommit)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	var provider bot.ProviderClient = openai.New(openai.Options{
		Endpoint: cfg.API.Endpoint,
		APIKey:   cfg.API.APIKey,
	})

	session := cli.NewSession(cfg, st, provider)
	return session.Run(context.Background())
}

// handleConfig prints the active configuration and where it was read from,
// writing a default file on first run.
func handleConfig() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Printf("Wrote default config to %s\n", path)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fmt.Printf("Config file:  %s\n", path)
	fmt.Printf("Endpoint:     %s\n", cfg.API.Endpoint)
	if cfg.API.APIKey != "" {
		fmt.Println("API key:      set")
	} else {
		fmt.Println("API key:      (not set; use MIA_OPENAI_API_KEY or edit the file)")
	}
	fmt.Printf("Default bot:  %s\n", cfg.Chat.DefaultBotName)
	return nil
}

func printUsage() {
	fmt.Print(`mia - chat with pluggable bots

Usage:
  mia [chat]    Start the interactive chat session (default)
  mia config    Show (and on first run create) the config file
  mia version   Print version information
  mia help      Show this help
`)
}
