// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// ticketref is the operator CLI for the ticket reference bot. It logs
// the bot account into the homeserver, validates tracker tables, and
// resolves references from the command line without connecting to chat.
package main

import (
	"fmt"
	"os"

	"github.com/bureau-foundation/ticketref/lib/config"
	"github.com/bureau-foundation/ticketref/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("ticketref %s\n", version.Info())
		return nil
	}

	root := &Command{
		Name:    "ticketref",
		Summary: "operator CLI for the ticket reference bot",
		Description: "ticketref manages the ticket reference bot: log the bot account\n" +
			"into the homeserver, validate tracker tables, and resolve ticket\n" +
			"references locally for testing.",
		Subcommands: []*Command{
			loginCommand(),
			logoutCommand(),
			checkCommand(),
			resolveCommand(),
		},
	}

	return root.Execute(os.Args[1:])
}

// loadConfig reads the bot configuration from the given path, or from
// TICKETREF_CONFIG / the default location when path is empty.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
