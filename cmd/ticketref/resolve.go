// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ticketref/lib/dispatch"
	"github.com/bureau-foundation/ticketref/lib/trackerdef"
)

const resolveTimeout = 60 * time.Second

func resolveCommand() *Command {
	var configPath string
	var tablesPath string

	return &Command{
		Name:    "resolve",
		Summary: "resolve ticket references from the command line",
		Description: "Run a message through the dispatch tables as if it had arrived in\n" +
			"the named channel, fetching titles from the live trackers, and\n" +
			"print the reply lines the bot would send. Useful for testing\n" +
			"patterns and tracker reachability without touching chat.",
		Usage: "ticketref resolve [flags] <channel> <message...>",
		Examples: []Example{
			{
				Description: "see what the bot would say about tor#1234 in #tor",
				Command:     `ticketref resolve '#tor' 'the fix for tor#1234 landed'`,
			},
			{
				Description: "test an alternate tables file before deploying it",
				Command:     `ticketref resolve --tables new-trackers.jsonc '#tor-dev' 'prop#266'`,
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("resolve", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "",
				"path to ticketref.yaml (overrides TICKETREF_CONFIG)")
			flags.StringVar(&tablesPath, "tables", "",
				"tracker definition file (defaults to the configured one)")
			return flags
		},
		Run: func(args []string) error {
			return runResolve(configPath, tablesPath, args)
		},
	}
}

func runResolve(configPath, tablesPath string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("expected a channel and a message, e.g. '#tor' 'see tor#1234'")
	}
	channel := args[0]
	message := strings.Join(args[1:], " ")

	if tablesPath == "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		tablesPath = cfg.Trackers.Definition
	}

	def, err := trackerdef.ReadFile(tablesPath)
	if err != nil {
		return err
	}
	if issues := trackerdef.Validate(def); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  %s\n", issue)
		}
		return fmt.Errorf("%d issue(s) in %s", len(issues), tablesPath)
	}

	logger := newCommandLogger()
	engine := dispatch.New(dispatch.Config{Logger: logger})
	built, err := trackerdef.Build(def, trackerdef.BuildOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("building providers: %w", err)
	}
	for _, item := range built {
		if err := engine.Register(item.Provider, item.Bindings); err != nil {
			return fmt.Errorf("registering provider %s: %w", item.Provider.Name(), err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	replies := engine.HandleMessage(ctx, channel, message)
	if len(replies) == 0 {
		fmt.Fprintf(os.Stderr, "no replies for %q in %s\n", message, channel)
		return nil
	}
	for _, reply := range replies {
		fmt.Println(reply)
	}
	return nil
}
