// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// ticketref-bot is the ticket reference bot daemon. It loads the
// homeserver configuration and tracker tables, builds the dispatch
// engine, and runs the Matrix sync loop until SIGINT or SIGTERM.
//
// The bot authenticates with a stored access token (created by
// "ticketref login"); it never reads passwords itself.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ticketref/lib/bot"
	"github.com/bureau-foundation/ticketref/lib/clock"
	"github.com/bureau-foundation/ticketref/lib/config"
	"github.com/bureau-foundation/ticketref/lib/dispatch"
	"github.com/bureau-foundation/ticketref/lib/ref"
	"github.com/bureau-foundation/ticketref/lib/secret"
	"github.com/bureau-foundation/ticketref/lib/trackerdef"
	"github.com/bureau-foundation/ticketref/lib/version"
	"github.com/bureau-foundation/ticketref/messaging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("ticketref-bot", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to ticketref.yaml (overrides TICKETREF_CONFIG)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	if showVersion {
		fmt.Printf("ticketref-bot %s\n", version.Info())
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	definition, err := trackerdef.ReadFile(cfg.Trackers.Definition)
	if err != nil {
		return err
	}
	if issues := trackerdef.Validate(definition); len(issues) > 0 {
		return fmt.Errorf("invalid tracker definition %s:\n  %s",
			cfg.Trackers.Definition, strings.Join(issues, "\n  "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	// Validate has already checked the duration syntax.
	cooldown, err := time.ParseDuration(cfg.Dispatch.Cooldown)
	if err != nil {
		return fmt.Errorf("invalid dispatch.cooldown: %w", err)
	}

	engine := dispatch.New(dispatch.Config{
		Cooldown:       cooldown,
		MaxCandidates:  cfg.Dispatch.MaxCandidates,
		StrictDefaults: cfg.Dispatch.StrictDefaults,
		Clock:          clk,
		Logger:         logger,
	})

	built, err := trackerdef.Build(definition, trackerdef.BuildOptions{
		Clock:  clk,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	for _, item := range built {
		if err := engine.Register(item.Provider, item.Bindings); err != nil {
			return fmt.Errorf("registering provider %s: %w", item.Provider.Name(), err)
		}
	}
	logger.Info("tracker tables loaded",
		"definition", cfg.Trackers.Definition,
		"providers", len(built),
	)

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver.URL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	userID, err := ref.ParseUserID(cfg.Homeserver.UserID)
	if err != nil {
		return fmt.Errorf("invalid homeserver.user_id: %w", err)
	}

	token, err := secret.ReadFromPath(cfg.Homeserver.TokenFile)
	if err != nil {
		return fmt.Errorf("reading access token: %w (run \"ticketref login\" to create it)", err)
	}

	// The session takes ownership of the token buffer.
	session, err := client.SessionFromToken(userID, token)
	if err != nil {
		return err
	}
	defer session.Close()

	whoami, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("validating session: %w (run \"ticketref login\" to refresh the token)", err)
	}
	if whoami != userID {
		return fmt.Errorf("access token belongs to %s but the configuration names %s", whoami, userID)
	}
	logger.Info("matrix session valid", "user_id", whoami)

	runner, err := bot.New(bot.Config{
		Session: session,
		Engine:  engine,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	logger.Info("ticketref bot running",
		"homeserver", cfg.Homeserver.URL,
		"providers", len(built),
		"cooldown", cooldown,
	)

	if err := runner.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}
