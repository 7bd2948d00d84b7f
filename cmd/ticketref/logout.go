// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ticketref/lib/ref"
	"github.com/bureau-foundation/ticketref/lib/secret"
	"github.com/bureau-foundation/ticketref/messaging"
)

func logoutCommand() *Command {
	var configPath string

	return &Command{
		Name:    "logout",
		Summary: "invalidate the saved access token and delete it",
		Description: "Invalidate the bot's access token on the homeserver and delete the\n" +
			"local token file. Run this before retiring a bot account or after\n" +
			"a suspected token leak.",
		Usage: "ticketref logout [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("logout", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "",
				"path to ticketref.yaml (overrides TICKETREF_CONFIG)")
			return flags
		},
		Run: func(args []string) error {
			return runLogout(configPath, args)
		},
	}
}

func runLogout(configPath string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	userID, err := ref.ParseUserID(cfg.Homeserver.UserID)
	if err != nil {
		return fmt.Errorf("invalid user_id in configuration: %w", err)
	}

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver.URL,
	})
	if err != nil {
		return err
	}

	token, err := secret.ReadFromPath(cfg.Homeserver.TokenFile)
	if err != nil {
		return fmt.Errorf("reading access token: %w", err)
	}

	session, err := client.SessionFromToken(userID, token)
	if err != nil {
		token.Close()
		return err
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	if err := session.Logout(ctx); err != nil {
		// A rejected token means the server already considers this
		// session dead; deleting the local file is still the right
		// outcome.
		if !messaging.IsMatrixError(err, messaging.ErrCodeUnknownToken) {
			return fmt.Errorf("logging out: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Token was already invalid on the homeserver")
	}

	if err := os.Remove(cfg.Homeserver.TokenFile); err != nil {
		return fmt.Errorf("removing token file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Logged out %s; removed %s\n", userID, cfg.Homeserver.TokenFile)
	return nil
}
