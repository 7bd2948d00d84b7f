// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/ticketref/lib/ref"
	"github.com/bureau-foundation/ticketref/lib/secret"
	"github.com/bureau-foundation/ticketref/messaging"
)

const loginTimeout = 30 * time.Second

func loginCommand() *Command {
	var configPath string
	var passwordFile string
	var tokenFile string

	return &Command{
		Name:    "login",
		Summary: "log the bot account in and save its access token",
		Description: "Log the bot account into the homeserver with its password and save\n" +
			"the resulting access token where the bot daemon expects it. The\n" +
			"homeserver URL, user ID, and token path come from the configuration\n" +
			"file.",
		Usage: "ticketref login [flags]",
		Examples: []Example{
			{
				Description: "log in interactively, prompting for the password",
				Command:     "ticketref login",
			},
			{
				Description: "log in with a password piped from a secrets manager",
				Command:     "pass show matrix/ticketbot | ticketref login --password-file -",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("login", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "",
				"path to ticketref.yaml (overrides TICKETREF_CONFIG)")
			flags.StringVar(&passwordFile, "password-file", "",
				`read the password from this file instead of prompting ("-" reads stdin)`)
			flags.StringVar(&tokenFile, "token-file", "",
				"write the access token here instead of the configured path")
			return flags
		},
		Run: func(args []string) error {
			return runLogin(configPath, passwordFile, tokenFile, args)
		},
	}
}

func runLogin(configPath, passwordFile, tokenFile string, args []string) error {
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

	if passwordFile == "" {
		passwordFile = cfg.Homeserver.PasswordFile
	}
	password, err := readLoginPassword(passwordFile, userID)
	if err != nil {
		return err
	}
	defer password.Close()

	if tokenFile == "" {
		tokenFile = cfg.Homeserver.TokenFile
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Homeserver.URL,
	})
	if err != nil {
		return err
	}

	// Check reachability before sending credentials so that a typo in
	// the homeserver URL produces a clear error instead of a login
	// failure.
	if _, err := client.ServerVersions(ctx); err != nil {
		return fmt.Errorf("homeserver %s is not reachable: %w", cfg.Homeserver.URL, err)
	}

	session, err := client.Login(ctx, userID.Localpart(), password)
	if err != nil {
		return fmt.Errorf("login failed for %s: %w", userID, err)
	}
	defer session.Close()

	if session.UserID() != userID {
		return fmt.Errorf("homeserver reports user %s but the configuration names %s",
			session.UserID(), userID)
	}

	if err := saveTokenFile(tokenFile, session.AccessToken()); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Logged in as %s (device %s)\n", session.UserID(), session.DeviceID())
	fmt.Fprintf(os.Stderr, "Token saved to %s\n", tokenFile)
	return nil
}

// readLoginPassword obtains the bot account password, either from the
// given path ("-" reads a line from stdin) or by prompting on the
// terminal.
func readLoginPassword(path string, userID ref.UserID) (*secret.Buffer, error) {
	if path != "" {
		password, err := secret.ReadFromPath(path)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return password, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal; use --password-file to supply the password")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", userID)
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}

	password, err := secret.NewFromBytes(passwordBytes)
	if err != nil {
		secret.Zero(passwordBytes)
		return nil, fmt.Errorf("password is empty")
	}
	return password, nil
}

// saveTokenFile writes the access token to path. The parent directory
// is created with mode 0700 if needed; the token file itself is
// written with mode 0600 since it grants full access to the account.
func saveTokenFile(path string, token string) error {
	data := []byte(token + "\n")

	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		secret.Zero(data)
		return fmt.Errorf("creating token directory %s: %w", directory, err)
	}

	writeError := os.WriteFile(path, data, 0600)
	secret.Zero(data)
	if writeError != nil {
		return fmt.Errorf("writing token file %s: %w", path, writeError)
	}

	return nil
}
