// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the ticketref bot.
//
// Configuration is loaded from a single file specified by:
//   - TICKETREF_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures deterministic,
// auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/ticketref/lib/ref"
)

// Config is the master configuration for the ticketref bot.
type Config struct {
	// Homeserver configures the Matrix connection.
	Homeserver HomeserverConfig `yaml:"homeserver"`

	// Trackers points at the tracker definition file.
	Trackers TrackersConfig `yaml:"trackers"`

	// Dispatch tunes reference dispatch behavior.
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// HomeserverConfig configures the Matrix connection.
type HomeserverConfig struct {
	// URL is the base URL of the homeserver, e.g. https://matrix.example.org.
	URL string `yaml:"url"`

	// UserID is the bot's fully qualified Matrix user ID,
	// e.g. @ticketref:example.org.
	UserID string `yaml:"user_id"`

	// TokenFile is the path of the file holding the bot's access token.
	// Written by `ticketref login`, read at startup.
	// Default: ${HOME}/.config/ticketref/token
	TokenFile string `yaml:"token_file"`

	// PasswordFile is the path of a file holding the account password.
	// Only used by `ticketref login` when set; otherwise the password
	// is prompted for on the terminal.
	PasswordFile string `yaml:"password_file,omitempty"`
}

// TrackersConfig points at the tracker definition file.
type TrackersConfig struct {
	// Definition is the path of the file declaring providers and
	// their channel bindings, in YAML or JSONC depending on the
	// extension.
	Definition string `yaml:"definition"`
}

// DispatchConfig tunes reference dispatch behavior.
type DispatchConfig struct {
	// Cooldown is how long a resolved reference stays suppressed in a
	// channel before the bot repeats itself.
	// Default: 30m
	Cooldown string `yaml:"cooldown"`

	// MaxCandidates is the per-message candidate ceiling. Messages
	// with more candidate references are dropped whole.
	// Default: 4
	MaxCandidates int `yaml:"max_candidates"`

	// StrictDefaults makes startup fail when two providers claim the
	// default binding for the same channel glob. When false the first
	// registration wins and the conflict is logged.
	// Default: false
	StrictDefaults bool `yaml:"strict_defaults"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Homeserver: HomeserverConfig{
			TokenFile: filepath.Join(homeDir, ".config", "ticketref", "token"),
		},
		Dispatch: DispatchConfig{
			Cooldown:      "30m",
			MaxCandidates: 4,
		},
	}
}

// Load loads configuration from the TICKETREF_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if TICKETREF_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("TICKETREF_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TICKETREF_CONFIG environment variable not set; " +
			"set it to the path of your ticketref.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do
// not override config values. The only expansion performed is ${HOME} and
// similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Homeserver.TokenFile = expandVars(c.Homeserver.TokenFile, vars)
	c.Homeserver.PasswordFile = expandVars(c.Homeserver.PasswordFile, vars)
	c.Trackers.Definition = expandVars(c.Trackers.Definition, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Homeserver.URL == "" {
		errs = append(errs, fmt.Errorf("homeserver.url is required"))
	} else if parsed, err := url.Parse(c.Homeserver.URL); err != nil {
		errs = append(errs, fmt.Errorf("homeserver.url: %w", err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("homeserver.url must be an http(s) URL, got %q", c.Homeserver.URL))
	}

	if c.Homeserver.UserID == "" {
		errs = append(errs, fmt.Errorf("homeserver.user_id is required"))
	} else if _, err := ref.ParseUserID(c.Homeserver.UserID); err != nil {
		errs = append(errs, fmt.Errorf("homeserver.user_id: %w", err))
	}

	if c.Homeserver.TokenFile == "" {
		errs = append(errs, fmt.Errorf("homeserver.token_file is required"))
	}

	if c.Trackers.Definition == "" {
		errs = append(errs, fmt.Errorf("trackers.definition is required"))
	}

	if _, err := time.ParseDuration(c.Dispatch.Cooldown); err != nil {
		errs = append(errs, fmt.Errorf("dispatch.cooldown: %w", err))
	}
	if c.Dispatch.MaxCandidates < 1 {
		errs = append(errs, fmt.Errorf("dispatch.max_candidates must be at least 1, got %d", c.Dispatch.MaxCandidates))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
