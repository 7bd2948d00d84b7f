// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// noResultSentinel is what the RT CLI prints (with success status)
// when a ticket id matches nothing.
const noResultSentinel = "No matching results."

// CommandConfig configures a CommandProvider.
type CommandConfig struct {
	// Name identifies the provider in logs, errors, and bindings.
	Name string

	// Command is the RT CLI binary to invoke, resolved through PATH
	// when not absolute. Required.
	Command string

	// ConfigPath locates the RT configuration handed to the command
	// through the EnvVar environment variable. A leading "~" expands
	// to the invoking user's home directory and relative paths are
	// made absolute at construction, so later working directory
	// changes cannot break lookups. Required.
	ConfigPath string

	// EnvVar names the environment variable carrying ConfigPath.
	// Defaults to "RTCONFIG", which is what the RT CLI reads.
	EnvVar string

	// Pattern recognizes ticket identifiers in message text. When
	// empty, a pattern is synthesized from Format.Prefix; see
	// CompilePattern.
	Pattern string

	// Format decorates the command output into the reply line.
	Format Formatting

	// Timeout bounds each command run. Defaults to
	// DefaultFetchTimeout.
	Timeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// CommandProvider resolves tickets by shelling out to the RT CLI
// ("rt ls -i <number> -s") instead of speaking HTTP. Only the first
// output line is used; RT prints one summary line per match and the
// lookup is by unique id.
type CommandProvider struct {
	providerCore
	command    string
	configPath string
	envVar     string
	timeout    time.Duration
}

// NewCommandProvider validates cfg and builds the provider.
func NewCommandProvider(cfg CommandConfig) (*CommandProvider, error) {
	core, err := newProviderCore(cfg.Name, cfg.Pattern, cfg.Format, cfg.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.Command == "" {
		return nil, fmt.Errorf("tracker: provider %s: command is required", cfg.Name)
	}
	if cfg.ConfigPath == "" {
		return nil, fmt.Errorf("tracker: provider %s: config path is required", cfg.Name)
	}
	configPath, err := expandHome(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("tracker: provider %s: expanding config path: %w", cfg.Name, err)
	}
	configPath, err = filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("tracker: provider %s: resolving config path: %w", cfg.Name, err)
	}
	envVar := cfg.EnvVar
	if envVar == "" {
		envVar = "RTCONFIG"
	}
	return &CommandProvider{
		providerCore: core,
		command:      cfg.Command,
		configPath:   configPath,
		envVar:       envVar,
		timeout:      orDefaultTimeout(cfg.Timeout),
	}, nil
}

// Resolve implements Provider.
func (p *CommandProvider) Resolve(ctx context.Context, id ID) (string, error) {
	number, err := strconv.Atoi(id.Number)
	if err != nil {
		return "", fmt.Errorf("%w: identifier %q is not numeric", ErrNotFound, id)
	}

	commandCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	command := exec.CommandContext(commandCtx, p.command, "ls", "-i", strconv.Itoa(number), "-s")
	command.Env = append(os.Environ(), p.envVar+"="+p.configPath)
	output, err := command.Output()
	if err != nil {
		if commandCtx.Err() != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrUnavailable, p.command, commandCtx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %s exited %d: %s", ErrNotFound,
				p.command, exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%w: running %s: %v", ErrUnavailable, p.command, err)
	}

	title, _, _ := strings.Cut(string(output), "\n")
	title = strings.TrimSpace(title)
	if title == noResultSentinel {
		return "", fmt.Errorf("%w: %s reported no match for %s", ErrNotFound, p.command, id)
	}
	return p.format.Render(id, title, ""), nil
}

// expandHome rewrites a leading "~" to the current user's home
// directory.
func expandHome(path string) (string, error) {
	if path == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
