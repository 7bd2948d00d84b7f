// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

// Provider is the shared contract of all reference providers: a
// named strategy owning one external tracker's match pattern and
// fetch logic. Providers are constructed once at startup from the
// deployment table and are immutable afterwards, apart from internal
// caches.
type Provider interface {
	// Name returns the unique provider name, used as registry key
	// and in logs.
	Name() string

	// Pattern returns the provider's own match pattern, or nil when
	// the provider matches only through channel bindings.
	Pattern() *regexp.Regexp

	// Resolve fetches and formats the one-line summary for id. It
	// returns an error wrapping ErrNotFound when the identifier does
	// not exist at the tracker and ErrUnavailable when the tracker
	// cannot be reached. It never returns an empty string with a nil
	// error.
	Resolve(ctx context.Context, id ID) (string, error)
}

// DefaultFetchTimeout bounds a single tracker fetch when the provider
// configuration does not set one. Every fetch is time-limited: one
// hanging tracker must not stall dispatch for unrelated channels.
const DefaultFetchTimeout = 10 * time.Second

// providerCore carries the fields every provider variant shares and
// implements the Name and Pattern halves of the Provider contract.
type providerCore struct {
	name    string
	pattern *regexp.Regexp
	format  Formatting
	logger  *slog.Logger
}

func newProviderCore(name, pattern string, format Formatting, logger *slog.Logger) (providerCore, error) {
	if name == "" {
		return providerCore{}, fmt.Errorf("tracker: provider name is required")
	}
	if err := format.validate(); err != nil {
		return providerCore{}, fmt.Errorf("tracker: provider %s: %w", name, err)
	}
	compiled, err := CompilePattern(pattern, format.Prefix)
	if err != nil {
		return providerCore{}, fmt.Errorf("tracker: provider %s: %w", name, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return providerCore{
		name:    name,
		pattern: compiled,
		format:  format,
		logger:  logger.With("provider", name),
	}, nil
}

func (p *providerCore) Name() string { return p.name }

func (p *providerCore) Pattern() *regexp.Regexp { return p.pattern }

func orDefaultClient(client *http.Client) *http.Client {
	if client == nil {
		return http.DefaultClient
	}
	return client
}

func orDefaultTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultFetchTimeout
	}
	return timeout
}
