// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/bureau-foundation/ticketref/lib/clock"
)

// DefaultIndexTTL bounds how long a fetched index document is reused
// before the next lookup attempts a refresh.
const DefaultIndexTTL = 2 * time.Hour

// IndexConfig configures an IndexedTextProvider.
type IndexConfig struct {
	// Name identifies the provider in logs, errors, and bindings.
	Name string

	// IndexURL is the plain-text document listing one ticket per
	// line, number first. Required.
	IndexURL string

	// Pattern recognizes ticket identifiers in message text. When
	// empty, a pattern is synthesized from Format.Prefix; see
	// CompilePattern.
	Pattern string

	// Format decorates the matched index line into the reply line.
	Format Formatting

	// TTL bounds index reuse. Defaults to DefaultIndexTTL.
	TTL time.Duration

	// HTTPClient overrides http.DefaultClient.
	HTTPClient *http.Client

	// Timeout bounds each index fetch. Defaults to
	// DefaultFetchTimeout.
	Timeout time.Duration

	// Clock supplies time for TTL checks. Defaults to the real
	// clock; tests inject a fake.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// IndexedTextProvider resolves tickets against a single plain-text
// index document instead of per-ticket pages (the shape of a
// proposals index: one line per entry, number first). The index is
// fetched lazily on first lookup and cached for the TTL. A failed
// refresh keeps serving the stale copy and retries on the next
// lookup; only when no copy has ever been fetched do lookups fail.
type IndexedTextProvider struct {
	providerCore
	indexURL string
	client   *http.Client
	timeout  time.Duration
	ttl      time.Duration
	clock    clock.Clock

	mu     sync.Mutex
	index  string
	loaded bool
	expiry time.Time
}

// NewIndexedTextProvider validates cfg and builds the provider. No
// fetch happens until the first Resolve.
func NewIndexedTextProvider(cfg IndexConfig) (*IndexedTextProvider, error) {
	core, err := newProviderCore(cfg.Name, cfg.Pattern, cfg.Format, cfg.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.IndexURL == "" {
		return nil, fmt.Errorf("tracker: provider %s: index URL is required", cfg.Name)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultIndexTTL
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &IndexedTextProvider{
		providerCore: core,
		indexURL:     cfg.IndexURL,
		client:       orDefaultClient(cfg.HTTPClient),
		timeout:      orDefaultTimeout(cfg.Timeout),
		ttl:          ttl,
		clock:        clk,
	}, nil
}

// Resolve implements Provider. The matched line's remainder (text
// after the ticket number) becomes the title.
func (p *IndexedTextProvider) Resolve(ctx context.Context, id ID) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refreshLocked(ctx)
	if !p.loaded {
		return "", fmt.Errorf("%w: no index available from %s", ErrNotFound, p.indexURL)
	}

	linePattern := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(id.Number) + `\s*(.*)`)
	match := linePattern.FindStringSubmatch(p.index)
	if match == nil {
		return "", fmt.Errorf("%w: no index line for %q", ErrNotFound, id)
	}
	return p.format.Render(id, match[1], ""), nil
}

// refreshLocked fetches the index when the cached copy has expired.
// A failed refresh logs and returns: the stale copy (if any) stays in
// place with its expiry in the past, so the next lookup retries.
func (p *IndexedTextProvider) refreshLocked(ctx context.Context) {
	if p.clock.Now().Before(p.expiry) {
		return
	}
	text, err := fetchText(ctx, p.client, p.timeout, p.indexURL)
	if err != nil {
		p.logger.Warn("index refresh failed", "url", p.indexURL, "error", err)
		return
	}
	p.index = text
	p.loaded = true
	p.expiry = p.clock.Now().Add(p.ttl)
}
