// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bureau-foundation/ticketref/lib/extract"
)

// HTMLConfig configures an HTMLTitleProvider.
type HTMLConfig struct {
	// Name identifies the provider in logs, errors, and bindings.
	Name string

	// BaseURL is the ticket page URL prefix; the ticket number is
	// appended to form the page to fetch. Required.
	BaseURL string

	// Pattern recognizes ticket identifiers in message text. When
	// empty, a pattern is synthesized from Format.Prefix; see
	// CompilePattern.
	Pattern string

	// Format decorates the fetched title into the reply line.
	Format Formatting

	// Status optionally extracts a status annotation from the
	// fetched page.
	Status extract.StatusExtractor

	// HTTPClient overrides http.DefaultClient.
	HTTPClient *http.Client

	// Timeout bounds each fetch. Defaults to DefaultFetchTimeout.
	Timeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// HTMLTitleProvider resolves a ticket by fetching the page at
// BaseURL + number and extracting its title element. This is the
// variant behind most deployed trackers (Trac, Redmine, bug
// archives); anything whose per-ticket page carries the summary in
// its title works unmodified.
type HTMLTitleProvider struct {
	providerCore
	baseURL string
	status  extract.StatusExtractor
	client  *http.Client
	timeout time.Duration
}

// NewHTMLTitleProvider validates cfg and builds the provider.
func NewHTMLTitleProvider(cfg HTMLConfig) (*HTMLTitleProvider, error) {
	core, err := newProviderCore(cfg.Name, cfg.Pattern, cfg.Format, cfg.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tracker: provider %s: base URL is required", cfg.Name)
	}
	return &HTMLTitleProvider{
		providerCore: core,
		baseURL:      cfg.BaseURL,
		status:       cfg.Status,
		client:       orDefaultClient(cfg.HTTPClient),
		timeout:      orDefaultTimeout(cfg.Timeout),
	}, nil
}

// Resolve implements Provider.
func (p *HTMLTitleProvider) Resolve(ctx context.Context, id ID) (string, error) {
	pageURL := p.baseURL + id.Number
	document, err := fetchDocument(ctx, p.client, p.timeout, pageURL)
	if err != nil {
		return "", err
	}
	title, err := extract.Title(document)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotFound, pageURL, err)
	}
	var status string
	if p.status != nil {
		status = p.status.Status(document)
	}
	return p.format.Render(id, title, status), nil
}
