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

// defaultIssueSegment joins the project path and ticket number in a
// composite page URL, GitLab-style.
const defaultIssueSegment = "/issues/"

// CompositeConfig configures a CompositeProvider.
type CompositeConfig struct {
	// Name identifies the provider in logs, errors, and bindings.
	Name string

	// BaseURL is the host prefix the project path is appended to.
	// Required.
	BaseURL string

	// IssueSegment sits between the project path and the ticket
	// number in the page URL. Defaults to "/issues/".
	IssueSegment string

	// Pattern recognizes composite identifiers and must carry the
	// named groups "path" and "number".
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

// CompositeProvider resolves path-scoped identifiers like
// "mygroup/proj#1234": the page URL is assembled from the base URL,
// the captured project path, the issue segment, and the ticket
// number. Title extraction and decoration match HTMLTitleProvider.
type CompositeProvider struct {
	providerCore
	baseURL      string
	issueSegment string
	status       extract.StatusExtractor
	client       *http.Client
	timeout      time.Duration
}

// NewCompositeProvider validates cfg and builds the provider.
func NewCompositeProvider(cfg CompositeConfig) (*CompositeProvider, error) {
	core, err := newProviderCore(cfg.Name, cfg.Pattern, cfg.Format, cfg.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("tracker: provider %s: base URL is required", cfg.Name)
	}
	segment := cfg.IssueSegment
	if segment == "" {
		segment = defaultIssueSegment
	}
	return &CompositeProvider{
		providerCore: core,
		baseURL:      cfg.BaseURL,
		issueSegment: segment,
		status:       cfg.Status,
		client:       orDefaultClient(cfg.HTTPClient),
		timeout:      orDefaultTimeout(cfg.Timeout),
	}, nil
}

// Resolve implements Provider.
func (p *CompositeProvider) Resolve(ctx context.Context, id ID) (string, error) {
	if id.Path == "" {
		return "", fmt.Errorf("%w: identifier %q has no project path", ErrNotFound, id)
	}
	pageURL := p.baseURL + id.Path + p.issueSegment + id.Number
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
