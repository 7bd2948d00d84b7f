// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackerdef

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bureau-foundation/ticketref/lib/clock"
	"github.com/bureau-foundation/ticketref/lib/dispatch"
	"github.com/bureau-foundation/ticketref/lib/extract"
	"github.com/bureau-foundation/ticketref/lib/tracker"
)

// BuildOptions carries the runtime collaborators shared by every
// provider a Build call constructs.
type BuildOptions struct {
	// HTTPClient is used by every fetching provider. Nil selects
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock drives index cache expiry. Nil selects the real clock.
	Clock clock.Clock

	// Logger is the parent logger; each provider derives a child
	// scoped to its name. Nil selects slog.Default().
	Logger *slog.Logger
}

// Built pairs a constructed provider with its channel bindings,
// ready for dispatch registration. Build returns them in definition
// order, which becomes registration order and therefore reply order.
type Built struct {
	Provider tracker.Provider
	Bindings []dispatch.Binding
}

// Build constructs every provider in the definition and attaches the
// bindings that name it, expanding each binding's channel list into
// one dispatch binding per glob. Run Validate first for a full issue
// report; Build stops at the first problem.
func Build(def *Definition, opts BuildOptions) ([]Built, error) {
	built := make([]Built, 0, len(def.Providers))
	slots := make(map[string]int, len(def.Providers))
	for _, providerDef := range def.Providers {
		provider, err := buildProvider(providerDef, opts)
		if err != nil {
			return nil, err
		}
		if _, exists := slots[provider.Name()]; exists {
			return nil, fmt.Errorf("trackerdef: duplicate provider name %s", provider.Name())
		}
		slots[provider.Name()] = len(built)
		built = append(built, Built{Provider: provider})
	}

	for index, bindingDef := range def.Bindings {
		slot, ok := slots[bindingDef.Provider]
		if !ok {
			return nil, fmt.Errorf("trackerdef: bindings[%d] references unknown provider %q", index, bindingDef.Provider)
		}
		for _, glob := range bindingDef.Channels {
			built[slot].Bindings = append(built[slot].Bindings, dispatch.Binding{
				ChannelGlob: glob,
				Pattern:     bindingDef.Pattern,
				Default:     bindingDef.Default,
			})
		}
	}

	return built, nil
}

func buildProvider(def ProviderDef, opts BuildOptions) (tracker.Provider, error) {
	format, err := buildFormat(def)
	if err != nil {
		return nil, fmt.Errorf("trackerdef: provider %s: %w", def.Name, err)
	}
	status, err := buildStatus(def.Status)
	if err != nil {
		return nil, fmt.Errorf("trackerdef: provider %s: %w", def.Name, err)
	}
	timeout, err := optionalDuration(def.Timeout)
	if err != nil {
		return nil, fmt.Errorf("trackerdef: provider %s: timeout: %w", def.Name, err)
	}

	switch def.Kind {
	case KindHTML:
		return tracker.NewHTMLTitleProvider(tracker.HTMLConfig{
			Name:       def.Name,
			BaseURL:    def.BaseURL,
			Pattern:    def.Pattern,
			Format:     format,
			Status:     status,
			HTTPClient: opts.HTTPClient,
			Timeout:    timeout,
			Logger:     opts.Logger,
		})
	case KindComposite:
		return tracker.NewCompositeProvider(tracker.CompositeConfig{
			Name:         def.Name,
			BaseURL:      def.BaseURL,
			IssueSegment: def.IssueSegment,
			Pattern:      def.Pattern,
			Format:       format,
			Status:       status,
			HTTPClient:   opts.HTTPClient,
			Timeout:      timeout,
			Logger:       opts.Logger,
		})
	case KindIndex:
		ttl, err := optionalDuration(def.IndexTTL)
		if err != nil {
			return nil, fmt.Errorf("trackerdef: provider %s: index_ttl: %w", def.Name, err)
		}
		return tracker.NewIndexedTextProvider(tracker.IndexConfig{
			Name:       def.Name,
			IndexURL:   def.IndexURL,
			Pattern:    def.Pattern,
			Format:     format,
			TTL:        ttl,
			HTTPClient: opts.HTTPClient,
			Timeout:    timeout,
			Clock:      opts.Clock,
			Logger:     opts.Logger,
		})
	case KindCommand:
		return tracker.NewCommandProvider(tracker.CommandConfig{
			Name:       def.Name,
			Command:    def.Command,
			ConfigPath: def.ConfigPath,
			EnvVar:     def.Env,
			Pattern:    def.Pattern,
			Format:     format,
			Timeout:    timeout,
			Logger:     opts.Logger,
		})
	default:
		return nil, fmt.Errorf("trackerdef: provider %s: unknown kind %q", def.Name, def.Kind)
	}
}

func buildFormat(def ProviderDef) (tracker.Formatting, error) {
	format := tracker.Formatting{Prefix: def.Prefix, Postfix: def.Postfix}
	if def.Fixup != nil {
		fixup, err := tracker.NewReGroupFixup(def.Fixup.Pattern, def.Fixup.Label)
		if err != nil {
			return tracker.Formatting{}, err
		}
		format.Fixup = fixup
	}
	return format, nil
}

func buildStatus(def *StatusDef) (extract.StatusExtractor, error) {
	if def == nil {
		return nil, nil
	}
	switch def.Kind {
	case StatusBadge:
		if def.Class == "" {
			return nil, fmt.Errorf("badge status extractor needs a class")
		}
		return extract.BadgeStatus{Class: def.Class}, nil
	case StatusBox:
		if def.Selector == "" {
			return nil, fmt.Errorf("box status extractor needs a selector")
		}
		return extract.BoxStatus{Selector: def.Selector}, nil
	default:
		return nil, fmt.Errorf("status kind must be badge or box, got %q", def.Kind)
	}
}

func optionalDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
