// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"path"
	"regexp"

	"github.com/bureau-foundation/ticketref/lib/tracker"
)

// Binding opts a provider into a set of channels. A provider with no
// binding matching a channel contributes nothing there, even when its
// own pattern would match the message text.
type Binding struct {
	// ChannelGlob selects the channels the binding applies to, in
	// shell glob syntax ("#tor*"), matched case-sensitively.
	ChannelGlob string

	// Pattern optionally adds a dedicated recognition pattern for
	// the bound channels, on top of the provider's own pattern. Like
	// any provider pattern it needs at least one capture group.
	Pattern string

	// Default additionally opts the bound channels into the bot-wide
	// bare reference pattern (tracker.BarePattern) for this provider.
	Default bool
}

type compiledBinding struct {
	glob      string
	pattern   *regexp.Regexp
	isDefault bool
}

// registration pairs a provider with its compiled channel bindings.
type registration struct {
	provider tracker.Provider
	bindings []compiledBinding
}

// activePatterns computes the pattern set for one target channel:
// nil when no binding matches the target, otherwise the provider's
// own pattern, the dedicated patterns of the matching bindings, and
// the bare pattern when any matching binding is a default one.
// Patterns are deduplicated by source text so a dedicated pattern
// equal to the provider's own runs once.
func (r *registration) activePatterns(target string) []*regexp.Regexp {
	var (
		dedicated []*regexp.Regexp
		bound     bool
		bare      bool
	)
	for _, binding := range r.bindings {
		if ok, err := path.Match(binding.glob, target); err != nil || !ok {
			continue
		}
		bound = true
		if binding.isDefault {
			bare = true
		}
		if binding.pattern != nil {
			dedicated = append(dedicated, binding.pattern)
		}
	}
	if !bound {
		return nil
	}

	seen := make(map[string]bool, len(dedicated)+2)
	var active []*regexp.Regexp
	add := func(pattern *regexp.Regexp) {
		if pattern == nil || seen[pattern.String()] {
			return
		}
		seen[pattern.String()] = true
		active = append(active, pattern)
	}
	add(r.provider.Pattern())
	for _, pattern := range dedicated {
		add(pattern)
	}
	if bare {
		add(tracker.BarePattern)
	}
	return active
}
