// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackerdef

// Provider kinds, selecting the fetch strategy.
const (
	// KindHTML fetches base_url + number and extracts the page title.
	KindHTML = "html"
	// KindComposite fetches base_url + path + issue_segment + number
	// for path-scoped identifiers like "group/proj#1234".
	KindComposite = "composite"
	// KindIndex looks the number up in a cached plain-text index
	// document.
	KindIndex = "index"
	// KindCommand shells out to a ticket-system CLI client.
	KindCommand = "command"
)

// Status extractor kinds.
const (
	// StatusBadge reads the first element carrying a fixed CSS class.
	StatusBadge = "badge"
	// StatusBox reads a region that a CSS selector must match exactly
	// once.
	StatusBox = "box"
)

// Definition is one parsed tracker definition file: the provider
// table and the channel binding table, both loaded once at startup.
type Definition struct {
	Providers []ProviderDef `json:"providers" yaml:"providers"`
	Bindings  []BindingDef  `json:"bindings" yaml:"bindings"`
}

// ProviderDef declares one reference provider. Which fields apply
// depends on Kind; Validate flags fields set on the wrong kind.
type ProviderDef struct {
	// Name is the unique provider name bindings refer to.
	Name string `json:"name" yaml:"name"`

	// Kind selects the fetch strategy: html, composite, index, or
	// command.
	Kind string `json:"kind" yaml:"kind"`

	// Pattern is the provider's own recognition pattern. When empty
	// and Prefix is set, a case-insensitive "<prefix>#<digits>"
	// pattern is synthesized.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Prefix is prepended to every reply line and drives pattern
	// synthesis.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`

	// Postfix is appended to every reply line with the identifier
	// interpolated for its single %s verb.
	Postfix string `json:"postfix,omitempty" yaml:"postfix,omitempty"`

	// Fixup optionally strips tracker boilerplate from titles and
	// stamps the identifier.
	Fixup *FixupDef `json:"fixup,omitempty" yaml:"fixup,omitempty"`

	// Status optionally extracts a status annotation from fetched
	// pages (html and composite kinds only).
	Status *StatusDef `json:"status,omitempty" yaml:"status,omitempty"`

	// Timeout bounds each fetch or command run, in time.ParseDuration
	// syntax ("10s"). Empty selects the built-in default.
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// BaseURL is the ticket page URL prefix (html and composite).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// IssueSegment joins path and number in composite page URLs.
	// Empty selects "/issues/".
	IssueSegment string `json:"issue_segment,omitempty" yaml:"issue_segment,omitempty"`

	// IndexURL is the plain-text index document URL (index kind).
	IndexURL string `json:"index_url,omitempty" yaml:"index_url,omitempty"`

	// IndexTTL bounds index reuse, in time.ParseDuration syntax
	// ("2h"). Empty selects the built-in default.
	IndexTTL string `json:"index_ttl,omitempty" yaml:"index_ttl,omitempty"`

	// Command is the CLI client binary (command kind).
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	// ConfigPath is handed to the command through the Env
	// environment variable (command kind). A leading ~ expands to
	// the invoking user's home directory.
	ConfigPath string `json:"config_path,omitempty" yaml:"config_path,omitempty"`

	// Env names the environment variable carrying ConfigPath
	// (command kind). Empty selects RTCONFIG.
	Env string `json:"env,omitempty" yaml:"env,omitempty"`
}

// FixupDef configures a title fixup (tracker.ReGroupFixup).
type FixupDef struct {
	// Pattern matches anchored at the title start; its first capture
	// group replaces the title when it matches. Empty builds a
	// label-only fixup.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Label is the identifier-stamping layout with exactly two %s
	// verbs. Empty selects "#%s: %s".
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// StatusDef configures a status extractor.
type StatusDef struct {
	// Kind is badge or box.
	Kind string `json:"kind" yaml:"kind"`

	// Class is the badge CSS class name, without a leading dot
	// (badge kind).
	Class string `json:"class,omitempty" yaml:"class,omitempty"`

	// Selector is the CSS selector that must match exactly one
	// region (box kind).
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty"`
}

// BindingDef opts a provider into a set of channels. Each channel
// glob expands to one dispatch binding.
type BindingDef struct {
	// Channels lists shell-style channel globs ("#tor*").
	Channels []string `json:"channels" yaml:"channels"`

	// Provider names the provider the binding applies to.
	Provider string `json:"provider" yaml:"provider"`

	// Pattern optionally adds a dedicated recognition pattern for
	// the bound channels.
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Default opts the bound channels into the bot-wide bare
	// reference pattern for this provider.
	Default bool `json:"default,omitempty" yaml:"default,omitempty"`
}
