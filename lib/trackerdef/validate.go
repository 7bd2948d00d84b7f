// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackerdef

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/bureau-foundation/ticketref/lib/tracker"
)

// Validate checks a Definition for structural issues. Returns a list
// of human-readable issue descriptions; an empty list means the
// definition is valid. Build repeats the checks the provider
// constructors enforce, but Validate reports them all at once
// instead of failing on the first.
//
// Structural checks include:
//   - At least one provider is required
//   - Each provider needs a unique non-empty name and a known kind
//   - Kind-specific required fields (base_url, index_url, command,
//     config_path) and fields set on the wrong kind
//   - Patterns compile and carry a capture group; composite patterns
//     name the path and number groups; fixups and status extractors
//     are well-formed
//   - Durations (timeout, index_ttl) parse
//   - Bindings reference defined providers and carry valid channel
//     globs
func Validate(def *Definition) []string {
	var issues []string

	if len(def.Providers) == 0 {
		issues = append(issues, "definition has no providers (at least one is required)")
	}

	names := make(map[string]int, len(def.Providers))
	for index, provider := range def.Providers {
		if provider.Name != "" {
			if firstIndex, exists := names[provider.Name]; exists {
				issues = append(issues, fmt.Sprintf(
					"providers[%d] %q: duplicate provider name (first used at providers[%d])",
					index, provider.Name, firstIndex,
				))
			} else {
				names[provider.Name] = index
			}
		}
	}

	for index, provider := range def.Providers {
		prefix := fmt.Sprintf("providers[%d]", index)
		issues = append(issues, validateProvider(provider, prefix)...)
	}

	for index, binding := range def.Bindings {
		prefix := fmt.Sprintf("bindings[%d]", index)
		issues = append(issues, validateBinding(binding, def.Providers, names, prefix)...)
	}

	return issues
}

// hasCompositeGroups reports whether the pattern names both segments
// of a composite identifier.
func hasCompositeGroups(pattern *regexp.Regexp) bool {
	return pattern.SubexpIndex("path") > 0 && pattern.SubexpIndex("number") > 0
}

func validateProvider(provider ProviderDef, prefix string) []string {
	var issues []string

	if provider.Name == "" {
		issues = append(issues, fmt.Sprintf("%s: name is required", prefix))
	} else {
		prefix = fmt.Sprintf("%s %q", prefix, provider.Name)
	}

	switch provider.Kind {
	case KindHTML, KindComposite:
		if provider.BaseURL == "" {
			issues = append(issues, fmt.Sprintf("%s: base_url is required for %s providers", prefix, provider.Kind))
		}
	case KindIndex:
		if provider.IndexURL == "" {
			issues = append(issues, fmt.Sprintf("%s: index_url is required for index providers", prefix))
		}
	case KindCommand:
		if provider.Command == "" {
			issues = append(issues, fmt.Sprintf("%s: command is required for command providers", prefix))
		}
		if provider.ConfigPath == "" {
			issues = append(issues, fmt.Sprintf("%s: config_path is required for command providers", prefix))
		}
	default:
		issues = append(issues, fmt.Sprintf(
			"%s: kind must be one of html, composite, index, command, got %q", prefix, provider.Kind))
	}

	// Fields that only apply to some kinds.
	if provider.BaseURL != "" && provider.Kind != KindHTML && provider.Kind != KindComposite {
		issues = append(issues, fmt.Sprintf("%s: base_url is only valid on html and composite providers", prefix))
	}
	if provider.IssueSegment != "" && provider.Kind != KindComposite {
		issues = append(issues, fmt.Sprintf("%s: issue_segment is only valid on composite providers", prefix))
	}
	if provider.IndexURL != "" && provider.Kind != KindIndex {
		issues = append(issues, fmt.Sprintf("%s: index_url is only valid on index providers", prefix))
	}
	if provider.IndexTTL != "" && provider.Kind != KindIndex {
		issues = append(issues, fmt.Sprintf("%s: index_ttl is only valid on index providers", prefix))
	}
	if provider.Command != "" && provider.Kind != KindCommand {
		issues = append(issues, fmt.Sprintf("%s: command is only valid on command providers", prefix))
	}
	if provider.ConfigPath != "" && provider.Kind != KindCommand {
		issues = append(issues, fmt.Sprintf("%s: config_path is only valid on command providers", prefix))
	}
	if provider.Env != "" && provider.Kind != KindCommand {
		issues = append(issues, fmt.Sprintf("%s: env is only valid on command providers", prefix))
	}
	if provider.Status != nil && provider.Kind != KindHTML && provider.Kind != KindComposite {
		issues = append(issues, fmt.Sprintf("%s: status extraction is only valid on html and composite providers", prefix))
	}

	compiled, err := tracker.CompilePattern(provider.Pattern, provider.Prefix)
	if err != nil {
		issues = append(issues, fmt.Sprintf("%s: %v", prefix, err))
	} else if provider.Kind == KindComposite && compiled != nil && !hasCompositeGroups(compiled) {
		issues = append(issues, fmt.Sprintf(
			"%s: composite patterns must name the path and number capture groups "+
				"((?P<path>…)#(?P<number>…))", prefix))
	}
	if provider.Postfix != "" {
		if strings.Count(provider.Postfix, "%") != 1 || !strings.Contains(provider.Postfix, "%s") {
			issues = append(issues, fmt.Sprintf(
				"%s: postfix %q must interpolate the identifier with a single %%s", prefix, provider.Postfix))
		}
	}

	if provider.Fixup != nil {
		if _, err := tracker.NewReGroupFixup(provider.Fixup.Pattern, provider.Fixup.Label); err != nil {
			issues = append(issues, fmt.Sprintf("%s: fixup: %v", prefix, err))
		}
	}

	if provider.Status != nil {
		issues = append(issues, validateStatus(provider.Status, prefix)...)
	}

	if provider.Timeout != "" {
		if _, err := time.ParseDuration(provider.Timeout); err != nil {
			issues = append(issues, fmt.Sprintf("%s: invalid timeout %q: %v", prefix, provider.Timeout, err))
		}
	}
	if provider.IndexTTL != "" {
		if _, err := time.ParseDuration(provider.IndexTTL); err != nil {
			issues = append(issues, fmt.Sprintf("%s: invalid index_ttl %q: %v", prefix, provider.IndexTTL, err))
		}
	}

	return issues
}

func validateStatus(status *StatusDef, prefix string) []string {
	var issues []string

	switch status.Kind {
	case StatusBadge:
		if status.Class == "" {
			issues = append(issues, fmt.Sprintf("%s: status.class is required for badge extractors", prefix))
		}
	case StatusBox:
		if status.Selector == "" {
			issues = append(issues, fmt.Sprintf("%s: status.selector is required for box extractors", prefix))
		}
	default:
		issues = append(issues, fmt.Sprintf("%s: status.kind must be badge or box, got %q", prefix, status.Kind))
	}

	return issues
}

func validateBinding(binding BindingDef, providers []ProviderDef, names map[string]int, prefix string) []string {
	var issues []string

	boundKind := ""
	if binding.Provider == "" {
		issues = append(issues, fmt.Sprintf("%s: provider is required", prefix))
	} else if index, exists := names[binding.Provider]; !exists {
		issues = append(issues, fmt.Sprintf("%s: unknown provider %q", prefix, binding.Provider))
	} else {
		boundKind = providers[index].Kind
	}

	if len(binding.Channels) == 0 {
		issues = append(issues, fmt.Sprintf("%s: channels are required", prefix))
	}
	for _, glob := range binding.Channels {
		if glob == "" {
			issues = append(issues, fmt.Sprintf("%s: empty channel glob", prefix))
			continue
		}
		if _, err := path.Match(glob, "probe"); err != nil {
			issues = append(issues, fmt.Sprintf("%s: channel glob %q: %v", prefix, glob, err))
		}
	}

	if binding.Pattern != "" {
		compiled, err := tracker.CompilePattern(binding.Pattern, "")
		if err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", prefix, err))
		} else if boundKind == KindComposite && !hasCompositeGroups(compiled) {
			issues = append(issues, fmt.Sprintf(
				"%s: patterns bound to composite providers must name the path and number capture groups", prefix))
		}
	}

	return issues
}
