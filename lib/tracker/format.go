// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bureau-foundation/ticketref/lib/extract"
)

// Fixup rewrites a raw extracted title before prefix and postfix
// decoration. Implementations receive the identifier so they can
// label the title with it.
type Fixup interface {
	Apply(id ID, title string) string
}

// Formatting is the decoration pipeline shared by every provider
// variant. Render applies it in a fixed order: collapse whitespace,
// append the status annotation, apply the fixup, prepend the prefix,
// append the postfix. Status comes before fixup so that fixup
// patterns can see (or strip) the annotation.
type Formatting struct {
	// Prefix is prepended verbatim: prefix "tor" turns "#1234: ..."
	// into "tor#1234: ...".
	Prefix string

	// Postfix is appended with the identifier interpolated for its
	// single %s verb, e.g. " - https://bugs.torproject.org/%s".
	Postfix string

	// Fixup optionally rewrites the title. Nil passes the title
	// through untouched.
	Fixup Fixup
}

// Render produces the final reply line for a fetched title. status is
// "" when the provider found none; otherwise it is appended to the
// collapsed title as " - [<status>]".
func (f Formatting) Render(id ID, title, status string) string {
	title = extract.CollapseSpace(title)
	if status != "" {
		title += " - [" + status + "]"
	}
	if f.Fixup != nil {
		title = f.Fixup.Apply(id, title)
	}
	if f.Prefix != "" {
		title = f.Prefix + title
	}
	if f.Postfix != "" {
		title += fmt.Sprintf(f.Postfix, id)
	}
	return title
}

// validate rejects postfix templates that would not interpolate the
// identifier exactly once.
func (f Formatting) validate() error {
	if f.Postfix != "" {
		if strings.Count(f.Postfix, "%") != 1 || !strings.Contains(f.Postfix, "%s") {
			return fmt.Errorf("postfix %q must interpolate the identifier with a single %%s", f.Postfix)
		}
	}
	return nil
}

// defaultFixupLabel is the layout ReGroupFixup stamps onto every
// title: identifier first, then the (possibly rewritten) title.
const defaultFixupLabel = "#%s: %s"

// ReGroupFixup strips tracker boilerplate from titles. Title elements
// usually embed site chrome ("Issue #123: Fix the thing - Tracker
// Name"); when the fixup's pattern matches at the start of the title
// and captures a group, the title is replaced by that group's
// content, otherwise it is kept whole. Either way the result is
// stamped with the identifier via the label layout.
type ReGroupFixup struct {
	pattern *regexp.Regexp
	label   string
}

// NewReGroupFixup compiles the boilerplate-stripping pattern, which
// matches anchored at the start of the title. An empty pattern builds
// a label-only fixup. label overrides the default "#%s: %s" layout
// and must interpolate exactly two %s verbs (identifier, then title);
// empty selects the default.
func NewReGroupFixup(pattern, label string) (*ReGroupFixup, error) {
	fixup := &ReGroupFixup{label: label}
	if fixup.label == "" {
		fixup.label = defaultFixupLabel
	}
	if strings.Count(fixup.label, "%") != 2 || strings.Count(fixup.label, "%s") != 2 {
		return nil, fmt.Errorf("tracker: fixup label %q must have exactly two %%s verbs", fixup.label)
	}
	if pattern != "" {
		compiled, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("tracker: compiling fixup pattern %q: %w", pattern, err)
		}
		fixup.pattern = compiled
	}
	return fixup, nil
}

// Apply implements Fixup.
func (f *ReGroupFixup) Apply(id ID, title string) string {
	if f.pattern != nil {
		if match := f.pattern.FindStringSubmatch(title); len(match) > 1 {
			title = match[1]
		}
	}
	return fmt.Sprintf(f.label, id, title)
}
