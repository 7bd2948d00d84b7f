// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"fmt"
	"regexp"
)

// BarePattern is the bot-wide generic bare-identifier pattern: "#"
// followed by at least four digits, delimited so that fragments glued
// to word characters ("x#1234", "#12345abc") do not match. Providers
// opt into it per channel via the binding default flag.
var BarePattern = regexp.MustCompile(`\B#([0-9]{4,})\b`)

// CompilePattern compiles a provider match pattern. When pattern is
// empty and prefix is set, a pattern matching "<prefix>#<2+ digits>"
// (case-insensitive, word-boundary-delimited) is synthesized. When
// both are empty the result is nil: the provider has no pattern of
// its own and matches only through channel bindings.
//
// A compiled pattern must carry at least one capture group: group one
// holds the ticket number, or the named groups "path" and "number"
// hold the two segments of a composite identifier.
func CompilePattern(pattern, prefix string) (*regexp.Regexp, error) {
	if pattern == "" {
		if prefix == "" {
			return nil, nil
		}
		pattern = synthesizePattern(prefix)
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}
	if compiled.NumSubexp() < 1 {
		return nil, fmt.Errorf("pattern %q has no capture group", pattern)
	}
	return compiled, nil
}

// synthesizePattern builds the case-insensitive prefix pattern. The
// leading boundary depends on the prefix's first character: \b when
// it is a word character, \B otherwise. Both reject matches glued to
// a preceding word character.
func synthesizePattern(prefix string) string {
	boundary := `\b`
	if !isWordByte(prefix[0]) {
		boundary = `\B`
	}
	return `(?i)` + boundary + regexp.QuoteMeta(prefix) + `#([0-9]{2,})\b`
}

func isWordByte(c byte) bool {
	return c == '_' ||
		('0' <= c && c <= '9') ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z')
}
