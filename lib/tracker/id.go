// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

// ID identifies one ticket at one tracker, as captured from a chat
// message. Number is the numeric portion. Path is empty for plain
// identifiers and carries the project scope for composite trackers
// ("mygroup/proj#1234").
//
// ID is a comparable value type; the dispatch engine uses it directly
// inside rate-limit cache keys.
type ID struct {
	Path   string
	Number string
}

// String returns the canonical text form: "1234" for plain
// identifiers, "mygroup/proj#1234" for composite ones. Postfix
// decorations interpolate this form.
func (id ID) String() string {
	if id.Path == "" {
		return id.Number
	}
	return id.Path + "#" + id.Number
}

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}
