// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import "github.com/PuerkitoBio/goquery"

// StatusExtractor derives a short status string ("new", "closed",
// "assigned") from a parsed tracker page. Implementations return ""
// when the page carries no recognizable status; callers then skip the
// status annotation entirely.
type StatusExtractor interface {
	Status(document *goquery.Document) string
}

// BadgeStatus reads the visible text of the first element marked with
// a fixed CSS class. Trac-style trackers render the ticket state as
// an inline badge whose class name is stable across skins.
type BadgeStatus struct {
	// Class is the bare CSS class name, without a leading dot.
	Class string
}

// Status returns the collapsed text of the first element carrying the
// class, or "" when no element does.
func (b BadgeStatus) Status(document *goquery.Document) string {
	marked := document.Find("." + b.Class)
	if marked.Length() == 0 {
		return ""
	}
	return CollapseSpace(marked.First().Text())
}

// BoxStatus reads a status region identified by a CSS selector.
// Unlike BadgeStatus it refuses to guess: when the selector matches
// zero or more than one region the document's status layout is not
// what we expect, and no status is better than a wrong one.
type BoxStatus struct {
	// Selector is a CSS selector that must match exactly one element.
	Selector string
}

// Status returns the collapsed text of the unique matching region, or
// "" when the selector matches zero or multiple regions.
func (b BoxStatus) Status(document *goquery.Document) string {
	regions := document.Find(b.Selector)
	if regions.Length() != 1 {
		return ""
	}
	return CollapseSpace(regions.Text())
}
