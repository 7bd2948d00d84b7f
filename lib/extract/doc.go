// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package extract turns raw tracker HTTP responses into title and
// status strings.
//
// [Parse] decodes a response body into a queryable document, honoring
// the charset declared in the Content-Type header (with the usual
// meta-tag and BOM fallbacks) so that non-UTF-8 trackers render
// correctly. [Title] reads the document's title element; a missing
// title is an extraction failure, not an empty string.
//
// Status extraction is a separate concern because trackers disagree
// about markup: [BadgeStatus] reads a status badge identified by a
// fixed CSS class, [BoxStatus] reads a status region that must be
// unique in the document to count. Both return "" when the document
// has no usable status.
//
// All extracted text is whitespace-collapsed via [CollapseSpace]
// before anything downstream sees it.
package extract
