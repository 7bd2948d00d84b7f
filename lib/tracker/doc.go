// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracker implements reference providers: named strategies
// that resolve a ticket identifier mentioned in chat into a one-line
// summary fetched from an external tracker.
//
// Four provider variants cover the deployed trackers:
//
//   - [HTMLTitleProvider] -- GET baseURL+number, extract the page title
//   - [CompositeProvider] -- path-scoped tickets ("group/proj#1234")
//   - [IndexedTextProvider] -- line lookup in a cached index document
//   - [CommandProvider] -- shell out to a ticket-system CLI client
//
// All variants share the [Provider] contract and the [Formatting]
// pipeline (whitespace collapse, status annotation, fixup, prefix,
// postfix). Resolution failures are classified into [ErrNotFound]
// (the ticket does not exist) and [ErrUnavailable] (the tracker
// cannot be reached); both are recoverable per candidate and never
// abort dispatch.
//
// A provider's own match pattern is either given explicitly or
// synthesized from its prefix ("tor" becomes a case-insensitive
// "tor#<digits>" pattern); see [CompilePattern]. Every fetch is
// bounded by a per-fetch timeout regardless of transport.
package tracker
