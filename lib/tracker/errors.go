// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import "errors"

// Errors returned by Provider.Resolve. Callers test with errors.Is.
var (
	// ErrNotFound means the identifier does not correspond to an
	// existing ticket: the tracker answered with an error status, an
	// empty result, a no-match sentinel, or the lookup index is
	// absent. The candidate is skipped and its cooldown slot stays
	// consumed.
	ErrNotFound = errors.New("tracker: ticket not found")

	// ErrUnavailable means the tracker could not be reached at all
	// (network failure, command launch failure, fetch timeout).
	// Treated like ErrNotFound for chat purposes; the distinction
	// only affects log severity.
	ErrUnavailable = errors.New("tracker: tracker unavailable")
)
