// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch implements the reference-detection and reply
// engine: given one chat message, it finds ticket references, maps
// each to its provider, suppresses repeats within a cooldown window,
// resolves the survivors, and returns the reply lines in discovery
// order.
//
// A message passes through fixed stages. Collect runs every pattern
// active for the target channel (a provider's own pattern, the
// dedicated patterns of its matching bindings, and the bare pattern
// when a matching binding is a default one) and lists the matches in
// discovery order, duplicates included. A message whose candidate
// count exceeds the ceiling is dropped whole. Each surviving
// candidate then consumes one cooldown slot per (target, identifier)
// pair before resolution, so a failed lookup is not retried until
// the window elapses. Resolution is sequential and failures are
// logged and skipped; the engine never returns an error to the chat
// layer.
package dispatch
