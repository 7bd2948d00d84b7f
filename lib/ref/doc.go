// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable Matrix identifiers.
//
// User IDs, room IDs, room aliases, and event IDs arrive from the
// homeserver as raw strings; they are parsed into these value types at
// the API boundary and stay validated from then on. All constructors
// return errors for structurally invalid input, and the MustParse
// variants panic for use in tests and static initialization.
//
// [RoomAlias.Channel] produces the channel form of an alias — the
// '#name' part without the ':server' suffix — which is what tracker
// bindings match their channel globs against.
//
// JSON marshaling uses the canonical Matrix string form via
// encoding.TextMarshaler; room IDs additionally unmarshal as JSON map
// keys in /sync responses.
package ref
