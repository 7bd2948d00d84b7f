// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Matrix client-server API for the
// ticketref bot.
//
// The package provides two core types. [Client] is an unauthenticated
// Matrix client that handles password login, returning authenticated
// [DirectSession] values. Client holds the homeserver URL and HTTP
// transport, shared across sessions derived from it.
//
// [DirectSession] wraps a Client with an access token for authenticated
// operations: incremental sync with long-polling, joining rooms, room
// alias resolution, state event reads, message sends (idempotent PUT
// with transaction IDs), and identity verification (WhoAmI).
//
// The access token is stored in mmap-backed secret.Buffer memory (locked
// against swap, excluded from core dumps); callers must call
// DirectSession.Close to release the protected memory.
//
// All API errors are returned as [*MatrixError] with the standard Matrix
// error code (M_FORBIDDEN, M_NOT_FOUND, etc.) and HTTP status code.
// [IsMatrixError] tests for a specific error code. Request URLs are
// built by string concatenation rather than url.URL to avoid
// double-encoding of path segments that contain URL-encoded characters
// (such as room aliases with slashes).
package messaging
