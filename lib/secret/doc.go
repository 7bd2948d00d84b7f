// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds sensitive material such as homeserver access
// tokens and login passwords in memory that the Go runtime cannot
// observe or relocate.
//
// [Buffer] allocates its backing store outside the Go heap via
// mmap(MAP_ANONYMOUS), locks it into physical RAM via mlock so it is
// never swapped to disk, and excludes it from core dumps via
// madvise(MADV_DONTDUMP). On Close the memory is zeroed, unlocked,
// and unmapped. Because the garbage collector never sees the region
// it cannot copy the secret into heap memory that outlives the
// buffer.
//
// Constructors:
//
//   - [New] -- allocates a zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into protected memory, zeros the source
//   - [ReadFromPath] -- reads a token file, or stdin when path is "-"
//
// Access via [Buffer.Bytes] (slice into the mmap region) or
// [Buffer.String] (heap copy for API boundaries that demand a
// string). After Close any access panics. Close is idempotent.
//
// Depends on golang.org/x/sys/unix only. Used by the bot binary for
// access-token files and by the login command for password handling.
package secret
