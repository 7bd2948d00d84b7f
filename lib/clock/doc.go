// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock parameter instead of calling time.Now,
// time.After, or time.Sleep directly: Real() gives standard library
// behavior, Fake() gives a deterministic clock that only moves when
// Advance is called. Cooldown windows, cache expiry, and retry backoff
// are all driven through this interface so tests never sleep for real.
//
// # Wiring Pattern
//
// Add a Clock field to structs that use time, or pass one at
// construction. In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	// ... start goroutines ...
//	c.WaitForTimers(1)         // wait for a goroutine to block on After/Sleep
//	c.Advance(5 * time.Second) // fire the waiter deterministically
//
// WaitForTimers eliminates the race between a goroutine registering its
// waiter and the test advancing the clock, which is what makes backoff
// loops testable without real sleeps.
package clock
