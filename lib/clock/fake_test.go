// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	if got := c.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Fatalf("Now() after Advance = %v, want %v", got, start.Add(90*time.Second))
	}
}

func TestFakeAfter(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	ch := c.After(time.Minute)
	select {
	case <-ch:
		t.Fatal("timer fired before Advance")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired before its deadline")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case fired := <-ch:
		if !fired.Equal(start.Add(time.Minute)) {
			t.Errorf("timer fired at %v, want %v", fired, start.Add(time.Minute))
		}
	default:
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestFakeAfterImmediate(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
	select {
	case <-c.After(-time.Second):
	default:
		t.Fatal("After(negative) did not fire immediately")
	}
}

func TestFakeAdvanceFiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	// Register out of order; they must fire in deadline order with
	// each observing its own deadline.
	third := c.After(3 * time.Second)
	first := c.After(1 * time.Second)
	second := c.After(2 * time.Second)

	c.Advance(5 * time.Second)

	at1 := <-first
	at2 := <-second
	at3 := <-third
	if !at1.Equal(start.Add(1 * time.Second)) {
		t.Errorf("first fired at %v, want %v", at1, start.Add(1*time.Second))
	}
	if !at2.Equal(start.Add(2 * time.Second)) {
		t.Errorf("second fired at %v, want %v", at2, start.Add(2*time.Second))
	}
	if !at3.Equal(start.Add(3 * time.Second)) {
		t.Errorf("third fired at %v, want %v", at3, start.Add(3*time.Second))
	}
	if got := c.PendingCount(); got != 0 {
		t.Errorf("PendingCount after Advance = %d, want 0", got)
	}
}

func TestFakeSleep(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	done := make(chan struct{})
	go func() {
		c.Sleep(time.Hour)
		close(done)
	}()

	c.WaitForTimers(1)
	select {
	case <-done:
		t.Fatal("Sleep returned before Advance")
	default:
	}

	c.Advance(time.Hour)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakePartialAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := Fake(start)

	near := c.After(time.Second)
	far := c.After(time.Hour)

	c.Advance(time.Minute)
	select {
	case <-near:
	default:
		t.Fatal("near timer did not fire")
	}
	select {
	case <-far:
		t.Fatal("far timer fired early")
	default:
	}
	if got := c.PendingCount(); got != 1 {
		t.Errorf("PendingCount = %d, want 1", got)
	}
}
