// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/ticketref/lib/clock"
	"github.com/bureau-foundation/ticketref/lib/tracker"
)

// fakeProvider scripts Resolve responses by identifier. Identifiers
// missing from replies resolve to err when set, ErrNotFound
// otherwise.
type fakeProvider struct {
	name    string
	pattern *regexp.Regexp
	replies map[string]string
	err     error
	calls   []tracker.ID
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Pattern() *regexp.Regexp { return p.pattern }

func (p *fakeProvider) Resolve(_ context.Context, id tracker.ID) (string, error) {
	p.calls = append(p.calls, id)
	if reply, ok := p.replies[id.String()]; ok {
		return reply, nil
	}
	if p.err != nil {
		return "", p.err
	}
	return "", fmt.Errorf("%w: no scripted reply for %s", tracker.ErrNotFound, id)
}

func testClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
}

func mustRegister(t *testing.T, engine *Engine, provider tracker.Provider, bindings []Binding) {
	t.Helper()
	if err := engine.Register(provider, bindings); err != nil {
		t.Fatalf("Register(%s): %v", provider.Name(), err)
	}
}

func TestHandleMessageNoMatch(t *testing.T) {
	engine := New(Config{Clock: testClock()})
	provider := &fakeProvider{
		name:    "trac",
		pattern: regexp.MustCompile(`\btor#([0-9]{2,})\b`),
		replies: map[string]string{"12": "#12: something"},
	}
	mustRegister(t, engine, provider, []Binding{{ChannelGlob: "#tor"}})

	if got := engine.HandleMessage(context.Background(), "#tor", "nothing to see here"); len(got) != 0 {
		t.Fatalf("HandleMessage = %v, want no replies", got)
	}
	if len(provider.calls) != 0 {
		t.Fatalf("provider was asked to resolve %v for a message without references", provider.calls)
	}
}

func TestChannelOptIn(t *testing.T) {
	engine := New(Config{Clock: testClock()})
	provider := &fakeProvider{
		name:    "trac",
		pattern: regexp.MustCompile(`\btor#([0-9]{2,})\b`),
		replies: map[string]string{"12": "#12: fix the thing"},
	}
	mustRegister(t, engine, provider, []Binding{{ChannelGlob: "#tor*"}})

	t.Run("bound channel replies", func(t *testing.T) {
		got := engine.HandleMessage(context.Background(), "#tor-dev", "see tor#12")
		want := []string{"#12: fix the thing"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("HandleMessage = %v, want %v", got, want)
		}
	})

	t.Run("unbound channel stays silent", func(t *testing.T) {
		if got := engine.HandleMessage(context.Background(), "#offtopic", "see tor#12"); len(got) != 0 {
			t.Fatalf("HandleMessage = %v, want no replies despite the provider's own pattern matching", got)
		}
	})

	t.Run("unregistered provider with no bindings stays inert", func(t *testing.T) {
		inert := &fakeProvider{
			name:    "inert",
			pattern: regexp.MustCompile(`\bidle#([0-9]+)\b`),
			replies: map[string]string{"1": "never sent"},
		}
		mustRegister(t, engine, inert, nil)
		if got := engine.HandleMessage(context.Background(), "#tor-dev", "idle#1"); len(got) != 0 {
			t.Fatalf("HandleMessage = %v, want no replies from an unbound provider", got)
		}
	})
}

func TestCooldownIdempotence(t *testing.T) {
	clk := testClock()
	engine := New(Config{Clock: clk})
	provider := &fakeProvider{
		name:    "trac",
		pattern: regexp.MustCompile(`\btor#([0-9]{2,})\b`),
		replies: map[string]string{"1234": "#1234: fix the thing"},
	}
	mustRegister(t, engine, provider, []Binding{{ChannelGlob: "#tor"}})

	first := engine.HandleMessage(context.Background(), "#tor", "tor#1234")
	if len(first) != 1 {
		t.Fatalf("first HandleMessage = %v, want one reply", first)
	}
	second := engine.HandleMessage(context.Background(), "#tor", "tor#1234")
	if len(second) != 0 {
		t.Fatalf("second HandleMessage = %v, want cooldown suppression", second)
	}

	clk.Advance(DefaultCooldown + time.Minute)
	third := engine.HandleMessage(context.Background(), "#tor", "tor#1234")
	if len(third) != 1 {
		t.Fatalf("HandleMessage after cooldown = %v, want one reply", third)
	}
}

func TestCooldownIsPerTarget(t *testing.T) {
	engine := New(Config{Clock: testClock()})
	provider := &fakeProvider{
		name:    "trac",
		pattern: regexp.MustCompile(`\btor#([0-9]{2,})\b`),
		replies: map[string]string{"1234": "#1234: fix the thing"},
	}
	mustRegister(t, engine, provider, []Binding{{ChannelGlob: "#tor*"}})

	if got := engine.HandleMessage(context.Background(), "#tor", "tor#1234"); len(got) != 1 {
		t.Fatalf("HandleMessage(#tor) = %v, want one reply", got)
	}
	if got := engine.HandleMessage(context.Background(), "#tor-dev", "tor#1234"); len(got) != 1 {
		t.Fatalf("HandleMessage(#tor-dev) = %v, want one reply, windows are per target", got)
	}
}

func TestCooldownConsumedOnFailure(t *testing.T) {
	clk := testClock()
	engine := New(Config{Clock: clk})
	provider := &fakeProvider{
		name:    "trac",
		pattern: regexp.MustCompile(`\btor#([0-9]{2,})\b`),
	}
	mustRegister(t, engine, provider, []Binding{{ChannelGlob: "#tor"}})

	if got := engine.HandleMessage(context.Background(), "#tor", "tor#4242"); len(got) != 0 {
		t.Fatalf("HandleMessage = %v, want no replies for an unresolvable reference", got)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("provider calls = %v, want one resolution attempt", provider.calls)
	}

	// The ticket appears after the failed lookup; the window is
	// already consumed, so the repeat stays silent.
	provider.replies = map[string]string{"4242": "#4242: now it exists"}
	if got := engine.HandleMessage(context.Background(), "#tor", "tor#4242"); len(got) != 0 {
		t.Fatalf("HandleMessage = %v, want the failed attempt to have consumed the window", got)
	}
	if len(provider.calls) != 1 {
		t.Fatalf("provider calls = %v, want no retry within the window", provider.calls)
	}

	clk.Advance(DefaultCooldown + time.Minute)
	if got := engine.HandleMessage(context.Background(), "#tor", "tor#4242"); len(got) != 1 {
		t.Fatalf("HandleMessage after cooldown = %v, want one reply", got)
	}
}

func TestCandidateCeiling(t *testing.T) {
	clk := testClock()
	engine := New(Config{Clock: clk})
	provider := &fakeProvider{
		name: "trac",
		replies: map[string]string{
			"1000": "a", "1001": "b", "1002": "c", "1003": "d", "1004": "e",
		},
	}
	mustRegister(t, engine, provider, []Binding{{ChannelGlob: "#tor", Default: true}})

	t.Run("over the ceiling drops the whole message", func(t *testing.T) {
		got := engine.HandleMessage(context.Background(), "#tor", "#1000 #1001 #1002 #1003 #1004")
		if len(got) != 0 {
			t.Fatalf("HandleMessage = %v, want zero replies for five candidates", got)
		}
		if len(provider.calls) != 0 {
			t.Fatalf("provider calls = %v, want none for a dropped message", provider.calls)
		}
	})

	t.Run("dropping does not consume cooldown slots", func(t *testing.T) {
		got := engine.HandleMessage(context.Background(), "#tor", "#1000")
		if len(got) != 1 {
			t.Fatalf("HandleMessage = %v, want one reply, the dropped message must not have consumed the slot", got)
		}
	})

	t.Run("at the ceiling resolves everything", func(t *testing.T) {
		got := engine.HandleMessage(context.Background(), "#tor", "#1001 #1002 #1003 #1004")
		want := []string{"b", "c", "d", "e"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("HandleMessage = %v, want %v", got, want)
		}
	})
}

func TestDefaultPatternPrecedence(t *testing.T) {
	engine := New(Config{Clock: testClock()})
	defaulted := &fakeProvider{
		name:    "a",
		replies: map[string]string{"9999": "reply from a"},
	}
	dedicated := &fakeProvider{
		name:    "b",
		replies: map[string]string{"9999": "reply from b"},
	}
	mustRegister(t, engine, defaulted, []Binding{{ChannelGlob: "#generic", Default: true}})
	mustRegister(t, engine, dedicated, []Binding{{ChannelGlob: "#generic", Pattern: `\bbug#([0-9]+)\b`}})

	got := engine.HandleMessage(context.Background(), "#generic", "#9999")
	want := []string{"reply from a"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("HandleMessage = %v, want %v: bare references belong to the default provider", got, want)
	}
	if len(dedicated.calls) != 0 {
		t.Fatalf("dedicated provider was asked to resolve %v for a bare reference", dedicated.calls)
	}
}

func TestDuplicateReferencesInOneMessage(t *testing.T) {
	engine := New(Config{Clock: testClock()})
	provider := &fakeProvider{
		name:    "trac",
		pattern: regexp.MustCompile(`\btor#([0-9]{2,})\b`),
		replies: map[string]string{"12": "#12: once"},
	}
	mustRegister(t, engine, provider, []Binding{{ChannelGlob: "#tor"}})

	got := engine.HandleMessage(context.Background(), "#tor", "tor#12 and again tor#12")
	want := []string{"#12: once"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("HandleMessage = %v, want a single reply for a repeated reference", got)
	}
}

func TestDiscoveryOrderIsProviderOrder(t *testing.T) {
	engine := New(Config{Clock: testClock()})
	first := &fakeProvider{
		name:    "a",
		pattern: regexp.MustCompile(`\ba#([0-9]+)\b`),
		replies: map[string]string{"2": "a two"},
	}
	second := &fakeProvider{
		name:    "b",
		pattern: regexp.MustCompile(`\bb#([0-9]+)\b`),
		replies: map[string]string{"1": "b one"},
	}
	mustRegister(t, engine, first, []Binding{{ChannelGlob: "#chan"}})
	mustRegister(t, engine, second, []Binding{{ChannelGlob: "#chan"}})

	got := engine.HandleMessage(context.Background(), "#chan", "b#1 comes before a#2 in the text")
	want := []string{"a two", "b one"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("HandleMessage = %v, want %v (registration order, not text order)", got, want)
	}
}

func TestCompositeCandidate(t *testing.T) {
	engine := New(Config{Clock: testClock()})
	provider := &fakeProvider{
		name:    "gitlab",
		pattern: regexp.MustCompile(`\b(?P<path>[\w/]+)#(?P<number>[0-9]{4,})\b`),
		replies: map[string]string{"mygroup/proj#1234": "#1234: fix the thing"},
	}
	mustRegister(t, engine, provider, []Binding{{ChannelGlob: "#chan"}})

	got := engine.HandleMessage(context.Background(), "#chan", "please review mygroup/proj#1234")
	want := []string{"#1234: fix the thing"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("HandleMessage = %v, want %v", got, want)
	}
	wantID := tracker.ID{Path: "mygroup/proj", Number: "1234"}
	if len(provider.calls) != 1 || provider.calls[0] != wantID {
		t.Fatalf("provider resolved %v, want exactly %v", provider.calls, wantID)
	}
}

func TestUnavailableProviderIsSkipped(t *testing.T) {
	engine := New(Config{Clock: testClock()})
	down := &fakeProvider{
		name:    "down",
		pattern: regexp.MustCompile(`\bdown#([0-9]+)\b`),
		err:     fmt.Errorf("%w: connection refused", tracker.ErrUnavailable),
	}
	up := &fakeProvider{
		name:    "up",
		pattern: regexp.MustCompile(`\bup#([0-9]+)\b`),
		replies: map[string]string{"2": "up two"},
	}
	mustRegister(t, engine, down, []Binding{{ChannelGlob: "#chan"}})
	mustRegister(t, engine, up, []Binding{{ChannelGlob: "#chan"}})

	got := engine.HandleMessage(context.Background(), "#chan", "down#1 up#2")
	want := []string{"up two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("HandleMessage = %v, want %v: one unreachable tracker must not block the rest", got, want)
	}
}

func TestDefaultCollision(t *testing.T) {
	t.Run("strict mode rejects", func(t *testing.T) {
		engine := New(Config{Clock: testClock(), StrictDefaults: true})
		mustRegister(t, engine, &fakeProvider{name: "a"}, []Binding{{ChannelGlob: "#chan", Default: true}})
		err := engine.Register(&fakeProvider{name: "b"}, []Binding{{ChannelGlob: "#chan", Default: true}})
		if err == nil || !strings.Contains(err.Error(), "default binding") {
			t.Fatalf("Register = %v, want default collision error", err)
		}
	})

	t.Run("lax mode lets the first registration win", func(t *testing.T) {
		engine := New(Config{Clock: testClock()})
		first := &fakeProvider{name: "a", replies: map[string]string{"1234": "from a"}}
		second := &fakeProvider{name: "b", replies: map[string]string{"1234": "from b"}}
		mustRegister(t, engine, first, []Binding{{ChannelGlob: "#chan", Default: true}})
		mustRegister(t, engine, second, []Binding{{ChannelGlob: "#chan", Default: true}})

		got := engine.HandleMessage(context.Background(), "#chan", "#1234")
		want := []string{"from a"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("HandleMessage = %v, want %v", got, want)
		}
	})
}

func TestRegisterValidation(t *testing.T) {
	engine := New(Config{Clock: testClock()})
	mustRegister(t, engine, &fakeProvider{name: "taken"}, nil)

	tests := []struct {
		name     string
		provider tracker.Provider
		bindings []Binding
		wantErr  string
	}{
		{
			name:     "empty provider name",
			provider: &fakeProvider{},
			wantErr:  "has no name",
		},
		{
			name:     "duplicate provider name",
			provider: &fakeProvider{name: "taken"},
			wantErr:  "already registered",
		},
		{
			name:     "binding without glob",
			provider: &fakeProvider{name: "x"},
			bindings: []Binding{{}},
			wantErr:  "without channel glob",
		},
		{
			name:     "dedicated pattern without capture group",
			provider: &fakeProvider{name: "y"},
			bindings: []Binding{{ChannelGlob: "#chan", Pattern: `#[0-9]+`}},
			wantErr:  "no capture group",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Register(tt.provider, tt.bindings)
			if err == nil {
				t.Fatalf("Register succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestActivePatterns(t *testing.T) {
	own := regexp.MustCompile(`\btor#([0-9]{2,})\b`)
	reg := &registration{
		provider: &fakeProvider{name: "trac", pattern: own},
		bindings: []compiledBinding{
			{glob: "#tor*", pattern: nil, isDefault: true},
			{glob: "#tor-dev", pattern: regexp.MustCompile(`\bticket:([0-9]+)\b`)},
			{glob: "#elsewhere", pattern: regexp.MustCompile(`\bother#([0-9]+)\b`)},
		},
	}

	t.Run("unbound channel has no patterns", func(t *testing.T) {
		if got := reg.activePatterns("#offtopic"); got != nil {
			t.Fatalf("activePatterns = %v, want nil", got)
		}
	})

	t.Run("default binding adds the bare pattern", func(t *testing.T) {
		got := reg.activePatterns("#tor")
		want := []string{own.String(), tracker.BarePattern.String()}
		if !reflect.DeepEqual(patternSources(got), want) {
			t.Fatalf("activePatterns = %v, want %v", patternSources(got), want)
		}
	})

	t.Run("dedicated pattern joins for its channel only", func(t *testing.T) {
		got := reg.activePatterns("#tor-dev")
		want := []string{own.String(), `\bticket:([0-9]+)\b`, tracker.BarePattern.String()}
		if !reflect.DeepEqual(patternSources(got), want) {
			t.Fatalf("activePatterns = %v, want %v", patternSources(got), want)
		}
	})

	t.Run("dedicated pattern equal to own runs once", func(t *testing.T) {
		dup := &registration{
			provider: &fakeProvider{name: "trac", pattern: own},
			bindings: []compiledBinding{{glob: "#tor", pattern: regexp.MustCompile(own.String())}},
		}
		got := dup.activePatterns("#tor")
		if len(got) != 1 {
			t.Fatalf("activePatterns = %v, want the duplicate collapsed", patternSources(got))
		}
	})
}

func patternSources(patterns []*regexp.Regexp) []string {
	sources := make([]string, len(patterns))
	for i, pattern := range patterns {
		sources[i] = pattern.String()
	}
	return sources
}
