// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/ticketref/lib/clock"
	"github.com/bureau-foundation/ticketref/lib/tracker"
)

const (
	// DefaultCooldown is the repeat-suppression window per (target,
	// identifier) pair.
	DefaultCooldown = 30 * time.Minute

	// DefaultMaxCandidates caps how many references a single message
	// may trigger; a message with more is dropped whole. The ceiling
	// bounds fetch fan-out from pathological messages.
	DefaultMaxCandidates = 4
)

// cooldownCacheLimit bounds the rate-limiter cache. Entries whose
// window has fully elapsed are evicted once the map grows past it;
// they behave identically to absent entries.
const cooldownCacheLimit = 4096

// Config carries the engine knobs. The zero value selects defaults
// for everything.
type Config struct {
	// Cooldown overrides DefaultCooldown.
	Cooldown time.Duration

	// MaxCandidates overrides DefaultMaxCandidates.
	MaxCandidates int

	// StrictDefaults makes a second default binding for an
	// already-claimed channel glob a registration error instead of a
	// warning.
	StrictDefaults bool

	// Clock supplies time for cooldown bookkeeping. Defaults to the
	// real clock; tests inject a fake.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine matches ticket references in chat messages and resolves
// them into reply lines. Register every provider before the first
// HandleMessage call; registration is not synchronized. HandleMessage
// itself is safe for concurrent use.
type Engine struct {
	cooldown      time.Duration
	maxCandidates int
	strict        bool
	clock         clock.Clock
	logger        *slog.Logger

	registrations []*registration
	names         map[string]bool

	mu     sync.Mutex
	recent map[cooldownKey]*rate.Limiter
}

// cooldownKey identifies one reply window. The identifier is part of
// the key by value, so composite identifiers dedupe like plain ones.
type cooldownKey struct {
	target string
	id     tracker.ID
}

// New builds an engine with no providers registered.
func New(cfg Config) *Engine {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cooldown:      cooldown,
		maxCandidates: maxCandidates,
		strict:        cfg.StrictDefaults,
		clock:         clk,
		logger:        logger,
		names:         make(map[string]bool),
		recent:        make(map[cooldownKey]*rate.Limiter),
	}
}

// Register adds a provider and its channel bindings. Registration
// order decides reply order when several providers match the same
// message, and first-registered wins when two default bindings cover
// the same channel. A provider registered with no bindings is valid
// but inert until a binding opts a channel in.
func (e *Engine) Register(provider tracker.Provider, bindings []Binding) error {
	name := provider.Name()
	if name == "" {
		return fmt.Errorf("dispatch: provider has no name")
	}
	if e.names[name] {
		return fmt.Errorf("dispatch: provider %s already registered", name)
	}
	compiled := make([]compiledBinding, 0, len(bindings))
	for _, binding := range bindings {
		if binding.ChannelGlob == "" {
			return fmt.Errorf("dispatch: provider %s: binding without channel glob", name)
		}
		if _, err := path.Match(binding.ChannelGlob, "probe"); err != nil {
			return fmt.Errorf("dispatch: provider %s: channel glob %q: %w", name, binding.ChannelGlob, err)
		}
		var pattern *regexp.Regexp
		if binding.Pattern != "" {
			var err error
			pattern, err = tracker.CompilePattern(binding.Pattern, "")
			if err != nil {
				return fmt.Errorf("dispatch: provider %s: binding %s: %w", name, binding.ChannelGlob, err)
			}
		}
		if binding.Default {
			if err := e.checkDefaultCollision(name, binding.ChannelGlob); err != nil {
				return err
			}
		}
		compiled = append(compiled, compiledBinding{
			glob:      binding.ChannelGlob,
			pattern:   pattern,
			isDefault: binding.Default,
		})
	}
	e.registrations = append(e.registrations, &registration{provider: provider, bindings: compiled})
	e.names[name] = true
	return nil
}

// checkDefaultCollision enforces at most one default provider per
// channel glob: a second claim is a warning (first registration wins
// at dispatch time) or, under StrictDefaults, an error.
func (e *Engine) checkDefaultCollision(name, glob string) error {
	for _, reg := range e.registrations {
		for _, binding := range reg.bindings {
			if !binding.isDefault || binding.glob != glob {
				continue
			}
			if e.strict {
				return fmt.Errorf("dispatch: default binding for %s already held by %s, refusing %s",
					glob, reg.provider.Name(), name)
			}
			e.logger.Warn("second default binding for channel glob, first registration wins",
				"glob", glob, "existing", reg.provider.Name(), "adding", name)
		}
	}
	return nil
}

// candidate is one matched reference awaiting resolution.
type candidate struct {
	provider tracker.Provider
	id       tracker.ID
}

// HandleMessage is the entry point the chat layer calls once per
// received message. It returns the reply lines for target in
// discovery order; an empty result means stay silent. It never
// fails: per-candidate resolution errors are logged and skipped, and
// their cooldown slots stay consumed.
func (e *Engine) HandleMessage(ctx context.Context, target, text string) []string {
	candidates := e.collect(target, text)
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) > e.maxCandidates {
		e.logger.Debug("dropping message with too many references",
			"target", target, "candidates", len(candidates), "ceiling", e.maxCandidates)
		return nil
	}

	surviving := candidates[:0]
	for _, cand := range candidates {
		if !e.consumeCooldown(target, cand.id) {
			e.logger.Debug("reference in cooldown",
				"target", target, "provider", cand.provider.Name(), "id", cand.id.String())
			continue
		}
		surviving = append(surviving, cand)
	}

	var replies []string
	for _, cand := range surviving {
		reply, err := cand.provider.Resolve(ctx, cand.id)
		if err != nil {
			if errors.Is(err, tracker.ErrNotFound) {
				e.logger.Debug("reference did not resolve",
					"target", target, "provider", cand.provider.Name(), "id", cand.id.String(), "error", err)
			} else {
				e.logger.Warn("tracker lookup failed",
					"target", target, "provider", cand.provider.Name(), "id", cand.id.String(), "error", err)
			}
			continue
		}
		replies = append(replies, reply)
	}
	return replies
}

// collect runs every active pattern over the message and lists the
// matches in discovery order: providers in registration order, then
// patterns, then match position. Duplicates stay; the ceiling counts
// them and the cooldown pass suppresses them.
func (e *Engine) collect(target, text string) []candidate {
	var candidates []candidate
	for _, reg := range e.registrations {
		for _, pattern := range reg.activePatterns(target) {
			for _, match := range pattern.FindAllStringSubmatch(text, -1) {
				id := extractID(pattern, match)
				if id.IsZero() {
					continue
				}
				candidates = append(candidates, candidate{provider: reg.provider, id: id})
			}
		}
	}
	return candidates
}

// extractID pulls the identifier out of one match: the "path" and
// "number" named groups when the pattern declares both, capture
// group one otherwise.
func extractID(pattern *regexp.Regexp, match []string) tracker.ID {
	pathIndex := pattern.SubexpIndex("path")
	numberIndex := pattern.SubexpIndex("number")
	if pathIndex > 0 && numberIndex > 0 {
		return tracker.ID{Path: match[pathIndex], Number: match[numberIndex]}
	}
	return tracker.ID{Number: match[1]}
}

// consumeCooldown reports whether (target, id) is outside its
// cooldown window and, when it is, starts a new one. Each key owns a
// rate limiter with burst one refilling over the cooldown, driven by
// the injected clock.
func (e *Engine) consumeCooldown(target string, id tracker.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := cooldownKey{target: target, id: id}
	limiter, ok := e.recent[key]
	if !ok {
		if len(e.recent) >= cooldownCacheLimit {
			e.evictRecoveredLocked()
		}
		limiter = rate.NewLimiter(rate.Every(e.cooldown), 1)
		e.recent[key] = limiter
	}
	return limiter.AllowN(e.clock.Now(), 1)
}

func (e *Engine) evictRecoveredLocked() {
	now := e.clock.Now()
	for key, limiter := range e.recent {
		if limiter.TokensAt(now) >= 1 {
			delete(e.recent, key)
		}
	}
}
