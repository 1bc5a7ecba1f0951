// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package auth

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nova-telemetry/nova/internal/config"
)

const (
	// DefaultLockoutThreshold is the failed-attempt count that trips a
	// lockout when none is configured.
	DefaultLockoutThreshold = 5

	// DefaultLockoutDuration is how long a tripped lockout holds.
	DefaultLockoutDuration = 15 * time.Minute
)

type lockoutEntry struct {
	failures    int
	lockedUntil time.Time
	lastFailure time.Time
}

// LockoutTracker rejects login attempts for a username+IP pair after
// repeated failures. State is in-memory only: a restart clears all
// lockouts, which is acceptable because the tracker exists to slow
// online guessing, not to be an audit record.
type LockoutTracker struct {
	mu        sync.Mutex
	entries   map[string]*lockoutEntry
	threshold int
	duration  time.Duration
	log       zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewLockoutTracker builds a tracker from security configuration,
// applying defaults for unset values.
func NewLockoutTracker(cfg *config.SecurityConfig, log zerolog.Logger) *LockoutTracker {
	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	return &LockoutTracker{
		entries:   make(map[string]*lockoutEntry),
		threshold: threshold,
		duration:  duration,
		log:       log.With().Str("component", "lockout").Logger(),
		now:       time.Now,
	}
}

func lockoutKey(username, ip string) string {
	return username + "|" + ip
}

// Locked reports whether the pair is currently locked out and, if so,
// how long until the lockout expires.
func (t *LockoutTracker) Locked(username, ip string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[lockoutKey(username, ip)]
	if !ok {
		return false, 0
	}
	now := t.now()
	if e.lockedUntil.After(now) {
		return true, e.lockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure notes a failed attempt and reports whether the pair is
// now locked. Crossing the threshold starts (or restarts) the lockout
// window.
func (t *LockoutTracker) RecordFailure(username, ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()

	key := lockoutKey(username, ip)
	e, ok := t.entries[key]
	if !ok {
		e = &lockoutEntry{}
		t.entries[key] = e
	}

	now := t.now()
	e.failures++
	e.lastFailure = now

	if e.failures >= t.threshold {
		e.lockedUntil = now.Add(t.duration)
		t.log.Warn().
			Str("username", username).
			Str("ip", ip).
			Int("failures", e.failures).
			Dur("duration", t.duration).
			Msg("account locked after repeated login failures")
		return true
	}
	return false
}

// RecordSuccess clears the failure history for the pair.
func (t *LockoutTracker) RecordSuccess(username, ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, lockoutKey(username, ip))
}

// pruneLocked drops entries whose lockout expired and whose last
// failure is older than the lockout duration. Called with mu held.
func (t *LockoutTracker) pruneLocked() {
	now := t.now()
	for key, e := range t.entries {
		if e.lockedUntil.After(now) {
			continue
		}
		if now.Sub(e.lastFailure) > t.duration {
			delete(t.entries, key)
		}
	}
}
