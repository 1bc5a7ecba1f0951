// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package truth

import "sync"

// Notifier wakes live tails when new events land in their scope. Each
// subscriber gets a buffered signal channel; Notify is a non-blocking
// send, so bursts of appends coalesce into one pending wakeup and the
// writer never stalls on a slow reader.
//
// A wakeup carries no data. The tail reacts by running ScanAfter from
// its cursor, which also covers any events that arrived between the
// scan and the wait.
type Notifier struct {
	mu   sync.RWMutex
	subs map[string]map[chan struct{}]struct{}
	all  map[chan struct{}]struct{}
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[string]map[chan struct{}]struct{}),
		all:  make(map[chan struct{}]struct{}),
	}
}

// Subscribe registers for append wakeups on one scope. The returned
// cancel func must be called when the tail ends; the channel is never
// closed, so a canceled subscriber simply stops receiving.
func (n *Notifier) Subscribe(scope string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	set, ok := n.subs[scope]
	if !ok {
		set = make(map[chan struct{}]struct{})
		n.subs[scope] = set
	}
	set[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if set, ok := n.subs[scope]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(n.subs, scope)
			}
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// SubscribeAll registers for append wakeups on every scope. Used by
// the live driver writer, which mirrors all scopes into one file tree.
func (n *Notifier) SubscribeAll() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.all[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		delete(n.all, ch)
		n.mu.Unlock()
	}
	return ch, cancel
}

// Notify signals every subscriber of the scope plus every all-scope
// subscriber. Subscribers with a wakeup already pending are skipped.
func (n *Notifier) Notify(scope string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.subs[scope] {
		select {
		case ch <- struct{}{}:
		default:
			// Wakeup already pending; the tail will rescan anyway.
		}
	}
	for ch := range n.all {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers reports how many tails are waiting on a scope.
func (n *Notifier) Subscribers(scope string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[scope])
}
