// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

package truth

import (
	"sync"
	"testing"
	"time"
)

func TestNotifier_SubscribeAndNotify(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe("mission-1")
	defer cancel()

	n.Notify("mission-1")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Expected a wakeup")
	}
}

func TestNotifier_ScopeIsolation(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe("mission-1")
	defer cancel()

	n.Notify("mission-2")

	select {
	case <-ch:
		t.Error("Wakeup leaked across scopes")
	default:
	}
}

func TestNotifier_CoalescesBursts(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe("mission-1")
	defer cancel()

	for i := 0; i < 100; i++ {
		n.Notify("mission-1")
	}

	// Exactly one wakeup is pending
	select {
	case <-ch:
	default:
		t.Fatal("Expected a pending wakeup")
	}
	select {
	case <-ch:
		t.Error("Expected bursts to coalesce into one wakeup")
	default:
	}
}

func TestNotifier_MultipleSubscribers(t *testing.T) {
	n := NewNotifier()

	ch1, cancel1 := n.Subscribe("mission-1")
	defer cancel1()
	ch2, cancel2 := n.Subscribe("mission-1")
	defer cancel2()

	if got := n.Subscribers("mission-1"); got != 2 {
		t.Errorf("Subscribers = %d, want 2", got)
	}

	n.Notify("mission-1")

	for i, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		default:
			t.Errorf("Subscriber %d missed the wakeup", i)
		}
	}
}

func TestNotifier_CancelStopsDelivery(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe("mission-1")
	cancel()

	if got := n.Subscribers("mission-1"); got != 0 {
		t.Errorf("Subscribers after cancel = %d, want 0", got)
	}

	n.Notify("mission-1")

	select {
	case <-ch:
		t.Error("Canceled subscriber received a wakeup")
	default:
	}

	// Cancel is safe to call again
	cancel()
}

func TestNotifier_SubscribeAllSeesEveryScope(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.SubscribeAll()
	defer cancel()

	for _, scope := range []string{"mission-1", "mission-2"} {
		n.Notify(scope)

		select {
		case <-ch:
		default:
			t.Errorf("All-scope subscriber missed a wakeup for %q", scope)
		}
	}

	// All-scope subscriptions do not count toward per-scope totals.
	if got := n.Subscribers("mission-1"); got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}

	cancel()
	n.Notify("mission-1")
	select {
	case <-ch:
		t.Error("Canceled all-scope subscriber received a wakeup")
	default:
	}
}

func TestNotifier_NotifyWithoutSubscribers(t *testing.T) {
	n := NewNotifier()

	// Must not panic or block
	n.Notify("mission-1")

	if got := n.Subscribers("mission-1"); got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}
}

func TestNotifier_ConcurrentSubscribeNotify(t *testing.T) {
	n := NewNotifier()

	var wg sync.WaitGroup
	numGoroutines := 20
	operationsPerGoroutine := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				ch, cancel := n.Subscribe("mission-1")
				n.Notify("mission-1")
				select {
				case <-ch:
				default:
				}
				cancel()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < operationsPerGoroutine; j++ {
			n.Notify("mission-1")
		}
	}()

	wg.Wait()

	if got := n.Subscribers("mission-1"); got != 0 {
		t.Errorf("Subscribers after teardown = %d, want 0", got)
	}
}

func BenchmarkNotifier_Notify(b *testing.B) {
	n := NewNotifier()
	for i := 0; i < 8; i++ {
		_, cancel := n.Subscribe("mission-1")
		defer cancel()
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n.Notify("mission-1")
	}
}
