// Package timers owns the short-lived scheduled callbacks of a room session.
//
// Every callback is keyed. Scheduling a key again replaces the earlier
// timer, and Stop cancels everything at once so nothing fires against a
// torn-down session. Callbacks run with the owner's lock held, which keeps
// them serialized with inbound events and user actions.
package timers

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler is the subset of Group the session subsystems depend on.
type Scheduler interface {
	Schedule(key string, d time.Duration, fn func())
	Cancel(key string) bool
	Pending(key string) bool
}

type entry struct {
	timer *clock.Timer
	gen   uint64
}

// Group is a set of keyed, cancellable timers bound to one owner lock.
type Group struct {
	clock   clock.Clock
	owner   sync.Locker
	mu      sync.Mutex
	entries map[string]entry
	gen     uint64
	stopped bool
}

// NewGroup returns a group whose callbacks run while holding owner.
// Schedule and Cancel must be called with owner already held.
func NewGroup(clk clock.Clock, owner sync.Locker) *Group {
	return &Group{
		clock:   clk,
		owner:   owner,
		entries: make(map[string]entry),
	}
}

// Schedule runs fn after d unless the key is rescheduled, cancelled, or
// the group is stopped first.
func (g *Group) Schedule(key string, d time.Duration, fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	if prev, ok := g.entries[key]; ok {
		prev.timer.Stop()
	}
	g.gen++
	gen := g.gen
	t := g.clock.AfterFunc(d, func() { g.fire(key, gen, fn) })
	g.entries[key] = entry{timer: t, gen: gen}
}

// Cancel stops the timer for key. It reports whether one was pending.
func (g *Group) Cancel(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(g.entries, key)
	return true
}

// Pending reports whether key has a timer that has not fired yet.
func (g *Group) Pending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.entries[key]
	return ok
}

// Len returns the number of pending timers.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Stop cancels every pending timer. Later Schedule calls are ignored.
func (g *Group) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopped = true
	for key, e := range g.entries {
		e.timer.Stop()
		delete(g.entries, key)
	}
}

func (g *Group) fire(key string, gen uint64, fn func()) {
	g.owner.Lock()
	defer g.owner.Unlock()

	g.mu.Lock()
	e, ok := g.entries[key]
	live := ok && e.gen == gen && !g.stopped
	if live {
		delete(g.entries, key)
	}
	g.mu.Unlock()

	if live {
		fn()
	}
}
