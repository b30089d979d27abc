// Package typing covers the draft box: announcing the local user's typing,
// showing who else is typing and completing @mentions.
package typing

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/wirechat-roomsync/internal/timers"
)

const idleKey = "typing.idle"

// Broadcaster turns draft changes into typing/stop-typing signals. While
// the draft stays non-empty it re-announces at most once per throttle, and
// after idle without changes it announces stop.
type Broadcaster struct {
	clock    clock.Clock
	sched    timers.Scheduler
	throttle time.Duration
	idle     time.Duration
	emit     func(typing bool)

	announced bool
	lastSent  time.Time
}

// NewBroadcaster builds a broadcaster. emit runs with the owner lock held.
func NewBroadcaster(clk clock.Clock, sched timers.Scheduler, throttle, idle time.Duration, emit func(typing bool)) *Broadcaster {
	return &Broadcaster{clock: clk, sched: sched, throttle: throttle, idle: idle, emit: emit}
}

// DraftChanged reacts to the new draft text.
func (b *Broadcaster) DraftChanged(text string) {
	if text == "" {
		b.Reset()
		return
	}
	now := b.clock.Now()
	if !b.announced || now.Sub(b.lastSent) >= b.throttle {
		b.announced = true
		b.lastSent = now
		b.emit(true)
	}
	if b.idle > 0 {
		b.sched.Schedule(idleKey, b.idle, b.Reset)
	}
}

// Reset announces stop if typing was announced and drops the idle timer.
func (b *Broadcaster) Reset() {
	b.sched.Cancel(idleKey)
	if !b.announced {
		return
	}
	b.announced = false
	b.emit(false)
}

// Announced reports whether peers currently see the local user typing.
func (b *Broadcaster) Announced() bool {
	return b.announced
}
