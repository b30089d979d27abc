// Package attention derives the signals that pull the user back to the room:
// the unread count, the blinking tab title and the mention banner.
package attention

import (
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/room"
	"github.com/vovakirdan/wirechat-roomsync/internal/timers"
)

const (
	blinkKey  = "attention.blink"
	bannerKey = "attention.banner"
)

// Unread counts messages from others the local user has not read. Messages
// without an id never get a receipt and are left out.
func Unread(s *room.State) int {
	n := 0
	for i := range s.Messages {
		m := &s.Messages[i]
		if !m.HasID() {
			continue
		}
		if m.User.ID == s.UserID || m.ReadByUser(s.UserID) {
			continue
		}
		n++
	}
	return n
}

// TitleState is the position of the tab title machine.
type TitleState int

const (
	// TitleQuiet shows the plain room title.
	TitleQuiet TitleState = iota
	// TitleFlagged shows the unread count, waiting to escalate.
	TitleFlagged
	// TitleBlinking alternates between the count and an alert text.
	TitleBlinking
)

func (s TitleState) String() string {
	switch s {
	case TitleFlagged:
		return "flagged"
	case TitleBlinking:
		return "blinking"
	default:
		return "quiet"
	}
}

// Cadence tiers the blink interval by backlog size.
type Cadence struct {
	Fast          time.Duration
	Slow          time.Duration
	FastThreshold int
}

// DefaultCadence blinks faster once ten messages pile up.
func DefaultCadence() Cadence {
	return Cadence{Fast: 600 * time.Millisecond, Slow: 1200 * time.Millisecond, FastThreshold: 10}
}

// Interval returns the blink period for the given unread count.
func (c Cadence) Interval(unread int) time.Duration {
	if c.FastThreshold > 0 && unread >= c.FastThreshold {
		return c.Fast
	}
	return c.Slow
}

// Title drives the tab title from unread count and focus.
type Title struct {
	base     string
	cadence  Cadence
	sched    timers.Scheduler
	onChange func()

	state  TitleState
	unread int
	alt    bool
}

// NewTitle builds a title machine. onChange runs after every timer-driven
// change, with the owner lock held.
func NewTitle(base string, cadence Cadence, sched timers.Scheduler, onChange func()) *Title {
	return &Title{base: base, cadence: cadence, sched: sched, onChange: onChange}
}

// Update feeds the current unread count and focus into the machine.
func (t *Title) Update(unread int, focused bool) {
	t.unread = unread
	if focused || unread == 0 {
		t.quiet()
		return
	}
	if t.state == TitleQuiet {
		t.state = TitleFlagged
		t.alt = false
		t.sched.Schedule(blinkKey, t.cadence.Interval(unread), t.tick)
	}
}

// State returns the current machine position.
func (t *Title) State() TitleState {
	return t.state
}

// Text returns the title to display now.
func (t *Title) Text() string {
	switch t.state {
	case TitleQuiet:
		return t.base
	case TitleBlinking:
		if t.alt {
			return AlertText(t.unread)
		}
	}
	return fmt.Sprintf("(%d) %s", t.unread, t.base)
}

// Stop returns to quiet and cancels the blink timer.
func (t *Title) Stop() {
	t.quiet()
}

func (t *Title) quiet() {
	t.state = TitleQuiet
	t.alt = false
	t.sched.Cancel(blinkKey)
}

func (t *Title) tick() {
	if t.state == TitleQuiet {
		return
	}
	t.state = TitleBlinking
	t.alt = !t.alt
	t.sched.Schedule(blinkKey, t.cadence.Interval(t.unread), t.tick)
	if t.onChange != nil {
		t.onChange()
	}
}

// AlertText is the attention-grabbing half of the blink, bucketed by count.
func AlertText(unread int) string {
	switch {
	case unread <= 1:
		return "New message"
	case unread < 10:
		return fmt.Sprintf("%d new messages", unread)
	default:
		return fmt.Sprintf("%d+ new messages", unread)
	}
}

// Banner is the auto-dismissing mention notice.
type Banner struct {
	duration time.Duration
	sched    timers.Scheduler
	onChange func()
	text     string
}

// NewBanner builds a banner that hides itself after duration.
func NewBanner(duration time.Duration, sched timers.Scheduler, onChange func()) *Banner {
	return &Banner{duration: duration, sched: sched, onChange: onChange}
}

// Show displays text and restarts the dismiss timer.
func (b *Banner) Show(text string) {
	b.text = text
	b.sched.Schedule(bannerKey, b.duration, func() {
		b.text = ""
		if b.onChange != nil {
			b.onChange()
		}
	})
}

// Clear hides the banner immediately.
func (b *Banner) Clear() {
	b.text = ""
	b.sched.Cancel(bannerKey)
}

// Text returns the banner contents, empty when hidden.
func (b *Banner) Text() string {
	return b.text
}
