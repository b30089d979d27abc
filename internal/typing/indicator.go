package typing

import (
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/timers"
)

const indicatorPrefix = "typing.peer."

// DefaultIdle is how long a peer stays marked as typing without a refresh.
const DefaultIdle = 3 * time.Second

// Indicators tracks which peers are typing. Each mark expires after idle
// unless refreshed.
type Indicators struct {
	idle     time.Duration
	sched    timers.Scheduler
	onChange func()
	names    []string
}

// NewIndicators builds an empty tracker. onChange runs after expiry.
func NewIndicators(idle time.Duration, sched timers.Scheduler, onChange func()) *Indicators {
	return &Indicators{idle: idle, sched: sched, onChange: onChange}
}

// Typing marks username as typing and restarts its expiry.
// It reports whether the visible set changed.
func (in *Indicators) Typing(username string) bool {
	if username == "" {
		return false
	}
	added := !in.has(username)
	if added {
		in.names = append(in.names, username)
	}
	in.sched.Schedule(indicatorPrefix+username, in.idle, func() {
		if in.remove(username) && in.onChange != nil {
			in.onChange()
		}
	})
	return added
}

// Stop clears username at once.
func (in *Indicators) Stop(username string) bool {
	in.sched.Cancel(indicatorPrefix + username)
	return in.remove(username)
}

// Clear drops every mark.
func (in *Indicators) Clear() {
	for _, name := range in.names {
		in.sched.Cancel(indicatorPrefix + name)
	}
	in.names = nil
}

// Names returns typing peers in the order they started.
func (in *Indicators) Names() []string {
	return append([]string(nil), in.names...)
}

func (in *Indicators) has(username string) bool {
	for _, n := range in.names {
		if n == username {
			return true
		}
	}
	return false
}

func (in *Indicators) remove(username string) bool {
	for i, n := range in.names {
		if n == username {
			in.names = append(in.names[:i], in.names[i+1:]...)
			return true
		}
	}
	return false
}
