// Package receipts decides which messages the local user should report as
// read. Visibility comes from the view layer as a set of message ids; the
// tracker only combines it with focus and the mirrored receipts.
package receipts

import "github.com/vovakirdan/wirechat-roomsync/internal/room"

// Tracker remembers what is visible and what was already reported.
type Tracker struct {
	visible  map[string]struct{}
	reported map[string]struct{}
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		visible:  make(map[string]struct{}),
		reported: make(map[string]struct{}),
	}
}

// SetVisible replaces the visible set. It reports whether the set changed.
func (t *Tracker) SetVisible(ids []string) bool {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			next[id] = struct{}{}
		}
	}
	changed := len(next) != len(t.visible)
	if !changed {
		for id := range next {
			if _, ok := t.visible[id]; !ok {
				changed = true
				break
			}
		}
	}
	t.visible = next
	return changed
}

// Visible reports whether id is in the visible set.
func (t *Tracker) Visible(id string) bool {
	_, ok := t.visible[id]
	return ok
}

// Pending returns, in log order, the ids to report now and marks them as
// reported. Nothing is returned while unfocused. With sweepAll every
// qualifying message counts, not only visible ones.
func (t *Tracker) Pending(s *room.State, focused, sweepAll bool) []string {
	if !focused || s.UserID == "" {
		return nil
	}
	var out []string
	for i := range s.Messages {
		m := &s.Messages[i]
		if !t.qualifies(m, s.UserID) {
			continue
		}
		if !sweepAll && !t.Visible(m.ID) {
			continue
		}
		t.reported[m.ID] = struct{}{}
		out = append(out, m.ID)
	}
	return out
}

// Forget drops visibility and report history, as on teardown.
func (t *Tracker) Forget() {
	t.visible = make(map[string]struct{})
	t.reported = make(map[string]struct{})
}

func (t *Tracker) qualifies(m *room.Message, local string) bool {
	if !m.HasID() {
		return false
	}
	if m.User.ID == local || m.ReadByUser(local) {
		return false
	}
	_, done := t.reported[m.ID]
	return !done
}
