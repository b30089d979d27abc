package room

import (
	"fmt"
	"strings"
	"time"
)

// Delta names the parts of State an event changed.
type Delta uint16

const (
	DeltaIdentity Delta = 1 << iota
	DeltaMessages
	DeltaReceipts
	DeltaRoster
	DeltaPinned
	DeltaAppearance
	DeltaPoll
)

// Has reports whether any of the bits in other are set.
func (d Delta) Has(other Delta) bool {
	return d&other != 0
}

func (d Delta) String() string {
	if d == 0 {
		return "none"
	}
	names := []struct {
		bit  Delta
		name string
	}{
		{DeltaIdentity, "identity"},
		{DeltaMessages, "messages"},
		{DeltaReceipts, "receipts"},
		{DeltaRoster, "roster"},
		{DeltaPinned, "pinned"},
		{DeltaAppearance, "appearance"},
		{DeltaPoll, "poll"},
	}
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if d.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// State is the canonical local mirror of one room.
// It is changed only through Apply.
type State struct {
	Room       string
	UserID     string
	Messages   []Message
	Roster     []Presence
	Pinned     *Message
	Appearance Appearance
	Poll       *Poll
	PollPhase  PollPhase
}

// NewState returns an empty mirror for the named room.
func NewState(name string) *State {
	return &State{Room: name}
}

// Apply reduces one inbound event into the state. Events that change
// nothing return a zero Delta; duplicates are never an error.
// now stamps messages the reducer synthesizes itself.
func (s *State) Apply(ev Event, now time.Time) Delta {
	switch ev.Kind {
	case EventUserID:
		return s.assignUser(ev.UserID)
	case EventMessageSnapshot:
		return s.replaceMessages(ev.Messages)
	case EventMessageAppended:
		return s.appendMessage(ev.Message)
	case EventMessageDeleted:
		return s.deleteMessage(ev.MessageID)
	case EventMessageEdited:
		return s.editMessage(ev.MessageID, ev.Text, ev.EditTime)
	case EventReadReceipt:
		return s.addReceipt(ev.MessageID, ev.UserID)
	case EventRosterSnapshot:
		return s.replaceRoster(ev.Roster)
	case EventPinned:
		return s.setPinned(ev)
	case EventAppearance:
		if s.Appearance == ev.Appearance {
			return 0
		}
		s.Appearance = ev.Appearance
		return DeltaAppearance
	case EventPollSnapshot:
		return s.pollSnapshot(ev.Poll)
	case EventPollStarted:
		return s.pollStarted(ev.Poll)
	case EventPollUpdated:
		return s.pollUpdated(ev.Poll)
	case EventPollEnded:
		return s.pollEnded(ev.Poll, now)
	default:
		return 0
	}
}

// Index returns the position of the message with id, or -1.
func (s *State) Index(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the message with id.
func (s *State) Find(id string) (*Message, bool) {
	i := s.Index(id)
	if i < 0 {
		return nil, false
	}
	return &s.Messages[i], true
}

// Member returns the roster entry for userID.
func (s *State) Member(userID string) (Presence, bool) {
	for _, p := range s.Roster {
		if p.ID == userID {
			return p, true
		}
	}
	return Presence{}, false
}

// Username returns the local user's roster name, if present.
func (s *State) Username() string {
	p, _ := s.Member(s.UserID)
	return p.Username
}

func (s *State) assignUser(id string) Delta {
	if id == "" || s.UserID == id {
		return 0
	}
	if s.UserID != "" {
		// identity is fixed for the connection
		return 0
	}
	s.UserID = id
	return DeltaIdentity
}

func (s *State) replaceMessages(msgs []Message) Delta {
	prev := make(map[string]map[string]struct{}, len(s.Messages))
	for i := range s.Messages {
		if s.Messages[i].HasID() {
			prev[s.Messages[i].ID] = s.Messages[i].ReadBy
		}
	}

	out := make([]Message, 0, len(msgs))
	pos := make(map[string]int, len(msgs))
	for _, m := range msgs {
		m = m.Clone()
		for id := range prev[m.ID] {
			m.addReader(id)
		}
		if m.HasID() {
			if i, dup := pos[m.ID]; dup {
				out[i] = m
				continue
			}
			pos[m.ID] = len(out)
		}
		out = append(out, m)
	}
	s.Messages = out

	d := DeltaMessages | DeltaReceipts
	if s.Pinned != nil {
		if m, ok := s.Find(s.Pinned.ID); ok {
			pinned := m.Clone()
			s.Pinned = &pinned
			d |= DeltaPinned
		}
	}
	return d
}

func (s *State) appendMessage(m Message) Delta {
	m = m.Clone()
	if i := s.Index(m.ID); i >= 0 {
		for id := range s.Messages[i].ReadBy {
			m.addReader(id)
		}
		s.Messages[i] = m
		return DeltaMessages | DeltaReceipts
	}
	s.Messages = append(s.Messages, m)
	return DeltaMessages
}

func (s *State) deleteMessage(id string) Delta {
	i := s.Index(id)
	if i < 0 {
		return 0
	}
	s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
	d := DeltaMessages
	if s.Pinned != nil && s.Pinned.ID == id {
		s.Pinned = nil
		d |= DeltaPinned
	}
	return d
}

func (s *State) editMessage(id, text, editTime string) Delta {
	m, ok := s.Find(id)
	if !ok {
		return 0
	}
	if m.Edited && m.Text == text && m.EditTime == editTime {
		return 0
	}
	m.Text = text
	m.Edited = true
	m.EditTime = editTime

	d := DeltaMessages
	if s.Pinned != nil && s.Pinned.ID == id {
		pinned := m.Clone()
		s.Pinned = &pinned
		d |= DeltaPinned
	}
	return d
}

func (s *State) addReceipt(messageID, userID string) Delta {
	m, ok := s.Find(messageID)
	if !ok {
		return 0
	}
	if !m.addReader(userID) {
		return 0
	}
	return DeltaReceipts
}

func (s *State) replaceRoster(roster []Presence) Delta {
	next := dedupeRoster(roster)
	if rosterEqual(s.Roster, next) {
		return 0
	}
	s.Roster = next
	return DeltaRoster
}

func (s *State) setPinned(ev Event) Delta {
	id := ev.MessageID
	if id == "" {
		id = ev.Message.ID
	}
	if id == "" {
		if s.Pinned == nil {
			return 0
		}
		s.Pinned = nil
		return DeltaPinned
	}

	var next Message
	if m, ok := s.Find(id); ok {
		next = m.Clone()
	} else {
		next = ev.Message.Clone()
		next.ID = id
	}
	if s.Pinned != nil && s.Pinned.ID == id && s.Pinned.Text == next.Text {
		return 0
	}
	s.Pinned = &next
	return DeltaPinned
}

func (s *State) pollSnapshot(p *Poll) Delta {
	if p == nil {
		if s.PollPhase == PollNone && s.Poll == nil {
			return 0
		}
		s.Poll = nil
		s.PollPhase = PollNone
		return DeltaPoll
	}
	if s.PollPhase == PollEnded && s.Poll != nil && s.Poll.ID == p.ID {
		// ended locally; wait for the server to clear it
		return 0
	}
	return s.pollStarted(p)
}

func (s *State) pollStarted(p *Poll) Delta {
	if p == nil {
		return 0
	}
	if s.Poll != nil && s.Poll.ID == p.ID {
		switch {
		case s.PollPhase == PollActive:
			return s.pollUpdated(p)
		case s.PollPhase == PollEnded && p.ID != "":
			// redelivered start of a poll that already ended
			return 0
		}
	}
	s.Poll = p.Clone()
	s.PollPhase = PollActive
	return DeltaPoll
}

func (s *State) pollUpdated(p *Poll) Delta {
	if p == nil {
		return 0
	}
	switch s.PollPhase {
	case PollNone:
		return s.pollStarted(p)
	case PollEnded:
		return 0
	}
	if p.ID != "" && s.Poll.ID != "" && p.ID != s.Poll.ID {
		return s.pollStarted(p)
	}

	changed := false
	if len(p.Options) > 0 && !optionsEqual(s.Poll.Options, p.Options) {
		s.Poll.Options = append([]PollOption(nil), p.Options...)
		changed = true
	}
	for id := range p.VotedUserIDs {
		if _, ok := s.Poll.VotedUserIDs[id]; ok {
			continue
		}
		if s.Poll.VotedUserIDs == nil {
			s.Poll.VotedUserIDs = make(map[string]struct{})
		}
		s.Poll.VotedUserIDs[id] = struct{}{}
		changed = true
	}
	if p.EndsAt != nil && (s.Poll.EndsAt == nil || !s.Poll.EndsAt.Equal(*p.EndsAt)) {
		endsAt := *p.EndsAt
		s.Poll.EndsAt = &endsAt
		changed = true
	}
	if !changed {
		return 0
	}
	return DeltaPoll
}

func (s *State) pollEnded(final *Poll, now time.Time) Delta {
	if s.PollPhase != PollActive || s.Poll == nil {
		return 0
	}
	if final != nil && final.ID != "" && s.Poll.ID != "" && final.ID != s.Poll.ID {
		return 0
	}
	if final != nil && len(final.Options) > 0 {
		s.Poll.Options = append([]PollOption(nil), final.Options...)
	}
	s.PollPhase = PollEnded
	s.Messages = append(s.Messages, Message{
		Text:      PollSummary(s.Poll),
		Type:      MessageSystem,
		CreatedAt: now,
		Time:      now.Format("15:04"),
	})
	return DeltaPoll | DeltaMessages
}

// PollSummary renders the final tallies in display order.
func PollSummary(p *Poll) string {
	parts := make([]string, 0, len(p.Options))
	for _, o := range p.Options {
		parts = append(parts, fmt.Sprintf("%s: %d", o.Text, o.Count))
	}
	return fmt.Sprintf("Poll ended: %s (%s)", p.Question, strings.Join(parts, ", "))
}

func optionsEqual(a, b []PollOption) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
