package core

import (
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/attention"
	"github.com/vovakirdan/wirechat-roomsync/internal/poll"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

// Notice is a transient message for the user. It disappears on its own.
type Notice struct {
	Code string
	Text string
}

// PollOptionView is one option with its share of the vote.
type PollOptionView struct {
	Text     string
	Count    int
	Percent  int
	Selected bool
}

// PollView is the poll as the view layer renders it.
type PollView struct {
	ID         string
	Question   string
	Phase      room.PollPhase
	Multiple   bool
	Options    []PollOptionView
	TotalVotes int
	HasVoted   bool
	EndsAt     *time.Time
	Remaining  time.Duration
}

// View is an immutable snapshot of the session for rendering.
type View struct {
	Room          string
	UserID        string
	Username      string
	AmIAdmin      bool
	Messages      []room.Message
	Roster        []room.Presence
	Pinned        *room.Message
	Appearance    room.Appearance
	Poll          *PollView
	Unread        int
	Title         string
	TitleState    attention.TitleState
	Banner        string
	Typing        []string
	Draft         string
	Suggestions   []string
	Editing       string
	PendingDelete string
	Notice        *Notice
	Focused       bool
	Kicked        bool
	KickedBy      string
}

// Update is what subscribers receive after every change.
type Update struct {
	// Delta is zero when only session-local state changed.
	Delta room.Delta
	View  View
}

// view must be called with s.mu held.
func (s *Session) view() View {
	st := s.state
	v := View{
		Room:          st.Room,
		UserID:        st.UserID,
		Username:      s.username(),
		AmIAdmin:      s.amAdmin,
		Messages:      make([]room.Message, 0, len(st.Messages)),
		Roster:        append([]room.Presence(nil), st.Roster...),
		Appearance:    st.Appearance,
		Unread:        s.unread,
		Title:         s.title.Text(),
		TitleState:    s.title.State(),
		Banner:        s.banner.Text(),
		Typing:        s.typers.Names(),
		Draft:         s.draft,
		Suggestions:   append([]string(nil), s.suggestions...),
		Editing:       s.editing,
		PendingDelete: s.deletes.Target(),
		Focused:       s.focused,
		Kicked:        s.kicked,
		KickedBy:      s.kickedBy,
	}
	for _, m := range st.Messages {
		v.Messages = append(v.Messages, m.Clone())
	}
	if st.Pinned != nil {
		pinned := st.Pinned.Clone()
		v.Pinned = &pinned
	}
	if s.notice != nil {
		n := *s.notice
		v.Notice = &n
	}
	if st.Poll != nil && st.PollPhase != room.PollNone {
		v.Poll = s.pollView()
	}
	return v
}

func (s *Session) pollView() *PollView {
	p := s.state.Poll
	total := p.TotalVotes()
	pv := &PollView{
		ID:         p.ID,
		Question:   p.Question,
		Phase:      s.state.PollPhase,
		Multiple:   p.Multiple,
		Options:    make([]PollOptionView, 0, len(p.Options)),
		TotalVotes: total,
		HasVoted:   s.poll.HasVoted(s.state),
		Remaining:  poll.Remaining(p, s.clock.Now()),
	}
	if p.EndsAt != nil {
		endsAt := *p.EndsAt
		pv.EndsAt = &endsAt
	}
	for i, o := range p.Options {
		pv.Options = append(pv.Options, PollOptionView{
			Text:     o.Text,
			Count:    o.Count,
			Percent:  poll.Percent(o.Count, total),
			Selected: s.poll.Selected(i),
		})
	}
	return pv
}
