// Package poll tracks the local voter's side of the room poll: the pending
// selection, the one-vote rule and the start form validation.
package poll

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

var (
	ErrNoQuestion   = errors.New("poll question is empty")
	ErrFewOptions   = errors.New("poll needs at least two options")
	ErrPollActive   = errors.New("a poll is already running")
	ErrNoPoll       = errors.New("no active poll")
	ErrAlreadyVoted = errors.New("already voted in this poll")
	ErrNoSelection  = errors.New("no option selected")
	ErrOneSelection = errors.New("select exactly one option")
	ErrBadOption    = errors.New("option out of range")
)

// Draft is a poll the local admin wants to start, already validated.
type Draft struct {
	Question string
	Options  []string
	Multiple bool
	Duration *time.Duration
}

// NewDraft trims the form, drops blank options and validates the rest.
func NewDraft(question string, options []string, multiple bool, duration time.Duration) (Draft, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return Draft{}, ErrNoQuestion
	}
	kept := make([]string, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			kept = append(kept, o)
		}
	}
	if len(kept) < 2 {
		return Draft{}, ErrFewOptions
	}
	d := Draft{Question: q, Options: kept, Multiple: multiple}
	if duration > 0 {
		d.Duration = &duration
	}
	return d, nil
}

// Engine keeps the local selection for the current poll.
type Engine struct {
	pollID    string
	selected  map[int]struct{}
	submitted bool
}

// Sync aligns the engine with the mirrored poll. A different poll id or a
// poll that is no longer active discards the pending selection.
func (e *Engine) Sync(s *room.State) {
	if s.PollPhase != room.PollActive || s.Poll == nil {
		e.reset("")
		return
	}
	if s.Poll.ID != e.pollID {
		e.reset(s.Poll.ID)
	}
	for i := range e.selected {
		if i >= len(s.Poll.Options) {
			delete(e.selected, i)
		}
	}
}

// Select toggles or replaces the pending choice for option index i.
func (e *Engine) Select(s *room.State, i int) error {
	if err := e.canVote(s); err != nil {
		return err
	}
	if i < 0 || i >= len(s.Poll.Options) {
		return ErrBadOption
	}
	if e.selected == nil {
		e.selected = make(map[int]struct{})
	}
	if !s.Poll.Multiple {
		clear(e.selected)
		e.selected[i] = struct{}{}
		return nil
	}
	if _, on := e.selected[i]; on {
		delete(e.selected, i)
	} else {
		e.selected[i] = struct{}{}
	}
	return nil
}

// Vote validates the selection and returns the option indexes to emit in
// ascending order. After a successful call the engine refuses to vote again
// on the same poll.
func (e *Engine) Vote(s *room.State) ([]int, error) {
	if err := e.canVote(s); err != nil {
		return nil, err
	}
	picks := e.Selection()
	switch {
	case len(picks) == 0:
		return nil, ErrNoSelection
	case !s.Poll.Multiple && len(picks) != 1:
		return nil, ErrOneSelection
	}
	e.submitted = true
	return picks, nil
}

// Rollback re-opens voting after a vote that never reached the server.
// The selection is kept so the user can retry.
func (e *Engine) Rollback() {
	e.submitted = false
}

// Selection returns the pending choice in ascending order.
func (e *Engine) Selection() []int {
	out := make([]int, 0, len(e.selected))
	for i := range e.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Selected reports whether option i is in the pending choice.
func (e *Engine) Selected(i int) bool {
	_, ok := e.selected[i]
	return ok
}

// HasVoted reports whether the local user already voted on the current poll.
func (e *Engine) HasVoted(s *room.State) bool {
	if s.Poll == nil {
		return false
	}
	return s.Poll.HasVoted(s.UserID) || (e.submitted && e.pollID == s.Poll.ID)
}

func (e *Engine) canVote(s *room.State) error {
	if s.PollPhase != room.PollActive || s.Poll == nil {
		return ErrNoPoll
	}
	if e.pollID != s.Poll.ID {
		e.reset(s.Poll.ID)
	}
	if e.HasVoted(s) {
		return ErrAlreadyVoted
	}
	return nil
}

func (e *Engine) reset(pollID string) {
	e.pollID = pollID
	e.selected = nil
	e.submitted = false
}

// Percent is count's share of total, rounded half up. Zero total yields 0.
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(count)/float64(total)*100 + 0.5))
}

// Remaining is the time left on a timed poll, zero when untimed or expired.
func Remaining(p *room.Poll, now time.Time) time.Duration {
	if p == nil || p.EndsAt == nil {
		return 0
	}
	if left := p.EndsAt.Sub(now); left > 0 {
		return left
	}
	return 0
}
