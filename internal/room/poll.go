package room

import "time"

// PollOption is one answer with its live tally.
type PollOption struct {
	Text  string
	Count int
}

// Poll mirrors the room's active poll.
type Poll struct {
	ID           string
	Question     string
	Options      []PollOption
	Multiple     bool
	StartedAt    time.Time
	EndsAt       *time.Time
	VotedUserIDs map[string]struct{}
}

// HasVoted reports whether userID is recorded as a voter.
func (p *Poll) HasVoted(userID string) bool {
	if p == nil || userID == "" {
		return false
	}
	_, ok := p.VotedUserIDs[userID]
	return ok
}

// TotalVotes sums option tallies.
func (p *Poll) TotalVotes() int {
	if p == nil {
		return 0
	}
	total := 0
	for _, o := range p.Options {
		total += o.Count
	}
	return total
}

// Clone returns a deep copy.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Options = append([]PollOption(nil), p.Options...)
	if p.EndsAt != nil {
		endsAt := *p.EndsAt
		cp.EndsAt = &endsAt
	}
	cp.VotedUserIDs = make(map[string]struct{}, len(p.VotedUserIDs))
	for id := range p.VotedUserIDs {
		cp.VotedUserIDs[id] = struct{}{}
	}
	return &cp
}

// PollPhase is the lifecycle position of the room poll.
type PollPhase int

const (
	// PollNone means no poll is known.
	PollNone PollPhase = iota
	// PollActive means voting is open.
	PollActive
	// PollEnded means the poll closed and the server has not yet cleared it.
	PollEnded
)

func (p PollPhase) String() string {
	switch p {
	case PollActive:
		return "active"
	case PollEnded:
		return "ended"
	default:
		return "none"
	}
}
