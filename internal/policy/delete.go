package policy

import "github.com/vovakirdan/wirechat-roomsync/internal/room"

// DeleteState is the position of the delete confirmation flow.
type DeleteState int

const (
	// DeleteIdle means no deletion awaits confirmation.
	DeleteIdle DeleteState = iota
	// DeleteConfirmPending means an admin asked to delete someone else's message.
	DeleteConfirmPending
)

// DeleteDecision tells the caller what to do after a delete request.
type DeleteDecision int

const (
	// DeleteRejected means the request is not allowed.
	DeleteRejected DeleteDecision = iota
	// DeleteNow means emit the delete immediately.
	DeleteNow
	// DeleteNeedsConfirm means wait for Confirm or Cancel.
	DeleteNeedsConfirm
)

// DeleteFlow is the two-phase delete state machine. Confirm yields the
// target exactly once per pending request.
type DeleteFlow struct {
	state  DeleteState
	target string
}

// State returns the current position.
func (f *DeleteFlow) State() DeleteState {
	return f.state
}

// Target returns the message awaiting confirmation, if any.
func (f *DeleteFlow) Target() string {
	if f.state != DeleteConfirmPending {
		return ""
	}
	return f.target
}

// Request decides how a delete of messageID proceeds. Own messages are
// deleted directly, even by admins; admins deleting another user's message
// must confirm; everyone else is rejected.
func (f *DeleteFlow) Request(s *room.State, messageID string) (DeleteDecision, error) {
	m, ok := s.Find(messageID)
	if !ok {
		return DeleteRejected, ErrUnknownTarget
	}
	if s.UserID != "" && m.User.ID == s.UserID {
		f.reset()
		return DeleteNow, nil
	}
	if !IsAdmin(s) {
		return DeleteRejected, ErrNotAdmin
	}
	f.state = DeleteConfirmPending
	f.target = messageID
	return DeleteNeedsConfirm, nil
}

// Confirm returns the pending target and goes back to idle.
func (f *DeleteFlow) Confirm() (string, bool) {
	if f.state != DeleteConfirmPending {
		return "", false
	}
	target := f.target
	f.reset()
	return target, true
}

// Cancel drops a pending confirmation. It reports whether one existed.
func (f *DeleteFlow) Cancel() bool {
	if f.state != DeleteConfirmPending {
		return false
	}
	f.reset()
	return true
}

// Reconcile drops a pending confirmation whose target disappeared.
func (f *DeleteFlow) Reconcile(s *room.State) bool {
	if f.state != DeleteConfirmPending {
		return false
	}
	if _, ok := s.Find(f.target); ok && IsAdmin(s) {
		return false
	}
	f.reset()
	return true
}

func (f *DeleteFlow) reset() {
	f.state = DeleteIdle
	f.target = ""
}
