package core

import (
	"errors"

	"github.com/vovakirdan/wirechat-roomsync/internal/poll"
	"github.com/vovakirdan/wirechat-roomsync/internal/policy"
)

// Notice codes. Policy codes are raised locally, server codes come from
// actionError/editError pushes.
const (
	ErrCodeEditWindow    = "edit_window_exceeded"
	ErrCodeUnknownAge    = "unknown_created_at"
	ErrCodeNotAuthor     = "not_author"
	ErrCodeNotAllowed    = "not_allowed"
	ErrCodeNotAdmin      = "not_admin"
	ErrCodeUnknownTarget = "unknown_target"
	ErrCodeEmptyMessage  = "empty_message"
	ErrCodeNotEditing    = "not_editing"
	ErrCodeInvalidPoll   = "invalid_poll"
	ErrCodeNoPoll        = "no_poll"
	ErrCodeAlreadyVoted  = "already_voted"
	ErrCodeNoSelection   = "no_selection"

	ErrCodeServerAction = "action_error"
	ErrCodeServerEdit   = "edit_error"
)

var (
	// ErrPolicy marks every locally rejected action.
	ErrPolicy = errors.New("policy violation")
	// ErrClosed is returned by actions on a closed session.
	ErrClosed = errors.New("session closed")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	cause   error
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is lets errors.Is match ErrPolicy for local violations.
func (e *CoreError) Is(target error) bool {
	return target == ErrPolicy && e.Code != ErrCodeServerAction && e.Code != ErrCodeServerEdit
}

func (e *CoreError) Unwrap() error {
	return e.cause
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// violation maps a policy or poll error onto a user-facing CoreError.
func violation(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}

	code, msg := ErrCodeNotAllowed, "That action is not allowed."
	switch {
	case errors.Is(err, policy.ErrNotAuthor):
		code, msg = ErrCodeNotAuthor, "You can only change your own messages."
	case errors.Is(err, policy.ErrNotAdmin):
		code, msg = ErrCodeNotAdmin, "Only room admins can do that."
	case errors.Is(err, policy.ErrUnknownTarget), errors.Is(err, policy.ErrNoID):
		code, msg = ErrCodeUnknownTarget, "That message or user is not available."
	case errors.Is(err, policy.ErrUnknownAge):
		code, msg = ErrCodeUnknownAge, "This message has no send time, so it cannot be edited."
	case errors.Is(err, policy.ErrSystemMessage):
		code, msg = ErrCodeNotAllowed, "System messages cannot be changed."
	case errors.Is(err, poll.ErrNoQuestion):
		code, msg = ErrCodeInvalidPoll, "The poll needs a question."
	case errors.Is(err, poll.ErrFewOptions):
		code, msg = ErrCodeInvalidPoll, "The poll needs at least two options."
	case errors.Is(err, poll.ErrPollActive):
		code, msg = ErrCodeInvalidPoll, "A poll is already running."
	case errors.Is(err, poll.ErrNoPoll):
		code, msg = ErrCodeNoPoll, "There is no active poll."
	case errors.Is(err, poll.ErrAlreadyVoted):
		code, msg = ErrCodeAlreadyVoted, "You already voted in this poll."
	case errors.Is(err, poll.ErrNoSelection), errors.Is(err, poll.ErrOneSelection):
		code, msg = ErrCodeNoSelection, "Pick an option before voting."
	case errors.Is(err, poll.ErrBadOption):
		code, msg = ErrCodeNoSelection, "That option does not exist."
	}
	return &CoreError{Code: code, Message: msg, cause: err}
}
