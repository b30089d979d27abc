// Package policy holds the client-side gates applied to user actions before
// anything is sent to the server. The checks are advisory: the server stays
// authoritative and may still reject an action.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

// DefaultEditWindow is how long after sending an author may edit a message.
const DefaultEditWindow = 5 * time.Minute

var (
	ErrNoID          = errors.New("message has no id yet")
	ErrNotAuthor     = errors.New("message belongs to another user")
	ErrSystemMessage = errors.New("system messages cannot be changed")
	ErrEditWindow    = errors.New("edit window exceeded")
	ErrUnknownAge    = errors.New("message creation time unknown")
	ErrNotAdmin      = errors.New("admin rights required")
	ErrUnknownTarget = errors.New("unknown target")
)

// IsAdmin reports whether the local user is flagged admin in the roster.
func IsAdmin(s *room.State) bool {
	if s == nil || s.UserID == "" {
		return false
	}
	p, ok := s.Member(s.UserID)
	return ok && p.IsAdmin
}

// CanEdit checks that localID may open msg for editing at now.
func CanEdit(msg *room.Message, localID string, now time.Time, window time.Duration) error {
	switch {
	case !msg.HasID():
		return ErrNoID
	case msg.IsSystem():
		return ErrSystemMessage
	case localID == "" || msg.User.ID != localID:
		return ErrNotAuthor
	case msg.CreatedAt.IsZero():
		return ErrUnknownAge
	case now.Sub(msg.CreatedAt) > window:
		return ErrEditWindow
	}
	return nil
}

// EditWindowNotice is the user-facing text for ErrEditWindow.
func EditWindowNotice(window time.Duration) string {
	return fmt.Sprintf("Messages can only be edited within %s of sending.", humanDuration(window))
}

// RequireAdmin gates moderation actions.
func RequireAdmin(s *room.State) error {
	if !IsAdmin(s) {
		return ErrNotAdmin
	}
	return nil
}

// CanPin checks that the message exists, has an id and the user is admin.
func CanPin(s *room.State, messageID string) error {
	if err := RequireAdmin(s); err != nil {
		return err
	}
	m, ok := s.Find(messageID)
	if !ok {
		return ErrUnknownTarget
	}
	if m.IsSystem() {
		return ErrSystemMessage
	}
	return nil
}

// CanKick checks that target is another roster member and the user is admin.
func CanKick(s *room.State, targetID string) error {
	if err := RequireAdmin(s); err != nil {
		return err
	}
	if targetID == s.UserID {
		return ErrUnknownTarget
	}
	if _, ok := s.Member(targetID); !ok {
		return ErrUnknownTarget
	}
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Minute == 0 && d >= time.Minute:
		n := int(d / time.Minute)
		if n == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", n)
	case d%time.Second == 0 && d >= time.Second:
		n := int(d / time.Second)
		if n == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", n)
	default:
		return d.String()
	}
}
