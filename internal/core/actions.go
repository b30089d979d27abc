package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/poll"
	"github.com/vovakirdan/wirechat-roomsync/internal/policy"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
	"github.com/vovakirdan/wirechat-roomsync/internal/typing"
)

// SetFocus records window focus. Regaining focus silences the title and
// reports every qualifying message as read.
func (s *Session) SetFocus(focused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.focused == focused {
		return
	}
	s.focused = focused
	s.refreshAttention()
	if focused {
		s.reportReads(true)
	}
	s.publish(0)
}

// SetVisible replaces the set of message ids the view layer considers seen
// on screen and reports newly visible unread messages.
func (s *Session) SetVisible(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.receipts.SetVisible(ids) {
		return
	}
	s.reportReads(false)
}

// SetDraft updates the composer text: typing signals and mention
// suggestions follow it.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.draft == text {
		return
	}
	s.draft = text
	s.typing.DraftChanged(text)
	s.suggestions = typing.Suggest(text, s.state.Roster, s.state.UserID)
	s.publish(0)
}

// SelectSuggestion completes the trailing @fragment with username and
// returns the new draft.
func (s *Session) SelectSuggestion(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.draft
	}
	next := typing.Complete(s.draft, username)
	if next != s.draft {
		s.draft = next
		s.typing.DraftChanged(next)
	}
	s.suggestions = typing.Suggest(next, s.state.Roster, s.state.UserID)
	s.publish(0)
	return s.draft
}

// Send posts text to the room. Blank input is ignored.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := s.emitChecked(ctx, Command{Kind: CommandSendMessage, Room: s.state.Room, Text: text}); err != nil {
		return err
	}
	s.draft = ""
	s.suggestions = nil
	s.typing.Reset()
	s.publish(0)
	return nil
}

// BeginEdit opens messageID in the editor if the local user may edit it.
func (s *Session) BeginEdit(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.checkEdit(messageID); err != nil {
		return s.reject(err)
	}
	s.editing = messageID
	s.publish(0)
	return nil
}

// SubmitEdit sends the edited text for the message being edited. The edit
// window is checked again because time passed since BeginEdit.
func (s *Session) SubmitEdit(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.editing == "" {
		return s.reject(coreError(ErrCodeNotEditing, "No message is being edited."))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return s.reject(coreError(ErrCodeEmptyMessage, "A message cannot be empty."))
	}
	if err := s.checkEdit(s.editing); err != nil {
		s.editing = ""
		return s.reject(err)
	}

	m, _ := s.state.Find(s.editing)
	if m.Text == text {
		s.editing = ""
		s.publish(0)
		return nil
	}
	if err := s.emitChecked(ctx, Command{Kind: CommandEditMessage, Room: s.state.Room, MessageID: s.editing, Text: text}); err != nil {
		return err
	}
	s.editing = ""
	s.publish(0)
	return nil
}

// CancelEdit closes the editor without emitting.
func (s *Session) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing == "" {
		return
	}
	s.editing = ""
	s.publish(0)
}

func (s *Session) checkEdit(messageID string) error {
	m, ok := s.state.Find(messageID)
	if !ok {
		return policy.ErrUnknownTarget
	}
	err := policy.CanEdit(m, s.state.UserID, s.clock.Now(), s.opts.EditWindow)
	if errors.Is(err, policy.ErrEditWindow) {
		return &CoreError{Code: ErrCodeEditWindow, Message: policy.EditWindowNotice(s.opts.EditWindow), cause: err}
	}
	return err
}

// RequestDelete starts deleting messageID. Own messages go out at once;
// an admin removing someone else's message must confirm first. The returned
// decision tells the caller which of the two happened.
func (s *Session) RequestDelete(ctx context.Context, messageID string) (policy.DeleteDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return policy.DeleteRejected, ErrClosed
	}
	decision, err := s.deletes.Request(s.state, messageID)
	switch decision {
	case policy.DeleteRejected:
		return decision, s.reject(err)
	case policy.DeleteNeedsConfirm:
		s.publish(0)
		return decision, nil
	}
	return decision, s.emitChecked(ctx, Command{Kind: CommandDeleteMessage, Room: s.state.Room, MessageID: messageID})
}

// ConfirmDelete emits the pending deletion exactly once.
func (s *Session) ConfirmDelete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	target, ok := s.deletes.Confirm()
	if !ok {
		return s.reject(coreError(ErrCodeUnknownTarget, "There is nothing to delete."))
	}
	s.publish(0)
	return s.emitChecked(ctx, Command{Kind: CommandDeleteMessage, Room: s.state.Room, MessageID: target})
}

// CancelDelete drops a pending confirmation without emitting.
func (s *Session) CancelDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deletes.Cancel() {
		s.publish(0)
	}
}

// Pin pins messageID for the whole room.
func (s *Session) Pin(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := policy.CanPin(s.state, messageID); err != nil {
		return s.reject(err)
	}
	return s.emitChecked(ctx, Command{Kind: CommandPinMessage, Room: s.state.Room, MessageID: messageID})
}

// Unpin clears the pinned message.
func (s *Session) Unpin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := policy.RequireAdmin(s.state); err != nil {
		return s.reject(err)
	}
	return s.emitChecked(ctx, Command{Kind: CommandPinMessage, Room: s.state.Room})
}

// Kick removes userID from the room.
func (s *Session) Kick(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := policy.CanKick(s.state, userID); err != nil {
		return s.reject(err)
	}
	return s.emitChecked(ctx, Command{Kind: CommandKickUser, Room: s.state.Room, UserID: userID})
}

// StartPoll opens a poll. A zero duration runs until an admin ends it.
func (s *Session) StartPoll(ctx context.Context, question string, options []string, multiple bool, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := policy.RequireAdmin(s.state); err != nil {
		return s.reject(err)
	}
	if s.state.PollPhase == room.PollActive {
		return s.reject(poll.ErrPollActive)
	}
	draft, err := poll.NewDraft(question, options, multiple, duration)
	if err != nil {
		return s.reject(err)
	}

	req := &PollRequest{Question: draft.Question, Options: draft.Options, Multiple: draft.Multiple}
	if draft.Duration != nil {
		secs := int(draft.Duration.Round(time.Second) / time.Second)
		req.DurationSeconds = &secs
	}
	return s.emitChecked(ctx, Command{Kind: CommandStartPoll, Room: s.state.Room, Poll: req})
}

// SelectPollOption changes the pending choice for option i.
func (s *Session) SelectPollOption(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.poll.Select(s.state, i); err != nil {
		return s.reject(err)
	}
	s.publish(0)
	return nil
}

// Vote submits the pending choice. At most one vote leaves per poll; a
// failed emission re-opens voting.
func (s *Session) Vote(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	picks, err := s.poll.Vote(s.state)
	if err != nil {
		return s.reject(err)
	}
	if err := s.emitChecked(ctx, Command{Kind: CommandVotePoll, Room: s.state.Room, Votes: picks}); err != nil {
		s.poll.Rollback()
		return err
	}
	s.publish(0)
	return nil
}

// EndPoll closes the running poll.
func (s *Session) EndPoll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := policy.RequireAdmin(s.state); err != nil {
		return s.reject(err)
	}
	if s.state.PollPhase != room.PollActive {
		return s.reject(poll.ErrNoPoll)
	}
	return s.emitChecked(ctx, Command{Kind: CommandEndPoll, Room: s.state.Room})
}

// UpdateAppearance changes the room theme and background for everyone.
func (s *Session) UpdateAppearance(ctx context.Context, theme, background string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := policy.RequireAdmin(s.state); err != nil {
		return s.reject(err)
	}
	return s.emitChecked(ctx, Command{
		Kind:       CommandUpdateAppearance,
		Room:       s.state.Room,
		Appearance: room.Appearance{Theme: theme, BackgroundColor: background},
	})
}

// Search asks the server for messages matching query. The round trip runs
// without the session lock.
func (s *Session) Search(ctx context.Context, query string) ([]room.Message, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	name := s.state.Room
	s.mu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	reply, err := s.ch.Request(ctx, Command{Kind: CommandSearchMessages, Room: name, Query: query})
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", CommandSearchMessages, err)
	}
	if reply == nil {
		return nil, nil
	}
	return reply.Messages, nil
}

func (s *Session) emitChecked(ctx context.Context, cmd Command) error {
	if err := s.emit(ctx, cmd); err != nil {
		return fmt.Errorf("emit %s: %w", cmd.Kind, err)
	}
	return nil
}
