package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

var errOffline = errors.New("offline")

// fakeChannel records every emitted command.
type fakeChannel struct {
	mu      sync.Mutex
	sent    []Command
	failing bool
	reply   *Reply
	asked   []Command
}

func (f *fakeChannel) Emit(_ context.Context, cmd Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errOffline
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeChannel) Request(_ context.Context, cmd Command) (*Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errOffline
	}
	f.asked = append(f.asked, cmd)
	return f.reply, nil
}

func (f *fakeChannel) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *fakeChannel) commands(kind CommandKind) []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Command
	for _, c := range f.sent {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeChannel) reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) (*Session, *fakeChannel, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(t0)
	ch := &fakeChannel{}
	s := NewSession(ch, Options{Room: "general", Username: "carol", Clock: mock})
	t.Cleanup(s.Close)
	return s, ch, mock
}

// seed gives the session an identity, a roster and a message log.
func seed(s *Session, local string, roster []room.Presence, msgs ...room.Message) {
	s.Handle(room.Event{Kind: room.EventUserID, UserID: local})
	s.Handle(room.Event{Kind: room.EventRosterSnapshot, Roster: roster})
	s.Handle(room.Event{Kind: room.EventMessageSnapshot, Messages: msgs})
}

func chat(id, author, text string, at time.Time) room.Message {
	return room.Message{
		ID:        id,
		User:      room.User{ID: author, Username: author},
		Text:      text,
		Type:      room.MessageChat,
		CreatedAt: at,
		Time:      at.Format("15:04"),
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func mustCode(t *testing.T, err error, code string) {
	t.Helper()

	var ce *CoreError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CoreError %s, got %v", code, err)
	}
	if ce.Code != code {
		t.Fatalf("expected code %s, got %s", code, ce.Code)
	}
}
