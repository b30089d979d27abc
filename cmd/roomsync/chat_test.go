package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

type sink struct {
	mu   sync.Mutex
	sent []core.Command
}

func (s *sink) Emit(_ context.Context, cmd core.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, cmd)
	return nil
}

func (s *sink) Request(context.Context, core.Command) (*core.Reply, error) {
	return &core.Reply{}, nil
}

func (s *sink) kinds() []core.CommandKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CommandKind
	for _, c := range s.sent {
		if c.Kind != core.CommandJoinRoom && c.Kind != core.CommandMarkRead {
			out = append(out, c.Kind)
		}
	}
	return out
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestChat(t *testing.T, admin bool) (*chat, *sink, *bytes.Buffer) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(now)
	ch := &sink{}
	s := core.NewSession(ch, core.Options{Room: "general", Username: "carol", Clock: mock})
	t.Cleanup(s.Close)

	var out bytes.Buffer
	c := newChat(s, &out)
	s.Subscribe(c.observe)

	s.Handle(room.Event{Kind: room.EventUserID, UserID: "carol"})
	s.Handle(room.Event{Kind: room.EventRosterSnapshot, Roster: []room.Presence{
		{ID: "carol", Username: "carol", IsAdmin: admin},
		{ID: "dave", Username: "dave"},
	}})
	s.Handle(room.Event{Kind: room.EventMessageSnapshot, Messages: []room.Message{
		{ID: "m1", User: room.User{ID: "dave", Username: "dave"}, Text: "hi", Type: room.MessageChat, CreatedAt: now, Time: "12:00"},
		{ID: "m2", User: room.User{ID: "carol", Username: "carol"}, Text: "hello", Type: room.MessageChat, CreatedAt: now, Time: "12:00"},
	}})
	return c, ch, &out
}

func TestParsePoll(t *testing.T) {
	tests := []struct {
		in       string
		question string
		options  int
		duration time.Duration
		wantErr  bool
	}{
		{in: "Lunch? | pizza | sushi", question: "Lunch?", options: 2},
		{in: "2m Lunch? | pizza | sushi | ", question: "Lunch?", options: 2, duration: 2 * time.Minute},
		{in: "Deploy today", question: "Deploy today", options: 0},
		{in: " | a | b", wantErr: true},
	}
	for _, tt := range tests {
		q, opts, d, err := parsePoll(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parsePoll(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || q != tt.question || len(opts) != tt.options || d != tt.duration {
			t.Errorf("parsePoll(%q) = %q %v %v %v", tt.in, q, opts, d, err)
		}
	}
}

func TestObservePrintsEachMessageOnce(t *testing.T) {
	c, _, out := newTestChat(t, false)

	c.session.Handle(room.Event{Kind: room.EventReadReceipt, MessageID: "m1", UserID: "dave"})
	c.session.Handle(room.Event{Kind: room.EventMessageAppended, Message: room.Message{
		ID: "m3", User: room.User{ID: "dave", Username: "dave"}, Text: "news", Type: room.MessageChat, CreatedAt: now, Time: "12:01",
	}})

	got := out.String()
	if strings.Count(got, "dave: hi") != 1 || !strings.Contains(got, "carol: hello") || !strings.Contains(got, "dave: news") {
		t.Fatalf("output:\n%s", got)
	}
}

func TestExecRoutesCommands(t *testing.T) {
	c, ch, out := newTestChat(t, true)
	ctx := context.Background()

	for _, line := range []string{"good morning", "/edit m2 hello all", "/delete m2", "/pin m1", "/unpin"} {
		if err := c.exec(ctx, line); err != nil {
			t.Fatalf("%q: %v", line, err)
		}
	}
	want := []core.CommandKind{
		core.CommandSendMessage,
		core.CommandEditMessage,
		core.CommandDeleteMessage,
		core.CommandPinMessage,
		core.CommandPinMessage,
	}
	got := ch.kinds()
	if len(got) != len(want) {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("command %d = %v, want %v", i, got[i], want[i])
		}
	}

	if err := c.exec(ctx, "/kick carol"); !errors.Is(err, core.ErrPolicy) {
		t.Fatalf("self kick: %v", err)
	}
	if !strings.Contains(out.String(), "! That message or user is not available.") {
		t.Fatalf("notice not printed:\n%s", out.String())
	}
}

func TestExecErrors(t *testing.T) {
	c, _, _ := newTestChat(t, false)
	ctx := context.Background()

	if err := c.exec(ctx, "/select two"); err == nil {
		t.Fatal("expected usage error")
	}
	if err := c.exec(ctx, "/dance"); err == nil || !strings.Contains(err.Error(), "/help") {
		t.Fatalf("unknown command: %v", err)
	}
	if err := c.exec(ctx, "/quit"); !errors.Is(err, errQuit) {
		t.Fatalf("quit: %v", err)
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	c, ch, _ := newTestChat(t, false)

	done := make(chan struct{})
	var quit bool
	go func() {
		quit = c.run(context.Background(), strings.NewReader("one\n\ntwo\n"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return at EOF")
	}
	if quit {
		t.Fatal("EOF is not a quit")
	}
	if got := ch.kinds(); len(got) != 2 {
		t.Fatalf("sent = %v", got)
	}

	if !c.run(context.Background(), strings.NewReader("/quit\nnever sent\n")) {
		t.Fatal("expected quit")
	}
	if got := ch.kinds(); len(got) != 2 {
		t.Fatalf("line after /quit was sent: %v", got)
	}
}
