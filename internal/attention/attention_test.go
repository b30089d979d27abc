package attention

import (
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

// manualScheduler fires callbacks only when the test says so.
type manualScheduler struct {
	fns   map[string]func()
	waits map[string]time.Duration
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{fns: map[string]func(){}, waits: map[string]time.Duration{}}
}

func (m *manualScheduler) Schedule(key string, d time.Duration, fn func()) {
	m.fns[key] = fn
	m.waits[key] = d
}

func (m *manualScheduler) Cancel(key string) bool {
	_, ok := m.fns[key]
	delete(m.fns, key)
	delete(m.waits, key)
	return ok
}

func (m *manualScheduler) Pending(key string) bool {
	_, ok := m.fns[key]
	return ok
}

func (m *manualScheduler) fire(t *testing.T, key string) {
	t.Helper()
	fn, ok := m.fns[key]
	if !ok {
		t.Fatalf("no timer for %s", key)
	}
	delete(m.fns, key)
	fn()
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestUnread(t *testing.T) {
	s := room.NewState("general")
	s.Apply(room.Event{Kind: room.EventUserID, UserID: "u2"}, now)
	s.Apply(room.Event{Kind: room.EventMessageSnapshot, Messages: []room.Message{
		{ID: "m1", User: room.User{ID: "u1"}, Type: room.MessageChat},
		{ID: "m2", User: room.User{ID: "u2"}, Type: room.MessageChat},
		{ID: "m3", User: room.User{ID: "u1"}, Type: room.MessageChat, ReadBy: room.NewReadBy("u2")},
		{ID: "m4", User: room.User{ID: "u3"}, Type: room.MessageChat, ReadBy: room.NewReadBy("u1")},
		{Type: room.MessageSystem, Text: "bob joined"},
		{ID: "s1", Type: room.MessageSystem, Text: "alice joined"},
	}}, now)

	if got := Unread(s); got != 3 {
		t.Fatalf("Unread = %d, want 3", got)
	}
	if again := Unread(s); again != 3 {
		t.Fatalf("recount = %d", again)
	}

	s.Apply(room.Event{Kind: room.EventReadReceipt, MessageID: "m1", UserID: "u2"}, now)
	s.Apply(room.Event{Kind: room.EventReadReceipt, MessageID: "s1", UserID: "u2"}, now)
	if got := Unread(s); got != 1 {
		t.Fatalf("Unread after receipts = %d, want 1", got)
	}
}

func TestTitleMachine(t *testing.T) {
	sched := newManualScheduler()
	changes := 0
	title := NewTitle("#general", DefaultCadence(), sched, func() { changes++ })

	title.Update(0, false)
	if title.State() != TitleQuiet || title.Text() != "#general" {
		t.Fatalf("zero unread: %v %q", title.State(), title.Text())
	}

	title.Update(3, true)
	if title.State() != TitleQuiet {
		t.Fatalf("focused: %v", title.State())
	}

	title.Update(3, false)
	if title.State() != TitleFlagged || title.Text() != "(3) #general" {
		t.Fatalf("flagged: %v %q", title.State(), title.Text())
	}
	if sched.waits[blinkKey] != 1200*time.Millisecond {
		t.Fatalf("slow cadence = %v", sched.waits[blinkKey])
	}

	sched.fire(t, blinkKey)
	if title.State() != TitleBlinking || title.Text() != "3 new messages" {
		t.Fatalf("after first blink: %v %q", title.State(), title.Text())
	}
	sched.fire(t, blinkKey)
	if title.Text() != "(3) #general" {
		t.Fatalf("after second blink: %q", title.Text())
	}
	if changes != 2 {
		t.Fatalf("onChange calls = %d", changes)
	}

	title.Update(12, false)
	sched.fire(t, blinkKey)
	if sched.waits[blinkKey] != 600*time.Millisecond {
		t.Fatalf("fast cadence = %v", sched.waits[blinkKey])
	}
	if title.Text() != "12+ new messages" {
		t.Fatalf("large batch text: %q", title.Text())
	}

	title.Update(12, true)
	if title.State() != TitleQuiet || sched.Pending(blinkKey) {
		t.Fatal("focus must quiet the title and cancel blinking")
	}
}

func TestAlertText(t *testing.T) {
	cases := map[int]string{1: "New message", 4: "4 new messages", 10: "10+ new messages"}
	for n, want := range cases {
		if got := AlertText(n); got != want {
			t.Errorf("AlertText(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestBannerAutoDismiss(t *testing.T) {
	sched := newManualScheduler()
	dismissed := false
	b := NewBanner(4*time.Second, sched, func() { dismissed = true })

	b.Show("alice mentioned you")
	if b.Text() != "alice mentioned you" {
		t.Fatalf("banner = %q", b.Text())
	}
	b.Show("bob mentioned you")
	sched.fire(t, bannerKey)
	if b.Text() != "" || !dismissed {
		t.Fatalf("banner not dismissed: %q", b.Text())
	}

	b.Show("again")
	b.Clear()
	if b.Text() != "" || sched.Pending(bannerKey) {
		t.Fatal("clear must hide and cancel")
	}
}
