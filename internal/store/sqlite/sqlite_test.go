package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := s.UpsertMessages(ctx, "general", []*store.Message{
		{ID: "m2", UserID: "u2", Username: "bob", Body: "second", CreatedAt: base.Add(time.Minute)},
		{ID: "m1", UserID: "u1", Username: "alice", Body: "first", CreatedAt: base},
		{ID: "m3", UserID: "u1", Username: "alice", Body: "third", CreatedAt: base.Add(2 * time.Minute)},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertMessages(ctx, "random", []*store.Message{{ID: "r1", Body: "elsewhere", CreatedAt: base}}); err != nil {
		t.Fatalf("upsert random: %v", err)
	}

	// edit replaces in place
	if err := s.UpsertMessages(ctx, "general", []*store.Message{
		{ID: "m1", UserID: "u1", Username: "alice", Body: "first!", CreatedAt: base, Edited: true, EditTime: "12:03"},
	}); err != nil {
		t.Fatalf("upsert edit: %v", err)
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "all", limit: 0, want: []string{"first!", "second", "third"}},
		{name: "newest two", limit: 2, want: []string{"second", "third"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := s.ListMessages(ctx, "general", tt.limit)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(msgs) != len(tt.want) {
				t.Fatalf("expected %d messages, got %d", len(tt.want), len(msgs))
			}
			for i, m := range msgs {
				if m.Body != tt.want[i] {
					t.Errorf("expected %q at %d, got %q", tt.want[i], i, m.Body)
				}
			}
		})
	}

	msgs, _ := s.ListMessages(ctx, "general", 0)
	if !msgs[0].Edited || msgs[0].EditTime != "12:03" || !msgs[0].CreatedAt.Equal(base) {
		t.Fatalf("edited row = %+v", msgs[0])
	}

	rooms, err := s.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 2 || rooms[0] != "general" || rooms[1] != "random" {
		t.Fatalf("rooms = %v", rooms)
	}
}

func TestDeleteMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.UpsertMessages(ctx, "general", []*store.Message{
		{ID: "m1", Body: "a", CreatedAt: now},
		{ID: "m2", Body: "b", CreatedAt: now.Add(time.Second)},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteMessages(ctx, "general", []string{"m1", "ghost"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	msgs, err := s.ListMessages(ctx, "general", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m2" {
		t.Fatalf("remaining = %+v", msgs)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := ApplySchema(s.db); err != nil {
		t.Fatalf("second apply: %v", err)
	}
}
