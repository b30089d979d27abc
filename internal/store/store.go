package store

import (
	"context"
	"time"
)

// Message is an archived chat line. Only messages with a server id are kept.
type Message struct {
	Room      string
	ID        string
	UserID    string
	Username  string
	Body      string
	CreatedAt time.Time
	Edited    bool
	EditTime  string
}

// MessageStore handles the local transcript.
type MessageStore interface {
	// UpsertMessages inserts or replaces messages of one room.
	UpsertMessages(ctx context.Context, room string, msgs []*Message) error

	// DeleteMessages removes messages by id. Unknown ids are ignored.
	DeleteMessages(ctx context.Context, room string, ids []string) error

	// ListMessages returns the newest limit messages of room in
	// chronological order. A non-positive limit returns everything.
	ListMessages(ctx context.Context, room string, limit int) ([]*Message, error)

	// ListRooms lists rooms with at least one archived message.
	ListRooms(ctx context.Context) ([]string, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
