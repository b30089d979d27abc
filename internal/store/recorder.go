package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

// Recorder mirrors the session's message log into a MessageStore. Observe
// runs under the session lock, so it only parks the latest log; Run does
// the writes.
type Recorder struct {
	store MessageStore
	room  string
	log   zerolog.Logger

	mu      sync.Mutex
	latest  []room.Message
	pending bool
	wake    chan struct{}

	saved map[string]room.Message
}

// NewRecorder builds a recorder for one room.
func NewRecorder(st MessageStore, roomName string, logger *zerolog.Logger) *Recorder {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Recorder{
		store: st,
		room:  roomName,
		log:   l.With().Str("component", "recorder").Str("room", roomName).Logger(),
		wake:  make(chan struct{}, 1),
		saved: make(map[string]room.Message),
	}
}

// Observe is a core.Session listener.
func (r *Recorder) Observe(u core.Update) {
	if !u.Delta.Has(room.DeltaMessages) {
		return
	}
	r.mu.Lock()
	r.latest = u.View.Messages
	r.pending = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run writes parked logs until ctx is done, then flushes once more.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			r.Flush(flushCtx)
			cancel()
			return
		case <-r.wake:
			if ctx.Err() == nil {
				r.Flush(ctx)
			}
		}
	}
}

// Flush writes the latest parked log, if any. A failed write stays parked
// unless a newer log arrived meanwhile.
func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	msgs, ok := r.latest, r.pending
	r.pending = false
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := r.sync(ctx, msgs); err != nil {
		r.log.Warn().Err(err).Msg("transcript write failed")
		r.mu.Lock()
		if !r.pending {
			r.latest, r.pending = msgs, true
		}
		r.mu.Unlock()
	}
}

// sync diffs msgs against what was written before.
func (r *Recorder) sync(ctx context.Context, msgs []room.Message) error {
	current := make(map[string]room.Message, len(msgs))
	var upserts []*Message
	for _, m := range msgs {
		if !m.HasID() || m.IsSystem() {
			continue
		}
		current[m.ID] = m
		if prev, ok := r.saved[m.ID]; ok && sameContent(prev, m) {
			continue
		}
		upserts = append(upserts, fromRoom(r.room, m))
	}

	var gone []string
	for id := range r.saved {
		if _, ok := current[id]; !ok {
			gone = append(gone, id)
		}
	}

	if err := r.store.UpsertMessages(ctx, r.room, upserts); err != nil {
		return err
	}
	if err := r.store.DeleteMessages(ctx, r.room, gone); err != nil {
		return err
	}
	r.saved = current
	if len(upserts) > 0 || len(gone) > 0 {
		r.log.Debug().Int("upserted", len(upserts)).Int("deleted", len(gone)).Msg("transcript synced")
	}
	return nil
}

func sameContent(a, b room.Message) bool {
	return a.Text == b.Text && a.Edited == b.Edited && a.EditTime == b.EditTime && a.User == b.User
}

func fromRoom(roomName string, m room.Message) *Message {
	return &Message{
		Room:      roomName,
		ID:        m.ID,
		UserID:    m.User.ID,
		Username:  m.User.Username,
		Body:      m.Text,
		CreatedAt: m.CreatedAt,
		Edited:    m.Edited,
		EditTime:  m.EditTime,
	}
}
