package core

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-roomsync/internal/attention"
	"github.com/vovakirdan/wirechat-roomsync/internal/poll"
	"github.com/vovakirdan/wirechat-roomsync/internal/policy"
	"github.com/vovakirdan/wirechat-roomsync/internal/receipts"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
	"github.com/vovakirdan/wirechat-roomsync/internal/timers"
	"github.com/vovakirdan/wirechat-roomsync/internal/typing"
)

const noticeKey = "session.notice"

// Options configures a Session. Zero durations fall back to defaults.
type Options struct {
	Room     string
	Username string
	Token    string

	Clock  clock.Clock
	Logger *zerolog.Logger

	EditWindow     time.Duration
	TypingIdle     time.Duration
	TypingThrottle time.Duration
	BannerDuration time.Duration
	NoticeDuration time.Duration
	EmitTimeout    time.Duration
	Cadence        attention.Cadence

	// OnKicked runs after the session closed itself because the server
	// removed the local user. It is called without the session lock.
	OnKicked func(actor string)
}

func (o *Options) applyDefaults() {
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	if o.EditWindow <= 0 {
		o.EditWindow = policy.DefaultEditWindow
	}
	if o.TypingIdle <= 0 {
		o.TypingIdle = typing.DefaultIdle
	}
	if o.TypingThrottle <= 0 {
		o.TypingThrottle = time.Second
	}
	if o.BannerDuration <= 0 {
		o.BannerDuration = 4 * time.Second
	}
	if o.NoticeDuration <= 0 {
		o.NoticeDuration = 4 * time.Second
	}
	if o.EmitTimeout <= 0 {
		o.EmitTimeout = 5 * time.Second
	}
	if o.Cadence.Fast <= 0 || o.Cadence.Slow <= 0 {
		o.Cadence = attention.DefaultCadence()
	}
}

// Session mirrors one room and derives everything the view layer shows.
// Inbound events, user actions and timer callbacks are serialized on mu.
type Session struct {
	mu    sync.Mutex
	opts  Options
	clock clock.Clock
	log   zerolog.Logger
	ch    Channel

	state    *room.State
	timers   *timers.Group
	receipts *receipts.Tracker
	poll     poll.Engine
	deletes  policy.DeleteFlow
	title    *attention.Title
	banner   *attention.Banner
	typers   *typing.Indicators
	typing   *typing.Broadcaster

	focused     bool
	draft       string
	suggestions []string
	editing     string
	notice      *Notice
	unread      int
	amAdmin     bool
	kicked      bool
	kickedBy    string
	closed      bool

	listeners map[int]func(Update)
	nextID    int
}

// NewSession creates an empty session for opts.Room. Call Join to request
// the first snapshot.
func NewSession(ch Channel, opts Options) *Session {
	opts.applyDefaults()

	s := &Session{
		opts:      opts,
		clock:     opts.Clock,
		log:       opts.Logger.With().Str("room", opts.Room).Logger(),
		ch:        ch,
		state:     room.NewState(opts.Room),
		receipts:  receipts.New(),
		focused:   true,
		listeners: make(map[int]func(Update)),
	}
	s.timers = timers.NewGroup(s.clock, &s.mu)
	s.title = attention.NewTitle("#"+opts.Room, opts.Cadence, s.timers, s.publishLocal)
	s.banner = attention.NewBanner(opts.BannerDuration, s.timers, s.publishLocal)
	s.typers = typing.NewIndicators(opts.TypingIdle, s.timers, s.publishLocal)
	s.typing = typing.NewBroadcaster(s.clock, s.timers, opts.TypingThrottle, opts.TypingIdle, s.announceTyping)
	return s
}

// Subscribe registers fn for every update. Listeners run with the session
// lock held and must not call back into the session.
func (s *Session) Subscribe(fn func(Update)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// View returns the current snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// Closed reports whether the session was torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Handle applies one inbound event in arrival order.
func (s *Session) Handle(ev room.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	var after func()
	switch ev.Kind {
	case room.EventMention:
		s.banner.Show(ev.Text)
		s.publish(0)
	case room.EventTyping:
		if ev.Username != "" && ev.Username != s.username() {
			s.typers.Typing(ev.Username)
			s.publish(0)
		}
	case room.EventStopTyping:
		if s.typers.Stop(ev.Username) {
			s.publish(0)
		}
	case room.EventActionError:
		s.showNotice(coreError(ErrCodeServerAction, ev.Text))
		s.publish(0)
	case room.EventEditError:
		s.showNotice(coreError(ErrCodeServerEdit, ev.Text))
		s.publish(0)
	case room.EventKicked:
		after = s.kick(ev)
	default:
		d := s.state.Apply(ev, s.clock.Now())
		if d != 0 {
			s.log.Debug().Stringer("event", ev.Kind).Stringer("delta", d).Msg("applied event")
			s.reconcile(d)
		}
	}
	s.mu.Unlock()

	if after != nil {
		after()
	}
}

// Join asks the server for the room and a fresh snapshot.
func (s *Session) Join(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.emit(ctx, Command{
		Kind:     CommandJoinRoom,
		Room:     s.state.Room,
		Username: s.opts.Username,
		Token:    s.opts.Token,
	})
}

// Resync drops connection-scoped signals after a reconnect and requests a
// fresh snapshot. The mirrored state is kept until the snapshot replaces it.
func (s *Session) Resync(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.banner.Clear()
	s.typers.Clear()
	s.receipts.Forget()
	s.publish(0)
	s.mu.Unlock()

	return s.Join(ctx)
}

// Close tears the session down: every timer is cancelled, pending debounce
// and visibility state are dropped and listeners are released. It is safe
// to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
}

func (s *Session) teardown() {
	if s.closed {
		return
	}
	s.closed = true
	s.timers.Stop()
	s.receipts.Forget()
	s.typers.Clear()
	s.banner.Clear()
	s.title.Stop()
	s.deletes.Cancel()
	s.draft = ""
	s.editing = ""
	s.notice = nil
	s.log.Debug().Msg("session closed")
}

func (s *Session) kick(ev room.Event) func() {
	if ev.Room != "" && ev.Room != s.state.Room {
		return nil
	}
	s.log.Warn().Str("actor", ev.Username).Msg("removed from room")
	s.kicked = true
	s.kickedBy = ev.Username
	s.publish(0)
	s.teardown()
	s.listeners = make(map[int]func(Update))

	if s.opts.OnKicked == nil {
		return nil
	}
	actor := ev.Username
	return func() { s.opts.OnKicked(actor) }
}

// reconcile recomputes every derived view after a state change.
func (s *Session) reconcile(d room.Delta) {
	if d.Has(room.DeltaIdentity) {
		s.log = s.log.With().Str("user_id", s.state.UserID).Logger()
	}
	if d.Has(room.DeltaIdentity | room.DeltaRoster) {
		s.amAdmin = policy.IsAdmin(s.state)
		s.suggestions = typing.Suggest(s.draft, s.state.Roster, s.state.UserID)
	}
	if d.Has(room.DeltaPoll | room.DeltaIdentity) {
		s.poll.Sync(s.state)
	}
	if s.deletes.Reconcile(s.state) {
		s.log.Debug().Msg("dropped delete confirmation")
	}
	if s.editing != "" {
		if _, ok := s.state.Find(s.editing); !ok {
			s.editing = ""
		}
	}
	if d.Has(room.DeltaMessages | room.DeltaReceipts | room.DeltaIdentity) {
		s.refreshAttention()
		s.reportReads(false)
	}
	s.publish(d)
}

func (s *Session) refreshAttention() {
	s.unread = attention.Unread(s.state)
	s.title.Update(s.unread, s.focused)
}

func (s *Session) reportReads(sweepAll bool) {
	for _, id := range s.receipts.Pending(s.state, s.focused, sweepAll) {
		ctx, cancel := s.emitContext()
		if err := s.emit(ctx, Command{Kind: CommandMarkRead, Room: s.state.Room, MessageID: id}); err != nil {
			s.log.Warn().Err(err).Str("message_id", id).Msg("mark read failed")
		}
		cancel()
	}
}

func (s *Session) announceTyping(on bool) {
	kind := CommandStopTyping
	if on {
		kind = CommandTyping
	}
	ctx, cancel := s.emitContext()
	defer cancel()
	if err := s.emit(ctx, Command{Kind: kind, Room: s.state.Room, Username: s.username()}); err != nil {
		s.log.Debug().Err(err).Stringer("command", kind).Msg("typing signal failed")
	}
}

func (s *Session) showNotice(ce *CoreError) {
	s.notice = &Notice{Code: ce.Code, Text: ce.Message}
	s.timers.Schedule(noticeKey, s.opts.NoticeDuration, func() {
		s.notice = nil
		s.publish(0)
	})
}

// reject surfaces err as a notice and returns it to the caller.
func (s *Session) reject(err error) error {
	ce := violation(err)
	s.showNotice(ce)
	s.publish(0)
	s.log.Debug().Str("code", ce.Code).Msg("action rejected")
	return ce
}

func (s *Session) emit(ctx context.Context, cmd Command) error {
	if err := s.ch.Emit(ctx, cmd); err != nil {
		s.log.Warn().Err(err).Stringer("command", cmd.Kind).Msg("emit failed")
		return err
	}
	return nil
}

func (s *Session) emitContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opts.EmitTimeout)
}

func (s *Session) username() string {
	if name := s.state.Username(); name != "" {
		return name
	}
	return s.opts.Username
}

func (s *Session) publish(d room.Delta) {
	if len(s.listeners) == 0 {
		return
	}
	u := Update{Delta: d, View: s.view()}
	for _, fn := range s.listeners {
		fn(u)
	}
}

func (s *Session) publishLocal() {
	s.publish(0)
}
