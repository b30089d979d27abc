package core

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/wirechat-roomsync/internal/attention"
	"github.com/vovakirdan/wirechat-roomsync/internal/policy"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

var (
	alice = room.Presence{ID: "u1", Username: "alice", IsAdmin: true}
	carol = room.Presence{ID: "u2", Username: "carol"}
	admin = room.Presence{ID: "u2", Username: "carol", IsAdmin: true}
)

func TestAdminFollowsRoster(t *testing.T) {
	s, _, _ := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol})

	if s.View().AmIAdmin {
		t.Fatal("u2 is not flagged admin yet")
	}
	s.Handle(room.Event{Kind: room.EventRosterSnapshot, Roster: []room.Presence{alice, admin}})
	if !s.View().AmIAdmin {
		t.Fatal("u2 should be admin after roster update")
	}
}

func TestVisibleMessageMarkedReadOnce(t *testing.T) {
	s, ch, _ := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol}, chat("m1", "u1", "hi", t0))

	s.SetVisible([]string{"m1"})
	s.SetVisible([]string{"m1"})
	s.SetVisible([]string{"m1", ""})

	reads := ch.commands(CommandMarkRead)
	if len(reads) != 1 || reads[0].MessageID != "m1" {
		t.Fatalf("expected one markRead(m1), got %+v", reads)
	}

	// the server echo must not trigger another report
	s.Handle(room.Event{Kind: room.EventReadReceipt, MessageID: "m1", UserID: "u2"})
	if got := len(ch.commands(CommandMarkRead)); got != 1 {
		t.Fatalf("markRead count after echo = %d", got)
	}
	if s.View().Unread != 0 {
		t.Fatalf("unread = %d", s.View().Unread)
	}
}

func TestUnfocusedNewMessageFlagsTitle(t *testing.T) {
	s, ch, mock := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol})
	s.SetFocus(false)
	s.SetVisible([]string{"m1"})

	s.Handle(room.Event{Kind: room.EventMessageAppended, Message: chat("m1", "u1", "hello", t0)})

	v := s.View()
	if v.Unread != 1 || v.TitleState != attention.TitleFlagged {
		t.Fatalf("unread=%d title=%v", v.Unread, v.TitleState)
	}
	if v.Title != "(1) #general" {
		t.Fatalf("title = %q", v.Title)
	}
	if len(ch.commands(CommandMarkRead)) != 0 {
		t.Fatal("unfocused window must not report reads")
	}

	mock.Add(2 * time.Second)
	waitFor(t, "blinking title", func() bool { return s.View().TitleState == attention.TitleBlinking })

	s.SetFocus(true)
	v = s.View()
	if v.TitleState != attention.TitleQuiet || v.Title != "#general" {
		t.Fatalf("focus regained: state=%v title=%q", v.TitleState, v.Title)
	}
	reads := ch.commands(CommandMarkRead)
	if len(reads) != 1 || reads[0].MessageID != "m1" {
		t.Fatalf("focus sweep = %+v", reads)
	}
}

func TestEditOutsideWindowNeverEmits(t *testing.T) {
	s, ch, _ := newTestSession(t)
	old := t0.Add(-10 * policy.DefaultEditWindow)
	seed(s, "u2", []room.Presence{alice, carol}, chat("m1", "u2", "old", old))
	ch.reset()

	err := s.BeginEdit("m1")
	mustCode(t, err, ErrCodeEditWindow)
	if !errors.Is(err, ErrPolicy) {
		t.Fatal("edit window error should match ErrPolicy")
	}

	v := s.View()
	if v.Editing != "" {
		t.Fatal("editor opened for stale message")
	}
	if v.Notice == nil || v.Notice.Text != "Messages can only be edited within 5 minutes of sending." {
		t.Fatalf("notice = %+v", v.Notice)
	}
	if len(ch.commands(CommandEditMessage)) != 0 {
		t.Fatal("edit emitted")
	}
}

func TestEditWithoutCreationTime(t *testing.T) {
	s, ch, _ := newTestSession(t)
	undated := chat("m1", "u2", "undated", t0)
	undated.CreatedAt = time.Time{}
	seed(s, "u2", []room.Presence{alice, carol}, undated)
	ch.reset()

	err := s.BeginEdit("m1")
	mustCode(t, err, ErrCodeUnknownAge)

	v := s.View()
	if v.Editing != "" {
		t.Fatal("editor opened for undated message")
	}
	if v.Notice == nil || v.Notice.Text != "This message has no send time, so it cannot be edited." {
		t.Fatalf("notice = %+v", v.Notice)
	}
	if len(ch.commands(CommandEditMessage)) != 0 {
		t.Fatal("edit emitted")
	}
}

func TestEditFlow(t *testing.T) {
	s, ch, mock := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol},
		chat("m1", "u2", "draft", t0.Add(-time.Minute)),
		chat("m2", "u1", "theirs", t0),
	)

	mustCode(t, s.BeginEdit("m2"), ErrCodeNotAuthor)
	mustCode(t, s.SubmitEdit(context.Background(), "x"), ErrCodeNotEditing)

	if err := s.BeginEdit("m1"); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	mustCode(t, s.SubmitEdit(context.Background(), "   "), ErrCodeEmptyMessage)

	if err := s.SubmitEdit(context.Background(), "draft"); err != nil {
		t.Fatalf("unchanged submit: %v", err)
	}
	if s.View().Editing != "" || len(ch.commands(CommandEditMessage)) != 0 {
		t.Fatal("unchanged text should just close the editor")
	}

	if err := s.BeginEdit("m1"); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	if err := s.SubmitEdit(context.Background(), " final "); err != nil {
		t.Fatalf("submit: %v", err)
	}
	edits := ch.commands(CommandEditMessage)
	if len(edits) != 1 || edits[0].MessageID != "m1" || edits[0].Text != "final" {
		t.Fatalf("edits = %+v", edits)
	}

	// window runs out while the editor is open
	if err := s.BeginEdit("m1"); err != nil {
		t.Fatalf("begin edit: %v", err)
	}
	mock.Add(5 * time.Minute)
	mustCode(t, s.SubmitEdit(context.Background(), "late"), ErrCodeEditWindow)
	if len(ch.commands(CommandEditMessage)) != 1 {
		t.Fatal("late edit emitted")
	}
}

func TestNoticeExpires(t *testing.T) {
	s, _, mock := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol})

	s.Handle(room.Event{Kind: room.EventActionError, Text: "nope"})
	if n := s.View().Notice; n == nil || n.Code != ErrCodeServerAction || n.Text != "nope" {
		t.Fatalf("notice = %+v", n)
	}
	mock.Add(5 * time.Second)
	waitFor(t, "notice cleared", func() bool { return s.View().Notice == nil })
}

func TestDeleteFlow(t *testing.T) {
	s, ch, _ := newTestSession(t)
	ctx := context.Background()
	seed(s, "u2", []room.Presence{alice, admin},
		chat("m1", "u2", "mine", t0),
		chat("m2", "u1", "theirs", t0),
	)

	d, err := s.RequestDelete(ctx, "m1")
	if err != nil || d != policy.DeleteNow {
		t.Fatalf("own delete: %v %v", d, err)
	}
	if got := ch.commands(CommandDeleteMessage); len(got) != 1 || got[0].MessageID != "m1" {
		t.Fatalf("deletes = %+v", got)
	}

	d, err = s.RequestDelete(ctx, "m2")
	if err != nil || d != policy.DeleteNeedsConfirm {
		t.Fatalf("admin delete: %v %v", d, err)
	}
	if s.View().PendingDelete != "m2" {
		t.Fatal("confirmation not pending")
	}
	if err := s.ConfirmDelete(ctx); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	mustCode(t, s.ConfirmDelete(ctx), ErrCodeUnknownTarget)
	if got := ch.commands(CommandDeleteMessage); len(got) != 2 || got[1].MessageID != "m2" {
		t.Fatalf("deletes = %+v", got)
	}

	if _, err := s.RequestDelete(ctx, "m2"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	s.CancelDelete()
	if s.View().PendingDelete != "" || len(ch.commands(CommandDeleteMessage)) != 2 {
		t.Fatal("cancel should not emit")
	}
}

func TestDeleteNotAllowedForMember(t *testing.T) {
	s, ch, _ := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol}, chat("m2", "u1", "theirs", t0))

	d, err := s.RequestDelete(context.Background(), "m2")
	if d != policy.DeleteRejected {
		t.Fatalf("decision = %v", d)
	}
	mustCode(t, err, ErrCodeNotAdmin)
	if len(ch.commands(CommandDeleteMessage)) != 0 {
		t.Fatal("delete emitted")
	}
}

func TestPendingDeleteDroppedWhenTargetVanishes(t *testing.T) {
	s, _, _ := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, admin}, chat("m2", "u1", "theirs", t0))

	if _, err := s.RequestDelete(context.Background(), "m2"); err != nil {
		t.Fatal(err)
	}
	s.Handle(room.Event{Kind: room.EventMessageDeleted, MessageID: "m2"})
	if s.View().PendingDelete != "" {
		t.Fatal("pending delete kept for removed message")
	}
}

func TestAdminGates(t *testing.T) {
	s, ch, _ := newTestSession(t)
	ctx := context.Background()
	seed(s, "u2", []room.Presence{alice, carol}, chat("m1", "u1", "hi", t0))

	mustCode(t, s.Pin(ctx, "m1"), ErrCodeNotAdmin)
	mustCode(t, s.Unpin(ctx), ErrCodeNotAdmin)
	mustCode(t, s.Kick(ctx, "u1"), ErrCodeNotAdmin)
	mustCode(t, s.StartPoll(ctx, "Lunch?", []string{"a", "b"}, false, 0), ErrCodeNotAdmin)
	mustCode(t, s.EndPoll(ctx), ErrCodeNotAdmin)
	mustCode(t, s.UpdateAppearance(ctx, "dark", "#000"), ErrCodeNotAdmin)
	if len(ch.sent) != 0 {
		t.Fatalf("gated actions emitted: %+v", ch.sent)
	}

	s.Handle(room.Event{Kind: room.EventRosterSnapshot, Roster: []room.Presence{alice, admin}})
	mustCode(t, s.Kick(ctx, "u2"), ErrCodeUnknownTarget)
	mustCode(t, s.Kick(ctx, "ghost"), ErrCodeUnknownTarget)

	if err := s.Pin(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Unpin(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Kick(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateAppearance(ctx, "dark", "#000"); err != nil {
		t.Fatal(err)
	}

	pins := ch.commands(CommandPinMessage)
	if len(pins) != 2 || pins[0].MessageID != "m1" || pins[1].MessageID != "" {
		t.Fatalf("pins = %+v", pins)
	}
	if kicks := ch.commands(CommandKickUser); len(kicks) != 1 || kicks[0].UserID != "u1" {
		t.Fatalf("kicks = %+v", kicks)
	}
	looks := ch.commands(CommandUpdateAppearance)
	if len(looks) != 1 || looks[0].Appearance != (room.Appearance{Theme: "dark", BackgroundColor: "#000"}) {
		t.Fatalf("appearance = %+v", looks)
	}
}

func TestPollLifecycle(t *testing.T) {
	s, ch, _ := newTestSession(t)
	ctx := context.Background()
	seed(s, "u2", []room.Presence{alice, admin})

	mustCode(t, s.StartPoll(ctx, "  ", []string{"a", "b"}, false, 0), ErrCodeInvalidPoll)
	mustCode(t, s.StartPoll(ctx, "Lunch?", []string{"pizza", " "}, false, 0), ErrCodeInvalidPoll)
	if err := s.StartPoll(ctx, " Lunch? ", []string{"pizza", "", "sushi"}, false, 90*time.Second); err != nil {
		t.Fatal(err)
	}
	starts := ch.commands(CommandStartPoll)
	if len(starts) != 1 {
		t.Fatalf("starts = %+v", starts)
	}
	req := starts[0].Poll
	if req.Question != "Lunch?" || !reflect.DeepEqual(req.Options, []string{"pizza", "sushi"}) ||
		req.DurationSeconds == nil || *req.DurationSeconds != 90 {
		t.Fatalf("poll request = %+v", req)
	}

	p := &room.Poll{ID: "p1", Question: "Lunch?", Options: []room.PollOption{{Text: "pizza"}, {Text: "sushi"}}}
	s.Handle(room.Event{Kind: room.EventPollStarted, Poll: p})
	mustCode(t, s.StartPoll(ctx, "Again?", []string{"a", "b"}, false, 0), ErrCodeInvalidPoll)

	mustCode(t, s.Vote(ctx), ErrCodeNoSelection)
	if err := s.SelectPollOption(0); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectPollOption(1); err != nil {
		t.Fatal(err)
	}
	if err := s.Vote(ctx); err != nil {
		t.Fatal(err)
	}
	mustCode(t, s.Vote(ctx), ErrCodeAlreadyVoted)
	votes := ch.commands(CommandVotePoll)
	if len(votes) != 1 || !reflect.DeepEqual(votes[0].Votes, []int{1}) {
		t.Fatalf("votes = %+v", votes)
	}

	s.Handle(room.Event{Kind: room.EventPollUpdated, Poll: &room.Poll{
		ID:           "p1",
		Options:      []room.PollOption{{Text: "pizza", Count: 1}, {Text: "sushi", Count: 2}},
		VotedUserIDs: map[string]struct{}{"u1": {}, "u2": {}},
	}})
	pv := s.View().Poll
	if pv == nil || !pv.HasVoted || pv.TotalVotes != 3 || pv.Options[1].Percent != 67 {
		t.Fatalf("poll view = %+v", pv)
	}

	if err := s.EndPoll(ctx); err != nil {
		t.Fatal(err)
	}
	s.Handle(room.Event{Kind: room.EventPollEnded, Poll: &room.Poll{ID: "p1"}})
	s.Handle(room.Event{Kind: room.EventPollEnded, Poll: &room.Poll{ID: "p1"}})
	v := s.View()
	if v.Poll == nil || v.Poll.Phase != room.PollEnded {
		t.Fatalf("poll phase = %+v", v.Poll)
	}
	last := v.Messages[len(v.Messages)-1]
	if !last.IsSystem() || last.Text != "Poll ended: Lunch? (pizza: 1, sushi: 2)" {
		t.Fatalf("summary = %+v", last)
	}
	if len(v.Messages) != 1 {
		t.Fatalf("duplicate pollEnded appended again: %d messages", len(v.Messages))
	}
	mustCode(t, s.EndPoll(ctx), ErrCodeNoPoll)
}

func TestVoteRejectedWhenAlreadyVoted(t *testing.T) {
	s, ch, _ := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol})
	s.Handle(room.Event{Kind: room.EventPollSnapshot, Poll: &room.Poll{
		ID:           "p1",
		Question:     "Tea?",
		Options:      []room.PollOption{{Text: "yes", Count: 1}, {Text: "no"}},
		VotedUserIDs: map[string]struct{}{"u2": {}},
	}})

	mustCode(t, s.SelectPollOption(0), ErrCodeAlreadyVoted)
	mustCode(t, s.Vote(context.Background()), ErrCodeAlreadyVoted)
	if len(ch.commands(CommandVotePoll)) != 0 {
		t.Fatal("vote emitted twice")
	}
}

func TestFailedVoteCanBeRetried(t *testing.T) {
	s, ch, _ := newTestSession(t)
	ctx := context.Background()
	seed(s, "u2", []room.Presence{alice, carol})
	s.Handle(room.Event{Kind: room.EventPollStarted, Poll: &room.Poll{
		ID:       "p1",
		Question: "Tea?",
		Options:  []room.PollOption{{Text: "yes"}, {Text: "no"}, {Text: "maybe"}},
		Multiple: true,
	}})

	_ = s.SelectPollOption(2)
	_ = s.SelectPollOption(0)
	ch.setFailing(true)
	err := s.Vote(ctx)
	if !errors.Is(err, errOffline) || errors.Is(err, ErrPolicy) {
		t.Fatalf("vote err = %v", err)
	}
	ch.setFailing(false)
	if err := s.Vote(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	votes := ch.commands(CommandVotePoll)
	if len(votes) != 1 || !reflect.DeepEqual(votes[0].Votes, []int{0, 2}) {
		t.Fatalf("votes = %+v", votes)
	}
}

func TestPeerTypingExpires(t *testing.T) {
	s, _, mock := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol})

	s.Handle(room.Event{Kind: room.EventTyping, Username: "bob"})
	s.Handle(room.Event{Kind: room.EventTyping, Username: "carol"})
	if got := s.View().Typing; !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("typing = %v", got)
	}

	mock.Add(2 * time.Second)
	if len(s.View().Typing) != 1 {
		t.Fatal("indicator cleared early")
	}
	mock.Add(1100 * time.Millisecond)
	waitFor(t, "bob indicator cleared", func() bool { return len(s.View().Typing) == 0 })

	s.Handle(room.Event{Kind: room.EventTyping, Username: "bob"})
	s.Handle(room.Event{Kind: room.EventStopTyping, Username: "bob"})
	if len(s.View().Typing) != 0 {
		t.Fatal("stopTyping should clear at once")
	}
}

func TestDraftTypingSignals(t *testing.T) {
	s, ch, mock := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol})

	s.SetDraft("h")
	s.SetDraft("he")
	if got := len(ch.commands(CommandTyping)); got != 1 {
		t.Fatalf("typing emitted %d times inside throttle", got)
	}
	if ch.commands(CommandTyping)[0].Username != "carol" {
		t.Fatalf("typing username = %q", ch.commands(CommandTyping)[0].Username)
	}

	mock.Add(3100 * time.Millisecond)
	waitFor(t, "stopTyping after idle", func() bool { return len(ch.commands(CommandStopTyping)) == 1 })

	s.SetDraft("hello")
	if got := len(ch.commands(CommandTyping)); got != 2 {
		t.Fatalf("typing after idle = %d", got)
	}
	s.SetDraft("")
	if got := len(ch.commands(CommandStopTyping)); got != 2 {
		t.Fatalf("clearing draft should stop typing, got %d", got)
	}
}

func TestSendClearsDraft(t *testing.T) {
	s, ch, _ := newTestSession(t)
	ctx := context.Background()
	seed(s, "u2", []room.Presence{alice, carol})

	if err := s.Send(ctx, "   "); err != nil {
		t.Fatal(err)
	}
	s.SetDraft("hi there")
	if err := s.Send(ctx, " hi there "); err != nil {
		t.Fatal(err)
	}
	sent := ch.commands(CommandSendMessage)
	if len(sent) != 1 || sent[0].Text != "hi there" || sent[0].Room != "general" {
		t.Fatalf("sent = %+v", sent)
	}
	if s.View().Draft != "" {
		t.Fatal("draft kept after send")
	}
	if len(ch.commands(CommandStopTyping)) != 1 {
		t.Fatal("send should withdraw typing")
	}

	ch.setFailing(true)
	s.SetDraft("again")
	if err := s.Send(ctx, "again"); !errors.Is(err, errOffline) {
		t.Fatalf("send err = %v", err)
	}
	if s.View().Draft != "again" {
		t.Fatal("failed send dropped the draft")
	}
}

func TestMentionSuggestions(t *testing.T) {
	s, _, _ := newTestSession(t)
	seed(s, "u2", []room.Presence{
		{ID: "u1", Username: "alice"},
		{ID: "u3", Username: "aliye"},
		{ID: "u4", Username: "bob"},
		{ID: "u2", Username: "alina"},
	})

	s.SetDraft("hello @ali")
	if got := s.View().Suggestions; !reflect.DeepEqual(got, []string{"alice", "aliye"}) {
		t.Fatalf("suggestions = %v", got)
	}

	draft := s.SelectSuggestion("aliye")
	if draft != "hello @aliye " {
		t.Fatalf("draft = %q", draft)
	}
	if len(s.View().Suggestions) != 0 {
		t.Fatal("suggestions after completion")
	}
}

func TestMentionBanner(t *testing.T) {
	s, _, mock := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol})

	s.Handle(room.Event{Kind: room.EventMention, Text: "alice mentioned you"})
	mock.Add(3 * time.Second)
	s.Handle(room.Event{Kind: room.EventMention, Text: "alice mentioned you again"})
	mock.Add(2 * time.Second)
	if got := s.View().Banner; got != "alice mentioned you again" {
		t.Fatalf("banner = %q", got)
	}
	mock.Add(3 * time.Second)
	waitFor(t, "banner hidden", func() bool { return s.View().Banner == "" })
}

func TestKickedClosesSession(t *testing.T) {
	mock := clock.NewMock()
	ch := &fakeChannel{}
	var actor atomic.Value
	s := NewSession(ch, Options{
		Room:     "general",
		Username: "carol",
		Clock:    mock,
		OnKicked: func(by string) { actor.Store(by) },
	})
	seed(s, "u2", []room.Presence{alice, carol})

	var last atomic.Value
	s.Subscribe(func(u Update) { last.Store(u.View) })

	s.Handle(room.Event{Kind: room.EventKicked, Room: "other", Username: "alice"})
	if s.Closed() {
		t.Fatal("kick for another room closed the session")
	}

	s.Handle(room.Event{Kind: room.EventKicked, Room: "general", Username: "alice"})
	if !s.Closed() {
		t.Fatal("session still open after kick")
	}
	if by, _ := actor.Load().(string); by != "alice" {
		t.Fatalf("OnKicked actor = %q", by)
	}
	v, _ := last.Load().(View)
	if !v.Kicked || v.KickedBy != "alice" {
		t.Fatalf("last view = %+v", v)
	}
	if err := s.Send(context.Background(), "hi"); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after kick = %v", err)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	s, ch, mock := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol})

	s.SetDraft("typing")
	s.Handle(room.Event{Kind: room.EventTyping, Username: "bob"})
	s.Close()
	s.Close()

	mock.Add(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if len(ch.commands(CommandStopTyping)) != 0 {
		t.Fatal("timer fired after close")
	}
	s.Handle(room.Event{Kind: room.EventMessageAppended, Message: chat("m9", "u1", "late", t0)})
	if len(s.View().Messages) != 0 {
		t.Fatal("closed session applied an event")
	}
}

func TestResyncClearsEphemeralState(t *testing.T) {
	s, ch, _ := newTestSession(t)
	seed(s, "u2", []room.Presence{alice, carol}, chat("m1", "u1", "hi", t0))
	s.Handle(room.Event{Kind: room.EventMention, Text: "ping"})
	s.Handle(room.Event{Kind: room.EventTyping, Username: "bob"})

	if err := s.Resync(context.Background()); err != nil {
		t.Fatal(err)
	}
	v := s.View()
	if v.Banner != "" || len(v.Typing) != 0 {
		t.Fatalf("ephemeral state kept: %+v", v)
	}
	if len(v.Messages) != 1 {
		t.Fatal("resync should keep the log until the snapshot arrives")
	}
	joins := ch.commands(CommandJoinRoom)
	if len(joins) != 1 || joins[0].Room != "general" || joins[0].Username != "carol" {
		t.Fatalf("joins = %+v", joins)
	}
}

func TestSearchRunsRequest(t *testing.T) {
	s, ch, _ := newTestSession(t)
	ch.reply = &Reply{Messages: []room.Message{chat("m1", "u1", "lunch at noon", t0)}}

	got, err := s.Search(context.Background(), " lunch ")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Fatalf("results = %+v", got)
	}
	if len(ch.asked) != 1 || ch.asked[0].Query != "lunch" || ch.asked[0].Kind != CommandSearchMessages {
		t.Fatalf("requests = %+v", ch.asked)
	}

	if got, err := s.Search(context.Background(), "  "); err != nil || got != nil {
		t.Fatalf("blank search = %v %v", got, err)
	}
}

func TestListRooms(t *testing.T) {
	ch := &fakeChannel{reply: &Reply{Rooms: []string{"general", "random"}}}
	rooms, err := ListRooms(context.Background(), ch)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rooms, []string{"general", "random"}) {
		t.Fatalf("rooms = %v", rooms)
	}
	if ch.asked[0].Kind != CommandListRooms {
		t.Fatalf("request kind = %v", ch.asked[0].Kind)
	}

	empty := &fakeChannel{}
	rooms, err = ListRooms(context.Background(), empty)
	if err != nil || rooms != nil {
		t.Fatalf("empty reply = %v %v", rooms, err)
	}
}

func TestSubscribeCancel(t *testing.T) {
	s, _, _ := newTestSession(t)
	var calls atomic.Int32
	cancel := s.Subscribe(func(Update) { calls.Add(1) })

	s.Handle(room.Event{Kind: room.EventUserID, UserID: "u2"})
	cancel()
	s.Handle(room.Event{Kind: room.EventRosterSnapshot, Roster: []room.Presence{carol}})

	if calls.Load() != 1 {
		t.Fatalf("listener calls = %d", calls.Load())
	}
}
