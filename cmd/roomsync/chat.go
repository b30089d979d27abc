package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/policy"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

const chatHelp = `commands:
  /edit <id> <text>       replace one of your messages
  /delete <id>            delete a message (admins confirm others' messages)
  /confirm, /cancel       answer a pending delete
  /pin <id>, /unpin       pin or unpin a message
  /kick <user-id>         remove a user (admin)
  /poll [dur] q | a | b   start a poll, /mpoll allows several answers
  /select <n>, /vote      pick option n and submit
  /endpoll                close the poll (admin)
  /theme <theme> [color]  change room appearance
  /search <text>          search the room history
  /who                    show who is online
  /quit                   leave`

var errQuit = errors.New("quit")

// chat is a line-oriented front end for a session.
type chat struct {
	session *core.Session

	mu      sync.Mutex
	out     io.Writer
	printed map[string]string
	notice  string
	banner  string
}

func newChat(s *core.Session, out io.Writer) *chat {
	return &chat{session: s, out: out, printed: make(map[string]string)}
}

// observe prints what changed. It runs under the session lock and must not
// call back into the session.
func (c *chat) observe(u core.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := u.View
	if u.Delta.Has(room.DeltaMessages) {
		for _, m := range v.Messages {
			key := messageKey(m)
			if text, seen := c.printed[key]; seen && text == m.Text {
				continue
			}
			c.printed[key] = m.Text
			fmt.Fprintln(c.out, formatMessage(m))
		}
	}
	if v.Notice != nil && v.Notice.Text != c.notice {
		fmt.Fprintf(c.out, "! %s\n", v.Notice.Text)
	}
	if v.Notice == nil {
		c.notice = ""
	} else {
		c.notice = v.Notice.Text
	}
	if v.Banner != "" && v.Banner != c.banner {
		fmt.Fprintf(c.out, "* %s\n", v.Banner)
	}
	c.banner = v.Banner
	if u.Delta.Has(room.DeltaPoll) && v.Poll != nil {
		fmt.Fprintln(c.out, formatPoll(v.Poll))
	}
	if v.Kicked {
		fmt.Fprintf(c.out, "! you were removed from #%s\n", v.Room)
	}
}

func (c *chat) println(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

// run reads lines until EOF, /quit or ctx is done. It reports whether the
// user asked to leave.
func (c *chat) run(ctx context.Context, in io.Reader) (quit bool) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return false
		case line, ok := <-lines:
			if !ok {
				return false
			}
			err := c.exec(ctx, line)
			if errors.Is(err, errQuit) {
				return true
			}
			if err != nil {
				c.reportError(err)
			}
		}
	}
}

func (c *chat) reportError(err error) {
	// local rejections already show up as a notice
	if errors.Is(err, core.ErrPolicy) {
		return
	}
	c.println("! %v", err)
}

// exec runs one input line.
func (c *chat) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return c.session.Send(ctx, line)
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	s := c.session

	switch name {
	case "quit", "exit":
		return errQuit
	case "help":
		c.println("%s", chatHelp)
		return nil
	case "edit":
		id, text, ok := strings.Cut(rest, " ")
		if !ok {
			return errors.New("usage: /edit <id> <text>")
		}
		if err := s.BeginEdit(id); err != nil {
			return err
		}
		return s.SubmitEdit(ctx, text)
	case "delete":
		decision, err := s.RequestDelete(ctx, rest)
		if err != nil {
			return err
		}
		if decision == policy.DeleteNeedsConfirm {
			c.println("delete %s? /confirm or /cancel", rest)
		}
		return nil
	case "confirm":
		return s.ConfirmDelete(ctx)
	case "cancel":
		s.CancelDelete()
		s.CancelEdit()
		return nil
	case "pin":
		return s.Pin(ctx, rest)
	case "unpin":
		return s.Unpin(ctx)
	case "kick":
		return s.Kick(ctx, rest)
	case "poll", "mpoll":
		if rest == "" {
			if p := s.View().Poll; p != nil {
				c.println("%s", formatPoll(p))
			} else {
				c.println("no poll")
			}
			return nil
		}
		question, options, duration, err := parsePoll(rest)
		if err != nil {
			return err
		}
		return s.StartPoll(ctx, question, options, name == "mpoll", duration)
	case "select":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return errors.New("usage: /select <option number>")
		}
		return s.SelectPollOption(n - 1)
	case "vote":
		return s.Vote(ctx)
	case "endpoll":
		return s.EndPoll(ctx)
	case "theme":
		theme, color, _ := strings.Cut(rest, " ")
		return s.UpdateAppearance(ctx, theme, strings.TrimSpace(color))
	case "search":
		msgs, err := s.Search(ctx, rest)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			c.println("no matches")
		}
		for _, m := range msgs {
			c.println("  %s", formatMessage(m))
		}
		return nil
	case "who":
		for _, p := range s.View().Roster {
			role := ""
			if p.IsAdmin {
				role = " (admin)"
			}
			c.println("  %s [%s]%s", p.Username, p.ID, role)
		}
		return nil
	default:
		return fmt.Errorf("unknown command /%s, try /help", name)
	}
}

// parsePoll reads "[duration] question | option | option ...".
func parsePoll(in string) (question string, options []string, duration time.Duration, err error) {
	if first, rest, ok := strings.Cut(in, " "); ok {
		if d, perr := time.ParseDuration(first); perr == nil {
			duration, in = d, rest
		}
	}
	parts := strings.Split(in, "|")
	question = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			options = append(options, p)
		}
	}
	if question == "" {
		return "", nil, 0, errors.New("usage: /poll [duration] question | option | option")
	}
	return question, options, duration, nil
}

func messageKey(m room.Message) string {
	if m.HasID() {
		return m.ID
	}
	return m.CreatedAt.String() + "\x00" + m.Text
}

func formatMessage(m room.Message) string {
	if m.IsSystem() {
		return fmt.Sprintf("[%s] -- %s", m.Time, m.Text)
	}
	line := fmt.Sprintf("[%s] %s: %s", m.Time, m.User.Username, m.Text)
	if m.Edited {
		line += " (edited)"
	}
	if m.HasID() {
		line += "  #" + m.ID
	}
	return line
}

func formatPoll(p *core.PollView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "poll (%s): %s", p.Phase, p.Question)
	for i, o := range p.Options {
		mark := " "
		if o.Selected {
			mark = "x"
		}
		fmt.Fprintf(&b, "\n  [%s] %d. %s  %d (%d%%)", mark, i+1, o.Text, o.Count, o.Percent)
	}
	if p.Remaining > 0 {
		fmt.Fprintf(&b, "\n  %s left", p.Remaining.Round(time.Second))
	}
	return b.String()
}
