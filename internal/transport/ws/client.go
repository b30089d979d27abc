// Package ws connects a room session to the chat server over WebSocket.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/proto"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

// ErrClosed is returned once the connection is gone.
var ErrClosed = errors.New("connection closed")

// Options tune the client. Zero values take defaults.
type Options struct {
	Header         http.Header
	RequestTimeout time.Duration
	Logger         *zerolog.Logger
}

type result struct {
	reply *core.Reply
	err   error
}

type pendingRequest struct {
	kind core.CommandKind
	ch   chan result
}

// Client implements core.Channel on one WebSocket connection. Pushes are
// handed to the handler passed to Listen; acks resolve pending requests.
type Client struct {
	conn    *websocket.Conn
	log     zerolog.Logger
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]pendingRequest
	order   []string
	closed  bool

	done      chan struct{}
	closeOnce sync.Once
}

var _ core.Channel = (*Client)(nil)

// Dial opens the connection. Call Listen to start reading.
func Dial(ctx context.Context, url string, opts Options) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: opts.Header})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		conn:    conn,
		log:     logger.With().Str("component", "ws").Logger(),
		timeout: timeout,
		pending: make(map[string]pendingRequest),
		done:    make(chan struct{}),
	}, nil
}

// Listen reads frames until the connection ends or ctx is cancelled.
// handler runs on the reading goroutine in arrival order.
func (c *Client) Listen(ctx context.Context, handler func(room.Event)) error {
	defer c.shutdown()

	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			select {
			case <-c.done:
				return nil
			default:
			}
			return fmt.Errorf("read: %w", err)
		}
		c.dispatch(env, handler)
	}
}

func (c *Client) dispatch(env proto.Envelope, handler func(room.Event)) {
	switch env.Type {
	case proto.TypeAck:
		c.resolve(env.ID, env.Data, nil)
		return
	case proto.TypeError:
		protoErr := env.Error
		if protoErr == nil {
			protoErr = &proto.Error{Msg: "request failed"}
		}
		if env.ID != "" {
			c.resolve(env.ID, nil, protoErr)
			return
		}
		handler(room.Event{Kind: room.EventActionError, Text: protoErr.Msg})
		return
	}

	if env.Event == proto.EventRoomsList {
		c.resolveOldest(core.CommandListRooms, env.Data)
		return
	}

	ev, ok, err := envelopeToEvent(env)
	if err != nil {
		c.log.Warn().Err(err).Str("event", env.Event).Msg("decode inbound event")
		return
	}
	if !ok {
		c.log.Debug().Str("event", env.Event).Msg("ignoring unknown event")
		return
	}
	handler(ev)
}

// Emit sends a fire-and-forget command.
func (c *Client) Emit(ctx context.Context, cmd core.Command) error {
	env, err := commandToEnvelope(cmd)
	if err != nil {
		return err
	}
	return c.write(ctx, env)
}

// Request sends cmd and waits for the matching ack.
func (c *Client) Request(ctx context.Context, cmd core.Command) (*core.Reply, error) {
	env, err := commandToEnvelope(cmd)
	if err != nil {
		return nil, err
	}
	env.Type = proto.TypeRequest
	env.ID = uuid.NewString()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ch := make(chan result, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[env.ID] = pendingRequest{kind: cmd.Kind, ch: ch}
	c.order = append(c.order, env.ID)
	c.mu.Unlock()
	defer c.forget(env.ID)

	if err := c.write(ctx, env); err != nil {
		return nil, err
	}

	select {
	case res := <-ch:
		return res.reply, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

// Close ends the connection with a normal closure.
func (c *Client) Close() error {
	c.shutdown()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) write(ctx context.Context, env proto.Envelope) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wsjson.Write(ctx, c.conn, env); err != nil {
		return fmt.Errorf("write %s: %w", env.Event, err)
	}
	return nil
}

func (c *Client) resolve(id string, data []byte, protoErr *proto.Error) {
	c.mu.Lock()
	p, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		c.log.Debug().Str("id", id).Msg("ack for unknown request")
		return
	}
	if protoErr != nil {
		p.ch <- result{err: protoErr}
		return
	}
	reply, err := replyFromAck(p.kind, data)
	p.ch <- result{reply: reply, err: err}
}

// resolveOldest answers the oldest pending request of kind with a plain
// event instead of an ack.
func (c *Client) resolveOldest(kind core.CommandKind, data []byte) {
	c.mu.Lock()
	var id string
	for _, candidate := range c.order {
		if p, ok := c.pending[candidate]; ok && p.kind == kind {
			id = candidate
			break
		}
	}
	c.mu.Unlock()
	if id != "" {
		c.resolve(id, data, nil)
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
	for i, candidate := range c.order {
		if candidate == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
	})
}
