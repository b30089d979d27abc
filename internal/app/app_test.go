package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/wirechat-roomsync/internal/auth"
	"github.com/vovakirdan/wirechat-roomsync/internal/config"
	"github.com/vovakirdan/wirechat-roomsync/internal/log"
	"github.com/vovakirdan/wirechat-roomsync/internal/proto"
	"github.com/vovakirdan/wirechat-roomsync/internal/store/sqlite"
)

func push(ctx context.Context, t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Errorf("marshal %s: %v", event, err)
		return
	}
	if err := wsjson.Write(ctx, conn, proto.Envelope{Type: proto.TypeEvent, Event: event, Data: raw}); err != nil {
		t.Errorf("write %s: %v", event, err)
	}
}

// startRoomServer accepts one client, checks its join and runs script.
func startRoomServer(t *testing.T, script func(ctx context.Context, conn *websocket.Conn)) string {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		ctx := context.Background()
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			t.Errorf("read join: %v", err)
			return
		}
		var join proto.JoinData
		if env.Event != proto.EventJoinRoom || json.Unmarshal(env.Data, &join) != nil || join.Room != "general" || join.Username != "carol" {
			t.Errorf("unexpected first frame %+v", env)
			return
		}
		script(ctx, conn)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)

	return strings.Replace(ts.URL, "http", "ws", 1)
}

func testConfig(url string) config.Config {
	cfg := config.Default()
	cfg.ServerURL = url
	cfg.Username = "carol"
	cfg.ControlAddr = ""
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestRunStopsWhenKicked(t *testing.T) {
	url := startRoomServer(t, func(ctx context.Context, conn *websocket.Conn) {
		push(ctx, t, conn, proto.EventUserID, "u-carol")
		push(ctx, t, conn, proto.EventAllMessages, []proto.Message{
			{ID: "m1", User: proto.User{ID: "u-dave", Username: "dave"}, Text: "hi carol", CreatedAt: time.Now().UnixMilli()},
			{ID: "m2", User: proto.User{ID: "u-carol", Username: "carol"}, Text: "hey", CreatedAt: time.Now().UnixMilli()},
		})
		push(ctx, t, conn, proto.EventKicked, proto.KickedData{Room: "general", By: "dave"})
	})

	cfg := testConfig(url)
	cfg.TranscriptPath = filepath.Join(t.TempDir(), "transcript.db")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := New(ctx, cfg, log.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = a.Run(ctx)
	if !errors.Is(err, ErrKicked) {
		t.Fatalf("expected ErrKicked, got %v", err)
	}
	if !strings.Contains(err.Error(), "dave") {
		t.Fatalf("kick actor missing: %v", err)
	}
	if !a.Session().Closed() {
		t.Fatal("session should be closed")
	}

	st, err := sqlite.New(cfg.TranscriptPath)
	if err != nil {
		t.Fatalf("reopen transcript: %v", err)
	}
	defer st.Close()
	msgs, err := st.ListMessages(context.Background(), "general", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "hi carol" {
		t.Fatalf("archived = %+v", msgs)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	url := startRoomServer(t, func(ctx context.Context, conn *websocket.Conn) {})

	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, testConfig(url), log.Nop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Username = ""

	if _, err := New(context.Background(), cfg, log.Nop()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestApplyToken(t *testing.T) {
	sign := func(claims auth.Claims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		cfg      config.Config
		wantUser string
	}{
		{
			name:     "username from claims",
			cfg:      config.Config{Token: sign(auth.Claims{Username: "carol"})},
			wantUser: "carol",
		},
		{
			name:     "configured username wins",
			cfg:      config.Config{Username: "dave", Token: sign(auth.Claims{Username: "carol"})},
			wantUser: "dave",
		},
		{
			name: "expired token still applies",
			cfg: config.Config{Token: sign(auth.Claims{
				Username:         "erin",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour))},
			})},
			wantUser: "erin",
		},
		{
			name:     "opaque token",
			cfg:      config.Config{Token: "not-a-jwt"},
			wantUser: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			ApplyToken(&cfg, log.Nop(), now)
			if cfg.Username != tt.wantUser {
				t.Fatalf("username = %q, want %q", cfg.Username, tt.wantUser)
			}
		})
	}
}
