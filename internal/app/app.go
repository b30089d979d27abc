package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-roomsync/internal/attention"
	"github.com/vovakirdan/wirechat-roomsync/internal/auth"
	"github.com/vovakirdan/wirechat-roomsync/internal/config"
	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/store"
	"github.com/vovakirdan/wirechat-roomsync/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-roomsync/internal/transport/http"
	"github.com/vovakirdan/wirechat-roomsync/internal/transport/ws"
)

// ErrKicked is returned by Run when the server removes the local user.
var ErrKicked = errors.New("removed from room")

// App wires together the session, its transport and the optional local
// surfaces (control API, transcript archive).
type App struct {
	cfg     config.Config
	client  *ws.Client
	session *core.Session
	server  *stdhttp.Server
	store   store.Store
	rec     *store.Recorder
	log     *zerolog.Logger

	kickOnce sync.Once
	kicked   chan string
}

// ApplyToken fills the username from the token's claims and warns when the
// token has already expired. The token itself is left for the server to
// verify.
func ApplyToken(cfg *config.Config, logger *zerolog.Logger, now time.Time) {
	if cfg.Token == "" {
		return
	}
	info, err := auth.Inspect(cfg.Token)
	if err != nil {
		logger.Warn().Err(err).Msg("token is not a readable jwt, sending it as is")
		return
	}
	if cfg.Username == "" {
		cfg.Username = info.Username
	}
	if info.Expired(now) {
		logger.Warn().Time("expires_at", *info.ExpiresAt).Msg("token has expired, the server will likely reject it")
	}
}

// Dial connects to the configured server without joining a room.
func Dial(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*ws.Client, error) {
	client, err := ws.Dial(ctx, cfg.ServerURL, ws.Options{
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.ServerURL, err)
	}
	return client, nil
}

// New validates cfg, dials the server and prepares the session. Nothing is
// joined until Run.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	ApplyToken(&cfg, logger, time.Now())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		cfg:    cfg,
		log:    logger,
		kicked: make(chan string, 1),
	}

	if cfg.TranscriptPath != "" {
		st, err := sqlite.New(cfg.TranscriptPath)
		if err != nil {
			return nil, fmt.Errorf("init transcript: %w", err)
		}
		a.store = st
		logger.Info().Str("path", cfg.TranscriptPath).Msg("transcript archive enabled")
	}

	client, err := Dial(ctx, cfg, logger)
	if err != nil {
		a.cleanup()
		return nil, err
	}
	a.client = client

	a.session = core.NewSession(client, core.Options{
		Room:           cfg.Room,
		Username:       cfg.Username,
		Token:          cfg.Token,
		Logger:         logger,
		EditWindow:     cfg.EditWindow,
		TypingIdle:     cfg.TypingIdle,
		TypingThrottle: cfg.TypingThrottle,
		BannerDuration: cfg.BannerDuration,
		NoticeDuration: cfg.NoticeDuration,
		EmitTimeout:    cfg.EmitTimeout,
		Cadence: attention.Cadence{
			Fast:          cfg.BlinkFast,
			Slow:          cfg.BlinkSlow,
			FastThreshold: cfg.BlinkFastThreshold,
		},
		OnKicked: a.onKicked,
	})

	if a.store != nil {
		a.rec = store.NewRecorder(a.store, cfg.Room, logger)
		a.session.Subscribe(a.rec.Observe)
	}
	if cfg.ControlAddr != "" {
		a.server = transporthttp.NewServer(a.session, cfg, logger)
	}

	return a, nil
}

// Session exposes the running session to interactive front ends.
func (a *App) Session() *core.Session {
	return a.session
}

// Run joins the room and blocks until ctx is cancelled, the connection
// drops, the control server fails or the user is kicked.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if a.rec != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.rec.Run(ctx)
		}()
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- a.client.Listen(ctx, a.session.Handle)
	}()

	serverErr := make(chan error, 1)
	if a.server != nil {
		go func() {
			a.log.Info().Str("addr", a.server.Addr).Msg("control api listening")
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	var runErr error
	if err := a.session.Join(ctx); err != nil {
		runErr = fmt.Errorf("join %s: %w", a.cfg.Room, err)
	} else {
		a.log.Info().Str("room", a.cfg.Room).Str("username", a.cfg.Username).Msg("joined room")

		select {
		case <-ctx.Done():
		case err := <-listenErr:
			if ctx.Err() != nil {
				break
			}
			if err == nil {
				err = ws.ErrClosed
			}
			runErr = fmt.Errorf("connection: %w", err)
		case err := <-serverErr:
			runErr = fmt.Errorf("control api: %w", err)
		case by := <-a.kicked:
			runErr = fmt.Errorf("%w by %s", ErrKicked, by)
		}
	}

	a.shutdown()
	cancel()
	wg.Wait()
	a.cleanup()
	return runErr
}

func (a *App) onKicked(actor string) {
	a.kickOnce.Do(func() {
		if actor == "" {
			actor = "an admin"
		}
		a.kicked <- actor
	})
}

func (a *App) shutdown() {
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down control api")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("control api shutdown")
		}
	}
	a.session.Close()
	if err := a.client.Close(); err != nil {
		a.log.Debug().Err(err).Msg("close connection")
	}
}

// cleanup closes the archive.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close transcript")
		} else {
			a.log.Debug().Msg("transcript closed")
		}
	}
}
