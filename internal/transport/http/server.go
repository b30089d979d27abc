// Package http exposes a running room session as a local JSON control API.
package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-roomsync/internal/config"
	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/policy"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

// Session is the part of core.Session the control API drives.
type Session interface {
	View() core.View
	SetFocus(focused bool)
	SetVisible(ids []string)
	SetDraft(text string)
	SelectSuggestion(username string) string
	Send(ctx context.Context, text string) error
	BeginEdit(messageID string) error
	SubmitEdit(ctx context.Context, text string) error
	CancelEdit()
	RequestDelete(ctx context.Context, messageID string) (policy.DeleteDecision, error)
	ConfirmDelete(ctx context.Context) error
	CancelDelete()
	Pin(ctx context.Context, messageID string) error
	Unpin(ctx context.Context) error
	Kick(ctx context.Context, userID string) error
	StartPoll(ctx context.Context, question string, options []string, multiple bool, duration time.Duration) error
	SelectPollOption(i int) error
	Vote(ctx context.Context) error
	EndPoll(ctx context.Context) error
	UpdateAppearance(ctx context.Context, theme, background string) error
	Search(ctx context.Context, query string) ([]room.Message, error)
}

var _ Session = (*core.Session)(nil)

// NewServer builds the control server listening on cfg.ControlAddr.
func NewServer(session Session, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.ControlAddr,
		Handler:           NewRouter(session, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers every control route on a fresh gin engine.
func NewRouter(session Session, logger *zerolog.Logger) *gin.Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))

	h := NewHandlers(session, logger)

	engine.GET("/health", h.Health)

	api := engine.Group("/api")
	{
		api.GET("/state", h.State)
		api.PUT("/focus", h.SetFocus)
		api.PUT("/visible", h.SetVisible)
		api.PUT("/draft", h.SetDraft)
		api.POST("/suggestions/select", h.SelectSuggestion)
		api.GET("/search", h.Search)

		messages := api.Group("/messages")
		{
			messages.POST("", h.Send)
			messages.POST("/:id/edit", h.BeginEdit)
			messages.DELETE("/:id", h.RequestDelete)
		}

		api.PUT("/edit", h.SubmitEdit)
		api.DELETE("/edit", h.CancelEdit)
		api.POST("/delete/confirm", h.ConfirmDelete)
		api.POST("/delete/cancel", h.CancelDelete)

		api.PUT("/pin", h.Pin)
		api.DELETE("/pin", h.Unpin)
		api.POST("/users/:id/kick", h.Kick)

		polls := api.Group("/poll")
		{
			polls.POST("", h.StartPoll)
			polls.POST("/select", h.SelectPollOption)
			polls.POST("/vote", h.Vote)
			polls.DELETE("", h.EndPoll)
		}

		api.PUT("/appearance", h.UpdateAppearance)
	}

	return engine
}
