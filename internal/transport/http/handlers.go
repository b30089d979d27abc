package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/policy"
)

// Handlers provides HTTP handlers for the control API.
type Handlers struct {
	session Session
	log     *zerolog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(session Session, logger *zerolog.Logger) *Handlers {
	return &Handlers{session: session, log: logger}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type FocusRequest struct {
	Focused *bool `json:"focused" binding:"required"`
}

type VisibleRequest struct {
	IDs []string `json:"ids"`
}

type TextRequest struct {
	Text string `json:"text"`
}

type SuggestionRequest struct {
	Username string `json:"username" binding:"required"`
}

type PinRequest struct {
	MessageID string `json:"message_id" binding:"required"`
}

type StartPollRequest struct {
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	Multiple        bool     `json:"multiple"`
	DurationSeconds int      `json:"duration_seconds" binding:"min=0"`
}

type SelectOptionRequest struct {
	Index *int `json:"index" binding:"required"`
}

type AppearanceRequest struct {
	Theme           string `json:"theme"`
	BackgroundColor string `json:"background_color"`
}

type DraftResponse struct {
	Draft string `json:"draft"`
}

type DeleteResponse struct {
	// Status is "deleted" or "confirm".
	Status string `json:"status"`
}

type SearchResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// Health answers liveness probes.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// State returns the current session view.
// GET /api/state
func (h *Handlers) State(c *gin.Context) {
	c.JSON(http.StatusOK, toStateResponse(h.session.View()))
}

// SetFocus reports window focus.
// PUT /api/focus
func (h *Handlers) SetFocus(c *gin.Context) {
	var req FocusRequest
	if !h.bind(c, &req) {
		return
	}
	h.session.SetFocus(*req.Focused)
	c.Status(http.StatusNoContent)
}

// SetVisible reports which messages are on screen.
// PUT /api/visible
func (h *Handlers) SetVisible(c *gin.Context) {
	var req VisibleRequest
	if !h.bind(c, &req) {
		return
	}
	h.session.SetVisible(req.IDs)
	c.Status(http.StatusNoContent)
}

// SetDraft replaces the composer text.
// PUT /api/draft
func (h *Handlers) SetDraft(c *gin.Context) {
	var req TextRequest
	if !h.bind(c, &req) {
		return
	}
	h.session.SetDraft(req.Text)
	c.Status(http.StatusNoContent)
}

// SelectSuggestion completes the mention under the cursor.
// POST /api/suggestions/select
func (h *Handlers) SelectSuggestion(c *gin.Context) {
	var req SuggestionRequest
	if !h.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, DraftResponse{Draft: h.session.SelectSuggestion(req.Username)})
}

// Send posts a chat line.
// POST /api/messages
func (h *Handlers) Send(c *gin.Context) {
	var req TextRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.session.Send(c.Request.Context(), req.Text); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// BeginEdit opens the editor on a message.
// POST /api/messages/:id/edit
func (h *Handlers) BeginEdit(c *gin.Context) {
	if err := h.session.BeginEdit(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitEdit sends the edited text.
// PUT /api/edit
func (h *Handlers) SubmitEdit(c *gin.Context) {
	var req TextRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.session.SubmitEdit(c.Request.Context(), req.Text); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// CancelEdit closes the editor.
// DELETE /api/edit
func (h *Handlers) CancelEdit(c *gin.Context) {
	h.session.CancelEdit()
	c.Status(http.StatusNoContent)
}

// RequestDelete deletes a message or asks for confirmation.
// DELETE /api/messages/:id
func (h *Handlers) RequestDelete(c *gin.Context) {
	decision, err := h.session.RequestDelete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if decision == policy.DeleteNeedsConfirm {
		c.JSON(http.StatusAccepted, DeleteResponse{Status: "confirm"})
		return
	}
	c.JSON(http.StatusAccepted, DeleteResponse{Status: "deleted"})
}

// ConfirmDelete sends the pending deletion.
// POST /api/delete/confirm
func (h *Handlers) ConfirmDelete(c *gin.Context) {
	if err := h.session.ConfirmDelete(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// CancelDelete drops the pending deletion.
// POST /api/delete/cancel
func (h *Handlers) CancelDelete(c *gin.Context) {
	h.session.CancelDelete()
	c.Status(http.StatusNoContent)
}

// Pin pins a message.
// PUT /api/pin
func (h *Handlers) Pin(c *gin.Context) {
	var req PinRequest
	if !h.bind(c, &req) {
		return
	}
	h.accepted(c, h.session.Pin(c.Request.Context(), req.MessageID))
}

// Unpin clears the pinned message.
// DELETE /api/pin
func (h *Handlers) Unpin(c *gin.Context) {
	h.accepted(c, h.session.Unpin(c.Request.Context()))
}

// Kick removes a user from the room.
// POST /api/users/:id/kick
func (h *Handlers) Kick(c *gin.Context) {
	h.accepted(c, h.session.Kick(c.Request.Context(), c.Param("id")))
}

// StartPoll opens a poll.
// POST /api/poll
func (h *Handlers) StartPoll(c *gin.Context) {
	var req StartPollRequest
	if !h.bind(c, &req) {
		return
	}
	duration := time.Duration(req.DurationSeconds) * time.Second
	h.accepted(c, h.session.StartPoll(c.Request.Context(), req.Question, req.Options, req.Multiple, duration))
}

// SelectPollOption toggles a local poll selection.
// POST /api/poll/select
func (h *Handlers) SelectPollOption(c *gin.Context) {
	var req SelectOptionRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.session.SelectPollOption(*req.Index); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Vote submits the current selection.
// POST /api/poll/vote
func (h *Handlers) Vote(c *gin.Context) {
	h.accepted(c, h.session.Vote(c.Request.Context()))
}

// EndPoll closes the running poll.
// DELETE /api/poll
func (h *Handlers) EndPoll(c *gin.Context) {
	h.accepted(c, h.session.EndPoll(c.Request.Context()))
}

// UpdateAppearance changes theme and background.
// PUT /api/appearance
func (h *Handlers) UpdateAppearance(c *gin.Context) {
	var req AppearanceRequest
	if !h.bind(c, &req) {
		return
	}
	h.accepted(c, h.session.UpdateAppearance(c.Request.Context(), req.Theme, req.BackgroundColor))
}

// Search asks the server for matching messages.
// GET /api/search?q=
func (h *Handlers) Search(c *gin.Context) {
	msgs, err := h.session.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SearchResponse{Messages: toMessageResponses(msgs)})
}

func (h *Handlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.Debug().Err(err).Str("path", c.FullPath()).Msg("invalid control request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "bad_request", Error: "invalid request body"})
		return false
	}
	return true
}

func (h *Handlers) accepted(c *gin.Context, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// fail maps session errors onto status codes: local rejections are 422,
// a closed session is 409 and anything else is a transport failure.
func (h *Handlers) fail(c *gin.Context, err error) {
	var ce *core.CoreError
	switch {
	case errors.As(err, &ce) && errors.Is(err, core.ErrPolicy):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: ce.Code, Error: ce.Message})
	case errors.Is(err, core.ErrClosed):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "session_closed", Error: err.Error()})
	default:
		h.log.Warn().Err(err).Str("path", c.FullPath()).Msg("control action failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Code: "transport", Error: err.Error()})
	}
}
