package http

import (
	"sort"
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

// MessageResponse is one message of the log.
type MessageResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Time      string    `json:"time"`
	ReadBy    []string  `json:"read_by"`
	Edited    bool      `json:"edited"`
	EditTime  string    `json:"edit_time,omitempty"`
}

// PresenceResponse is one roster entry.
type PresenceResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// AppearanceResponse holds theme settings.
type AppearanceResponse struct {
	Theme           string `json:"theme"`
	BackgroundColor string `json:"background_color"`
}

type PollOptionResponse struct {
	Text     string `json:"text"`
	Count    int    `json:"count"`
	Percent  int    `json:"percent"`
	Selected bool   `json:"selected"`
}

type PollResponse struct {
	ID               string               `json:"id"`
	Question         string               `json:"question"`
	Phase            string               `json:"phase"`
	Multiple         bool                 `json:"multiple"`
	Options          []PollOptionResponse `json:"options"`
	TotalVotes       int                  `json:"total_votes"`
	HasVoted         bool                 `json:"has_voted"`
	EndsAt           *time.Time           `json:"ends_at,omitempty"`
	RemainingSeconds int                  `json:"remaining_seconds"`
}

type NoticeResponse struct {
	Code string `json:"code"`
	Text string `json:"text"`
}

// StateResponse is the whole session view.
type StateResponse struct {
	Room          string             `json:"room"`
	UserID        string             `json:"user_id"`
	Username      string             `json:"username"`
	IsAdmin       bool               `json:"is_admin"`
	Messages      []MessageResponse  `json:"messages"`
	Roster        []PresenceResponse `json:"roster"`
	Pinned        *MessageResponse   `json:"pinned"`
	Appearance    AppearanceResponse `json:"appearance"`
	Poll          *PollResponse      `json:"poll"`
	Unread        int                `json:"unread"`
	Title         string             `json:"title"`
	TitleState    string             `json:"title_state"`
	Banner        string             `json:"banner,omitempty"`
	Typing        []string           `json:"typing"`
	Draft         string             `json:"draft"`
	Suggestions   []string           `json:"suggestions"`
	Editing       string             `json:"editing,omitempty"`
	PendingDelete string             `json:"pending_delete,omitempty"`
	Notice        *NoticeResponse    `json:"notice"`
	Focused       bool               `json:"focused"`
	Kicked        bool               `json:"kicked"`
	KickedBy      string             `json:"kicked_by,omitempty"`
}

func toStateResponse(v core.View) StateResponse {
	resp := StateResponse{
		Room:          v.Room,
		UserID:        v.UserID,
		Username:      v.Username,
		IsAdmin:       v.AmIAdmin,
		Messages:      toMessageResponses(v.Messages),
		Roster:        make([]PresenceResponse, 0, len(v.Roster)),
		Appearance:    AppearanceResponse{Theme: v.Appearance.Theme, BackgroundColor: v.Appearance.BackgroundColor},
		Unread:        v.Unread,
		Title:         v.Title,
		TitleState:    v.TitleState.String(),
		Banner:        v.Banner,
		Typing:        nonNil(v.Typing),
		Draft:         v.Draft,
		Suggestions:   nonNil(v.Suggestions),
		Editing:       v.Editing,
		PendingDelete: v.PendingDelete,
		Focused:       v.Focused,
		Kicked:        v.Kicked,
		KickedBy:      v.KickedBy,
	}
	for _, p := range v.Roster {
		resp.Roster = append(resp.Roster, PresenceResponse{ID: p.ID, Username: p.Username, IsAdmin: p.IsAdmin})
	}
	if v.Pinned != nil {
		pinned := toMessageResponse(*v.Pinned)
		resp.Pinned = &pinned
	}
	if v.Poll != nil {
		resp.Poll = toPollResponse(v.Poll)
	}
	if v.Notice != nil {
		resp.Notice = &NoticeResponse{Code: v.Notice.Code, Text: v.Notice.Text}
	}
	return resp
}

func toMessageResponses(msgs []room.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toMessageResponse(m room.Message) MessageResponse {
	readBy := m.Readers()
	sort.Strings(readBy)
	return MessageResponse{
		ID:        m.ID,
		UserID:    m.User.ID,
		Username:  m.User.Username,
		Text:      m.Text,
		Type:      string(m.Type),
		CreatedAt: m.CreatedAt,
		Time:      m.Time,
		ReadBy:    readBy,
		Edited:    m.Edited,
		EditTime:  m.EditTime,
	}
}

func toPollResponse(p *core.PollView) *PollResponse {
	resp := &PollResponse{
		ID:               p.ID,
		Question:         p.Question,
		Phase:            p.Phase.String(),
		Multiple:         p.Multiple,
		Options:          make([]PollOptionResponse, 0, len(p.Options)),
		TotalVotes:       p.TotalVotes,
		HasVoted:         p.HasVoted,
		EndsAt:           p.EndsAt,
		RemainingSeconds: int(p.Remaining / time.Second),
	}
	for _, o := range p.Options {
		resp.Options = append(resp.Options, PollOptionResponse{
			Text:     o.Text,
			Count:    o.Count,
			Percent:  o.Percent,
			Selected: o.Selected,
		})
	}
	return resp
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
