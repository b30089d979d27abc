package proto

import "encoding/json"

// Envelope is the frame exchanged with the chat server in both directions.
type Envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

const (
	TypeEvent   = "event"
	TypeRequest = "request"
	TypeAck     = "ack"
	TypeError   = "error"
)

// Outbound event names.
const (
	EventJoinRoom             = "joinRoom"
	EventChatMessage          = "chatMessage"
	EventDeleteMessage        = "deleteMessage"
	EventEditMessage          = "editMessage"
	EventPinMessage           = "pinMessage"
	EventKickUser             = "kickUser"
	EventStartPoll            = "startPoll"
	EventVotePoll             = "votePoll"
	EventEndPoll              = "endPoll"
	EventUpdateRoomAppearance = "updateRoomAppearance"
	EventMarkRead             = "markRead"
	EventSearchMessages       = "searchMessages"
	EventGetRooms             = "getRooms"
)

// Inbound event names.
const (
	EventUserID         = "userId"
	EventAllMessages    = "allMessages"
	EventMessage        = "message"
	EventMessageDeleted = "messageDeleted"
	EventMessageEdited  = "messageEdited"
	EventReadReceipt    = "readReceipt"
	EventOnlineUsers    = "onlineUsers"
	EventPinnedMessage  = "pinnedMessage"
	EventRoomAppearance = "roomAppearance"
	EventPollState      = "pollState"
	EventPollStarted    = "pollStarted"
	EventPollUpdated    = "pollUpdated"
	EventPollEnded      = "pollEnded"
	EventMention        = "mention"
	EventKicked         = "kicked"
	EventActionError    = "actionError"
	EventEditError      = "editError"
	EventRoomsList      = "roomsList"
)

// Typing signals travel in both directions under the same names.
const (
	EventTyping     = "typing"
	EventStopTyping = "stopTyping"
)

// JoinData requests a room and its snapshot.
type JoinData struct {
	Username string `json:"username"`
	Room     string `json:"room"`
	Token    string `json:"token,omitempty"`
}

// ChatData posts a message.
type ChatData struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// MessageRef names one message, as in delete and mark-read.
type MessageRef struct {
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
}

// EditData replaces a message's text.
type EditData struct {
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

// PinData pins a message; a null id unpins.
type PinData struct {
	Room      string  `json:"room"`
	MessageID *string `json:"messageId"`
}

// KickData removes a user.
type KickData struct {
	Room   string `json:"room"`
	UserID string `json:"userId"`
}

// StartPollData opens a poll. A null duration runs until ended.
type StartPollData struct {
	Room            string   `json:"room"`
	Question        string   `json:"question"`
	Options         []string `json:"options"`
	Multiple        bool     `json:"multiple"`
	DurationSeconds *int     `json:"durationSeconds"`
}

// VoteData carries the chosen option indexes.
type VoteData struct {
	Room          string `json:"room"`
	OptionIndexes []int  `json:"optionIndexes"`
}

// RoomData is the payload of commands that only name the room.
type RoomData struct {
	Room string `json:"room"`
}

// AppearanceData is the room look in both directions.
type AppearanceData struct {
	Room            string `json:"room,omitempty"`
	Theme           string `json:"theme"`
	BackgroundColor string `json:"backgroundColor"`
}

// TypingData announces or withdraws typing.
type TypingData struct {
	Room     string `json:"room,omitempty"`
	Username string `json:"username"`
}

// SearchData queries the room history.
type SearchData struct {
	Room  string `json:"room"`
	Query string `json:"query"`
}

// User identifies a message author.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Message is a chat or system line as the server sends it.
type Message struct {
	ID        string   `json:"id,omitempty"`
	User      User     `json:"user"`
	Text      string   `json:"text"`
	Type      string   `json:"type,omitempty"`
	CreatedAt int64    `json:"createdAt,omitempty"`
	Time      string   `json:"time,omitempty"`
	ReadBy    []string `json:"readBy,omitempty"`
	Edited    bool     `json:"edited,omitempty"`
	EditTime  string   `json:"editTime,omitempty"`
}

// EditedData reports a changed message.
type EditedData struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
	EditTime  string `json:"editTime,omitempty"`
}

// ReceiptData reports that a user read a message.
type ReceiptData struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// OnlineUser is one roster entry.
type OnlineUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// PinnedData carries the pinned message, or null when nothing is pinned.
type PinnedData struct {
	Message *Message `json:"message"`
}

// PollOption is one option with its tally.
type PollOption struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Poll is the server's poll state.
type Poll struct {
	ID           string       `json:"id"`
	Question     string       `json:"question"`
	Options      []PollOption `json:"options"`
	Multiple     bool         `json:"multiple"`
	StartedAt    int64        `json:"startedAt,omitempty"`
	EndsAt       *int64       `json:"endsAt,omitempty"`
	VotedUserIDs []string     `json:"votedUserIds,omitempty"`
}

// TextData is used by mention and error pushes.
type TextData struct {
	Text string `json:"text"`
}

// KickedData tells the local user who removed them.
type KickedData struct {
	Room string `json:"room,omitempty"`
	By   string `json:"by,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Msg
	}
	return e.Code + ": " + e.Msg
}
