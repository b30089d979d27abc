package core

import "github.com/vovakirdan/wirechat-roomsync/internal/room"

// CommandKind describes what the session asks the server to do.
type CommandKind int

const (
	// CommandJoinRoom subscribes to a room and requests a full snapshot.
	CommandJoinRoom CommandKind = iota
	// CommandSendMessage posts a chat line.
	CommandSendMessage
	// CommandDeleteMessage removes a message.
	CommandDeleteMessage
	// CommandEditMessage replaces a message's text.
	CommandEditMessage
	// CommandPinMessage pins a message, or unpins when MessageID is empty.
	CommandPinMessage
	// CommandKickUser removes a user from the room.
	CommandKickUser
	// CommandStartPoll opens a poll.
	CommandStartPoll
	// CommandVotePoll submits the local vote.
	CommandVotePoll
	// CommandEndPoll closes the running poll.
	CommandEndPoll
	// CommandUpdateAppearance changes theme and background.
	CommandUpdateAppearance
	// CommandMarkRead reports a message as seen.
	CommandMarkRead
	// CommandTyping announces the local user is typing.
	CommandTyping
	// CommandStopTyping withdraws the typing announcement.
	CommandStopTyping

	// Request/acknowledge commands
	// CommandSearchMessages asks the server for matching messages.
	CommandSearchMessages
	// CommandListRooms asks for the rooms the server knows.
	CommandListRooms
)

var commandKindNames = map[CommandKind]string{
	CommandJoinRoom:         "join_room",
	CommandSendMessage:      "send_message",
	CommandDeleteMessage:    "delete_message",
	CommandEditMessage:      "edit_message",
	CommandPinMessage:       "pin_message",
	CommandKickUser:         "kick_user",
	CommandStartPoll:        "start_poll",
	CommandVotePoll:         "vote_poll",
	CommandEndPoll:          "end_poll",
	CommandUpdateAppearance: "update_appearance",
	CommandMarkRead:         "mark_read",
	CommandTyping:           "typing",
	CommandStopTyping:       "stop_typing",
	CommandSearchMessages:   "search_messages",
	CommandListRooms:        "list_rooms",
}

func (k CommandKind) String() string {
	if name, ok := commandKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is one outbound intent. Only the fields relevant to Kind are set.
type Command struct {
	Kind       CommandKind
	Room       string
	Username   string
	Token      string
	MessageID  string
	UserID     string
	Text       string
	Query      string
	Poll       *PollRequest
	Votes      []int
	Appearance room.Appearance
}

// PollRequest carries the start-poll form.
type PollRequest struct {
	Question string
	Options  []string
	Multiple bool
	// DurationSeconds is nil for polls that run until ended by an admin.
	DurationSeconds *int
}

// Reply is the answer to a request/acknowledge command.
type Reply struct {
	Messages []room.Message
	Rooms    []string
}
