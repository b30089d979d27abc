package room

// EventKind is a push the server sends about the room.
type EventKind int

const (
	// EventUserID assigns the local user's id for this connection.
	EventUserID EventKind = iota
	// EventMessageSnapshot replaces the whole message log.
	EventMessageSnapshot
	// EventMessageAppended delivers one new message.
	EventMessageAppended
	// EventMessageDeleted removes a message by id.
	EventMessageDeleted
	// EventMessageEdited replaces the text of a message.
	EventMessageEdited
	// EventReadReceipt records that a user has seen a message.
	EventReadReceipt
	// EventRosterSnapshot replaces the presence roster.
	EventRosterSnapshot
	// EventPinned sets or clears the pinned message.
	EventPinned
	// EventAppearance updates theme and background.
	EventAppearance

	// Poll lifecycle
	// EventPollSnapshot carries the current poll, or none.
	EventPollSnapshot
	// EventPollStarted opens a new poll.
	EventPollStarted
	// EventPollUpdated refreshes tallies of the active poll.
	EventPollUpdated
	// EventPollEnded closes the active poll with its final tallies.
	EventPollEnded

	// Signals that do not touch the mirrored state.
	// EventMention tells the local user they were mentioned.
	EventMention
	// EventTyping marks a user as typing.
	EventTyping
	// EventStopTyping clears a user's typing mark.
	EventStopTyping
	// EventKicked removes the local user from a room.
	EventKicked
	// EventActionError reports a rejected action.
	EventActionError
	// EventEditError reports a rejected edit.
	EventEditError
)

var eventKindNames = map[EventKind]string{
	EventUserID:          "user_id",
	EventMessageSnapshot: "message_snapshot",
	EventMessageAppended: "message_appended",
	EventMessageDeleted:  "message_deleted",
	EventMessageEdited:   "message_edited",
	EventReadReceipt:     "read_receipt",
	EventRosterSnapshot:  "roster_snapshot",
	EventPinned:          "pinned",
	EventAppearance:      "appearance",
	EventPollSnapshot:    "poll_snapshot",
	EventPollStarted:     "poll_started",
	EventPollUpdated:     "poll_updated",
	EventPollEnded:       "poll_ended",
	EventMention:         "mention",
	EventTyping:          "typing",
	EventStopTyping:      "stop_typing",
	EventKicked:          "kicked",
	EventActionError:     "action_error",
	EventEditError:       "edit_error",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is one inbound push, decoded from the wire.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind       EventKind
	UserID     string
	Username   string
	Room       string
	MessageID  string
	Text       string
	EditTime   string
	Message    Message
	Messages   []Message
	Roster     []Presence
	Appearance Appearance
	Poll       *Poll
}
