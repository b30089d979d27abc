package room

import "time"

// MessageType distinguishes user chat lines from room notices.
type MessageType string

const (
	MessageChat   MessageType = "chat"
	MessageSystem MessageType = "system"
)

// User identifies the author of a message.
type User struct {
	ID       string
	Username string
}

// Message is the local mirror of a room message.
// An empty ID means the server has not assigned one yet.
type Message struct {
	ID        string
	User      User
	Text      string
	Type      MessageType
	CreatedAt time.Time
	Time      string
	ReadBy    map[string]struct{}
	Edited    bool
	EditTime  string
}

// HasID reports whether the server assigned an identifier.
func (m *Message) HasID() bool {
	return m.ID != ""
}

// IsSystem reports whether the message is a room notice.
func (m *Message) IsSystem() bool {
	return m.Type == MessageSystem
}

// ReadByUser reports whether userID has a receipt on the message.
func (m *Message) ReadByUser(userID string) bool {
	if userID == "" {
		return false
	}
	_, ok := m.ReadBy[userID]
	return ok
}

// Readers returns receipt holders in no particular order.
func (m *Message) Readers() []string {
	out := make([]string, 0, len(m.ReadBy))
	for id := range m.ReadBy {
		out = append(out, id)
	}
	return out
}

// Clone returns a deep copy safe to hand to other goroutines.
func (m Message) Clone() Message {
	if m.ReadBy != nil {
		readBy := make(map[string]struct{}, len(m.ReadBy))
		for id := range m.ReadBy {
			readBy[id] = struct{}{}
		}
		m.ReadBy = readBy
	}
	return m
}

func (m *Message) addReader(userID string) bool {
	if userID == "" || m.ReadByUser(userID) {
		return false
	}
	if m.ReadBy == nil {
		m.ReadBy = make(map[string]struct{})
	}
	m.ReadBy[userID] = struct{}{}
	return true
}

// NewReadBy builds a receipt set from a list of user ids.
func NewReadBy(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
