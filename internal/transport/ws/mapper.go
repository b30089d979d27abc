package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-roomsync/internal/core"
	"github.com/vovakirdan/wirechat-roomsync/internal/proto"
	"github.com/vovakirdan/wirechat-roomsync/internal/room"
)

var commandEvents = map[core.CommandKind]string{
	core.CommandJoinRoom:         proto.EventJoinRoom,
	core.CommandSendMessage:      proto.EventChatMessage,
	core.CommandDeleteMessage:    proto.EventDeleteMessage,
	core.CommandEditMessage:      proto.EventEditMessage,
	core.CommandPinMessage:       proto.EventPinMessage,
	core.CommandKickUser:         proto.EventKickUser,
	core.CommandStartPoll:        proto.EventStartPoll,
	core.CommandVotePoll:         proto.EventVotePoll,
	core.CommandEndPoll:          proto.EventEndPoll,
	core.CommandUpdateAppearance: proto.EventUpdateRoomAppearance,
	core.CommandMarkRead:         proto.EventMarkRead,
	core.CommandTyping:           proto.EventTyping,
	core.CommandStopTyping:       proto.EventStopTyping,
	core.CommandSearchMessages:   proto.EventSearchMessages,
	core.CommandListRooms:        proto.EventGetRooms,
}

// commandToEnvelope encodes cmd. Request commands get the request type; the
// caller assigns the correlation id.
func commandToEnvelope(cmd core.Command) (proto.Envelope, error) {
	name, ok := commandEvents[cmd.Kind]
	if !ok {
		return proto.Envelope{}, fmt.Errorf("unsupported command %s", cmd.Kind)
	}

	var data any
	switch cmd.Kind {
	case core.CommandJoinRoom:
		data = proto.JoinData{Username: cmd.Username, Room: cmd.Room, Token: cmd.Token}
	case core.CommandSendMessage:
		data = proto.ChatData{Room: cmd.Room, Text: cmd.Text}
	case core.CommandDeleteMessage, core.CommandMarkRead:
		data = proto.MessageRef{Room: cmd.Room, MessageID: cmd.MessageID}
	case core.CommandEditMessage:
		data = proto.EditData{Room: cmd.Room, MessageID: cmd.MessageID, Text: cmd.Text}
	case core.CommandPinMessage:
		pin := proto.PinData{Room: cmd.Room}
		if cmd.MessageID != "" {
			id := cmd.MessageID
			pin.MessageID = &id
		}
		data = pin
	case core.CommandKickUser:
		data = proto.KickData{Room: cmd.Room, UserID: cmd.UserID}
	case core.CommandStartPoll:
		if cmd.Poll == nil {
			return proto.Envelope{}, fmt.Errorf("%s without poll", cmd.Kind)
		}
		data = proto.StartPollData{
			Room:            cmd.Room,
			Question:        cmd.Poll.Question,
			Options:         cmd.Poll.Options,
			Multiple:        cmd.Poll.Multiple,
			DurationSeconds: cmd.Poll.DurationSeconds,
		}
	case core.CommandVotePoll:
		data = proto.VoteData{Room: cmd.Room, OptionIndexes: cmd.Votes}
	case core.CommandEndPoll:
		data = proto.RoomData{Room: cmd.Room}
	case core.CommandUpdateAppearance:
		data = proto.AppearanceData{
			Room:            cmd.Room,
			Theme:           cmd.Appearance.Theme,
			BackgroundColor: cmd.Appearance.BackgroundColor,
		}
	case core.CommandTyping, core.CommandStopTyping:
		data = proto.TypingData{Room: cmd.Room, Username: cmd.Username}
	case core.CommandSearchMessages:
		data = proto.SearchData{Room: cmd.Room, Query: cmd.Query}
	case core.CommandListRooms:
		data = nil
	}

	env := proto.Envelope{Type: proto.TypeEvent, Event: name}
	if isRequest(cmd.Kind) {
		env.Type = proto.TypeRequest
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return proto.Envelope{}, fmt.Errorf("marshal %s: %w", name, err)
		}
		env.Data = raw
	}
	return env, nil
}

func isRequest(kind core.CommandKind) bool {
	return kind == core.CommandSearchMessages || kind == core.CommandListRooms
}

// envelopeToEvent decodes an inbound push. ok is false for events the
// session does not know.
func envelopeToEvent(env proto.Envelope) (ev room.Event, ok bool, err error) {
	switch env.Event {
	case proto.EventUserID:
		var id string
		if err := decode(env.Data, &id); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: room.EventUserID, UserID: id}, true, nil
	case proto.EventAllMessages:
		var msgs []proto.Message
		if err := decode(env.Data, &msgs); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: room.EventMessageSnapshot, Messages: messagesFromProto(msgs)}, true, nil
	case proto.EventMessage:
		var msg proto.Message
		if err := decode(env.Data, &msg); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: room.EventMessageAppended, Message: messageFromProto(msg)}, true, nil
	case proto.EventMessageDeleted:
		var ref proto.MessageRef
		if err := decode(env.Data, &ref); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: room.EventMessageDeleted, MessageID: ref.MessageID}, true, nil
	case proto.EventMessageEdited:
		var ed proto.EditedData
		if err := decode(env.Data, &ed); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: room.EventMessageEdited, MessageID: ed.MessageID, Text: ed.Text, EditTime: ed.EditTime}, true, nil
	case proto.EventReadReceipt:
		var rr proto.ReceiptData
		if err := decode(env.Data, &rr); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: room.EventReadReceipt, MessageID: rr.MessageID, UserID: rr.UserID}, true, nil
	case proto.EventOnlineUsers:
		var users []proto.OnlineUser
		if err := decode(env.Data, &users); err != nil {
			return ev, false, err
		}
		roster := make([]room.Presence, 0, len(users))
		for _, u := range users {
			roster = append(roster, room.Presence{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin})
		}
		return room.Event{Kind: room.EventRosterSnapshot, Roster: roster}, true, nil
	case proto.EventPinnedMessage:
		var pin proto.PinnedData
		if err := decode(env.Data, &pin); err != nil {
			return ev, false, err
		}
		ev = room.Event{Kind: room.EventPinned}
		if pin.Message != nil {
			ev.MessageID = pin.Message.ID
			ev.Message = messageFromProto(*pin.Message)
		}
		return ev, true, nil
	case proto.EventRoomAppearance:
		var look proto.AppearanceData
		if err := decode(env.Data, &look); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: room.EventAppearance, Appearance: room.Appearance{
			Theme:           look.Theme,
			BackgroundColor: look.BackgroundColor,
		}}, true, nil
	case proto.EventPollState, proto.EventPollStarted, proto.EventPollUpdated, proto.EventPollEnded:
		var p *proto.Poll
		if err := decode(env.Data, &p); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: pollKinds[env.Event], Poll: pollFromProto(p)}, true, nil
	case proto.EventMention, proto.EventActionError, proto.EventEditError:
		var td proto.TextData
		if err := decode(env.Data, &td); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: textKinds[env.Event], Text: td.Text}, true, nil
	case proto.EventTyping, proto.EventStopTyping:
		var td proto.TypingData
		if err := decode(env.Data, &td); err != nil {
			return ev, false, err
		}
		kind := room.EventTyping
		if env.Event == proto.EventStopTyping {
			kind = room.EventStopTyping
		}
		return room.Event{Kind: kind, Username: td.Username, Room: td.Room}, true, nil
	case proto.EventKicked:
		var kd proto.KickedData
		if err := decode(env.Data, &kd); err != nil {
			return ev, false, err
		}
		return room.Event{Kind: room.EventKicked, Room: kd.Room, Username: kd.By}, true, nil
	}
	return ev, false, nil
}

var pollKinds = map[string]room.EventKind{
	proto.EventPollState:   room.EventPollSnapshot,
	proto.EventPollStarted: room.EventPollStarted,
	proto.EventPollUpdated: room.EventPollUpdated,
	proto.EventPollEnded:   room.EventPollEnded,
}

var textKinds = map[string]room.EventKind{
	proto.EventMention:     room.EventMention,
	proto.EventActionError: room.EventActionError,
	proto.EventEditError:   room.EventEditError,
}

// replyFromAck decodes the data of an ack for a request of kind.
func replyFromAck(kind core.CommandKind, data json.RawMessage) (*core.Reply, error) {
	reply := &core.Reply{}
	switch kind {
	case core.CommandSearchMessages:
		var msgs []proto.Message
		if err := decode(data, &msgs); err != nil {
			return nil, err
		}
		reply.Messages = messagesFromProto(msgs)
	case core.CommandListRooms:
		if err := decode(data, &reply.Rooms); err != nil {
			return nil, err
		}
	}
	return reply, nil
}

// decode leaves out untouched when data is empty or null.
func decode(data json.RawMessage, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, out)
}

func messagesFromProto(msgs []proto.Message) []room.Message {
	out := make([]room.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageFromProto(m))
	}
	return out
}

func messageFromProto(m proto.Message) room.Message {
	msg := room.Message{
		ID:       m.ID,
		User:     room.User{ID: m.User.ID, Username: m.User.Username},
		Text:     m.Text,
		Type:     room.MessageChat,
		Time:     m.Time,
		Edited:   m.Edited,
		EditTime: m.EditTime,
	}
	if m.Type == string(room.MessageSystem) {
		msg.Type = room.MessageSystem
	}
	if m.CreatedAt > 0 {
		msg.CreatedAt = time.UnixMilli(m.CreatedAt)
	}
	if len(m.ReadBy) > 0 {
		msg.ReadBy = room.NewReadBy(m.ReadBy...)
	}
	return msg
}

func pollFromProto(p *proto.Poll) *room.Poll {
	if p == nil {
		return nil
	}
	out := &room.Poll{
		ID:       p.ID,
		Question: p.Question,
		Multiple: p.Multiple,
		Options:  make([]room.PollOption, 0, len(p.Options)),
	}
	for _, o := range p.Options {
		out.Options = append(out.Options, room.PollOption{Text: o.Text, Count: o.Count})
	}
	if p.StartedAt > 0 {
		out.StartedAt = time.UnixMilli(p.StartedAt)
	}
	if p.EndsAt != nil {
		endsAt := time.UnixMilli(*p.EndsAt)
		out.EndsAt = &endsAt
	}
	if len(p.VotedUserIDs) > 0 {
		out.VotedUserIDs = make(map[string]struct{}, len(p.VotedUserIDs))
		for _, id := range p.VotedUserIDs {
			out.VotedUserIDs[id] = struct{}{}
		}
	}
	return out
}
