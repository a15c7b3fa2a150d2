// Package protocol defines the wire format exchanged between a client
// connection and the coordinator. Every unit on the wire is an Envelope: a
// tagged record whose Kind decides which of the optional fields carry meaning.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind tags an Envelope with its purpose.
type Kind string

const (
	// Session lifecycle.
	KindLogin  Kind = "LOGIN"
	KindLogout Kind = "LOGOUT"

	// Room discovery.
	KindGetRooms  Kind = "GET_ROOMS"
	KindRoomsList Kind = "ROOMS_LIST"

	// Room membership.
	KindJoinRoom    Kind = "JOIN_ROOM"
	KindLeaveRoom   Kind = "LEAVE_ROOM"
	KindRoomJoined  Kind = "ROOM_JOINED"
	KindRoomLeft    Kind = "ROOM_LEFT"
	KindRoomDeleted Kind = "ROOM_DELETED"

	// Chat.
	KindChatMessage Kind = "CHAT_MESSAGE"

	// Typing / erasing activity, request side.
	KindTyping      Kind = "TYPING"
	KindStopTyping  Kind = "STOP_TYPING"
	KindErasing     Kind = "ERASING"
	KindStopErasing Kind = "STOP_ERASING"

	// Typing / erasing activity, broadcast side.
	KindUserTyping         Kind = "USER_TYPING"
	KindUserStoppedTyping  Kind = "USER_STOPPED_TYPING"
	KindUserErasing        Kind = "USER_ERASING"
	KindUserStoppedErasing Kind = "USER_STOPPED_ERASING"

	// Membership notices.
	KindUserJoined Kind = "USER_JOINED"
	KindUserLeft   Kind = "USER_LEFT"

	// Moderation.
	KindUserKicked         Kind = "USER_KICKED"
	KindReportMessage      Kind = "REPORT_MESSAGE"
	KindReportRoom         Kind = "REPORT_ROOM"
	KindReportNotification Kind = "REPORT_NOTIFICATION"

	// Errors.
	KindError Kind = "ERROR"
)

var knownKinds = map[Kind]struct{}{
	KindLogin: {}, KindLogout: {},
	KindGetRooms: {}, KindRoomsList: {},
	KindJoinRoom: {}, KindLeaveRoom: {},
	KindRoomJoined: {}, KindRoomLeft: {}, KindRoomDeleted: {},
	KindChatMessage: {},
	KindTyping:      {}, KindStopTyping: {}, KindErasing: {}, KindStopErasing: {},
	KindUserTyping: {}, KindUserStoppedTyping: {}, KindUserErasing: {}, KindUserStoppedErasing: {},
	KindUserJoined: {}, KindUserLeft: {},
	KindUserKicked: {}, KindReportMessage: {}, KindReportRoom: {}, KindReportNotification: {},
	KindError: {},
}

// Valid reports whether k is part of the closed kind set.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// RoomSummary is the read-only view of a room carried on ROOMS_LIST envelopes
// and served to operator tooling.
type RoomSummary struct {
	Name      string   `json:"name"`
	Users     []string `json:"users"`
	UserCount int      `json:"userCount"`
}

// Envelope is the single wire unit. Exactly one Kind; the optional fields are
// meaningful only for the kinds that define them. Envelopes are immutable once
// constructed: build them through the New* constructors and never mutate a sent
// one.
type Envelope struct {
	Kind     Kind          `json:"kind"`
	Username string        `json:"username,omitempty"`
	RoomName string        `json:"roomName,omitempty"`
	Content  string        `json:"content,omitempty"`
	Color    string        `json:"color,omitempty"`
	Payload  []RoomSummary `json:"payload,omitempty"`
}

// Encode serializes the envelope as one JSON document, the unit sent per
// WebSocket message.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a single envelope and checks it is structurally sound. An
// unknown kind or a kind missing its required fields is an error; callers are
// expected to discard such envelopes without further effect.
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if err := e.validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

func (e Envelope) validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown envelope kind %q", e.Kind)
	}
	switch e.Kind {
	case KindLogin:
		if e.Username == "" {
			return fmt.Errorf("%s requires a username", e.Kind)
		}
	case KindJoinRoom, KindReportRoom:
		if e.RoomName == "" {
			return fmt.Errorf("%s requires a room name", e.Kind)
		}
	case KindReportMessage:
		if e.Username == "" {
			return fmt.Errorf("%s requires a target username", e.Kind)
		}
	}
	return nil
}

// NewLogin builds the login request for a display name.
func NewLogin(username string) Envelope {
	return Envelope{Kind: KindLogin, Username: username}
}

// NewLoginAck acknowledges a successful login.
func NewLoginAck() Envelope {
	return Envelope{Kind: KindLogin, Content: "login successful"}
}

// NewLogout builds the logout request.
func NewLogout() Envelope {
	return Envelope{Kind: KindLogout}
}

// NewGetRooms builds the room discovery request.
func NewGetRooms() Envelope {
	return Envelope{Kind: KindGetRooms}
}

// NewRoomsList builds the room discovery response carrying current summaries.
func NewRoomsList(rooms []RoomSummary) Envelope {
	return Envelope{Kind: KindRoomsList, Payload: rooms}
}

// NewJoinRoom builds the membership request for a named room.
func NewJoinRoom(room string) Envelope {
	return Envelope{Kind: KindJoinRoom, RoomName: room}
}

// NewLeaveRoom builds the request to leave the caller's current room.
func NewLeaveRoom() Envelope {
	return Envelope{Kind: KindLeaveRoom}
}

// NewRoomJoined confirms membership in a room to the caller.
func NewRoomJoined(room string) Envelope {
	return Envelope{Kind: KindRoomJoined, RoomName: room}
}

// NewRoomLeft confirms the caller left its room.
func NewRoomLeft() Envelope {
	return Envelope{Kind: KindRoomLeft}
}

// NewRoomDeleted notifies a member that its room was removed by the server.
func NewRoomDeleted(room string) Envelope {
	return Envelope{
		Kind:     KindRoomDeleted,
		RoomName: room,
		Content:  fmt.Sprintf("room %q was removed by the server", room),
	}
}

// NewChatMessage builds the chat fan-out unit. Color is optional styling chosen
// by the sender and forwarded untouched.
func NewChatMessage(room, sender, content, color string) Envelope {
	return Envelope{
		Kind:     KindChatMessage,
		Username: sender,
		RoomName: room,
		Content:  content,
		Color:    color,
	}
}

// NewActivity builds a typing/erasing request of the given kind for a room.
func NewActivity(kind Kind, room string) Envelope {
	return Envelope{Kind: kind, RoomName: room}
}

// NewActivityNotice builds the broadcast counterpart of a typing/erasing
// request; content carries the acting user's name.
func NewActivityNotice(kind Kind, room, actor string) Envelope {
	return Envelope{Kind: kind, RoomName: room, Content: actor}
}

// NewMemberNotice builds a human-readable USER_JOINED / USER_LEFT notice for a
// room's members.
func NewMemberNotice(kind Kind, room, notice string) Envelope {
	return Envelope{Kind: kind, RoomName: room, Content: notice}
}

// NewUserKicked notifies a session it is being force-disconnected.
func NewUserKicked() Envelope {
	return Envelope{Kind: KindUserKicked, Content: "you have been kicked by the server"}
}

// NewReportMessage builds a report against a user's message; username carries
// the report target.
func NewReportMessage(targetUser, content string) Envelope {
	return Envelope{Kind: KindReportMessage, Username: targetUser, Content: content}
}

// NewReportRoom builds a report against a room.
func NewReportRoom(room, reason string) Envelope {
	return Envelope{Kind: KindReportRoom, RoomName: room, Content: reason}
}

// NewReportNotification tells a user it has been reported.
func NewReportNotification(reporter, content string) Envelope {
	return Envelope{
		Kind:    KindReportNotification,
		Content: fmt.Sprintf("you were reported by %s: %s", reporter, content),
	}
}

// NewError builds an error envelope with a human-readable reason.
func NewError(reason string) Envelope {
	return Envelope{Kind: KindError, Content: reason}
}

// ActivityBroadcastKind maps a typing/erasing request kind to the kind fanned
// out to room members. The second return is false for any other kind.
func ActivityBroadcastKind(request Kind) (Kind, bool) {
	switch request {
	case KindTyping:
		return KindUserTyping, true
	case KindStopTyping:
		return KindUserStoppedTyping, true
	case KindErasing:
		return KindUserErasing, true
	case KindStopErasing:
		return KindUserStoppedErasing, true
	default:
		return "", false
	}
}
