package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeHello  = "hello"
	InboundTypeJoin   = "join"
	InboundTypeLeave  = "leave"
	InboundTypeMsg    = "message"
	InboundTypeTyping = "typing"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameMessage = "message"
	EventNameHistory = "history"
	EventNameTyping  = "typing"

	// Event names of the browser client. They are used in both directions.
	LegacyTypeJoin   = "chat-join"
	LegacyTypeLeave  = "chat-leave"
	LegacyTypeMsg    = "chat-msg"
	LegacyTypeTyping = "user-typing"
)

// Aliases maps the event names used by the browser client onto the
// canonical inbound types.
var Aliases = map[string]string{
	LegacyTypeJoin:   InboundTypeJoin,
	LegacyTypeLeave:  InboundTypeLeave,
	LegacyTypeMsg:    InboundTypeMsg,
	LegacyTypeTyping: InboundTypeTyping,
	"msg":            InboundTypeMsg,
}

// IsLegacy reports whether t is one of the browser client's event names.
// Their payloads use the browser shapes below.
func IsLegacy(t string) bool {
	switch t {
	case LegacyTypeJoin, LegacyTypeLeave, LegacyTypeMsg, LegacyTypeTyping:
		return true
	}
	return false
}

// Canonical resolves aliases. Unknown types are returned unchanged.
func Canonical(t string) string {
	if c, ok := Aliases[t]; ok {
		return c
	}
	return t
}

// HelloData is sent by the client to introduce itself.
type HelloData struct {
	User  string `json:"user" validate:"omitempty,max=64"`
	Token string `json:"token,omitempty"`
}

// JoinData requests to join or leave a specific room.
type JoinData struct {
	Room string `json:"room" validate:"required,max=128"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	Room           string `json:"room" validate:"required,max=128"`
	Text           string `json:"text" validate:"required"`
	SenderIdentity string `json:"senderIdentity,omitempty" validate:"omitempty,max=64"`
}

// TypingData signals that the sender is typing in a room.
type TypingData struct {
	Room           string `json:"room" validate:"required,max=128"`
	SenderIdentity string `json:"senderIdentity,omitempty" validate:"omitempty,max=64"`
}

// LegacyRoomData is the object form of chat-join and chat-leave. The browser
// client usually sends the bare toy id as a JSON string instead.
type LegacyRoomData struct {
	ToyID string `json:"toyId"`
	Room  string `json:"room"`
}

// LegacyMsgData is a chat-msg payload as the browser client sends it.
type LegacyMsgData struct {
	ToyID          string `json:"toyId"`
	Room           string `json:"room"`
	Txt            string `json:"txt"`
	Text           string `json:"text"`
	From           string `json:"from"`
	Username       string `json:"username"`
	SenderIdentity string `json:"senderIdentity"`
}

// LegacyTypingData is a user-typing payload as the browser client sends it.
type LegacyTypingData struct {
	ToyID          string `json:"toyId"`
	Room           string `json:"room"`
	Username       string `json:"username"`
	SenderIdentity string `json:"senderIdentity"`
}

// LegacyMessage is the chat-msg event sent back to browser clients.
type LegacyMessage struct {
	ID    string `json:"id,omitempty"`
	ToyID string `json:"toyId"`
	From  string `json:"from"`
	Txt   string `json:"txt"`
	TS    int64  `json:"ts"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage is one persisted chat message.
type EventMessage struct {
	ID   string `json:"id,omitempty"`
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// EventHistory carries a room's messages, oldest first.
type EventHistory struct {
	Room     string         `json:"room"`
	Messages []EventMessage `json:"messages"`
}

// EventTyping notifies that a user is typing in a room.
type EventTyping struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
