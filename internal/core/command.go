package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendRoomMessage delivers a chat message to room participants.
	CommandSendRoomMessage CommandKind = iota
	// CommandJoinRoom subscribes the session to a room and requests its history.
	CommandJoinRoom
	// CommandLeaveRoom unsubscribes the session from a room.
	CommandLeaveRoom
	// CommandTyping relays a typing signal to the other members of a room.
	CommandTyping
	// CommandIdentify sets the display identity of the session.
	CommandIdentify
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Room     string
	Message  Message
	Identity string
}
