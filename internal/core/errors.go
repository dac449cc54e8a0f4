package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodePersistenceUnavailable = "persistence_unavailable"
	ErrCodeNotInRoom              = "not_in_room"
	ErrCodeBadRequest             = "bad_request"
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeRateLimited            = "rate_limited"
	ErrCodeInvalidMessage         = "invalid_message"
)

var (
	// ErrPersistenceUnavailable is returned by a HistoryGateway when the parent
	// entity cannot be located or the store cannot be reached.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrInvalidRoomState marks leave/typing requests for a room the session is not in.
	ErrInvalidRoomState = errors.New("invalid room state")
	// ErrTransportDelivery marks an event that could not be handed to a member.
	ErrTransportDelivery = errors.New("transport delivery failure")
	ErrNotInRoom         = errors.New("not in room")
	ErrBadRequest        = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
