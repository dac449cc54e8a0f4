package utils

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewSessionID returns a random identifier for a connection.
func NewSessionID() string {
	return uuid.NewString()
}

// NewMessageID returns a lexicographically sortable message identifier.
// Identifiers generated by one process sort in creation order.
func NewMessageID() string {
	return ulid.Make().String()
}
