package model

import (
	"github.com/google/uuid"
)

// NewID generates a time-ordered UUID, so build IDs sort by creation.
// Falls back to a random UUID if the clock source fails.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// ParseID parses a string into a UUID.
// Returns uuid.Nil if parsing fails.
func ParseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// ShortID is the first eight hex digits of id, used in log lines.
func ShortID(id uuid.UUID) string {
	return id.String()[:8]
}
