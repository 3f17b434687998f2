// Package uuid provides UUID v7 generation.
// UUID v7 is sortable by timestamp (better for database indexes than v4).
package uuid

import (
	guuid "github.com/google/uuid"
)

// UUID represents a UUID v7 identifier.
type UUID = guuid.UUID

// NewV7 generates a new UUID v7. It falls back to a random v4 only when the
// system random source fails, which google/uuid reports as an error.
func NewV7() UUID {
	id, err := guuid.NewV7()
	if err != nil {
		return guuid.New()
	}
	return id
}

// Parse validates s and returns its UUID.
func Parse(s string) (UUID, error) {
	return guuid.Parse(s)
}

// Valid reports whether s is a canonical UUID string.
func Valid(s string) bool {
	_, err := guuid.Parse(s)
	return err == nil && len(s) == 36
}
