package util

import "github.com/google/uuid"

// NewID returns a fresh UUIDv4 string.
func NewID() string {
	return uuid.NewString()
}
