package utils

import "github.com/google/uuid"

// NewClipID returns a random (version 4) UUID string used as a clip ID.
func NewClipID() string {
	return uuid.NewString()
}

