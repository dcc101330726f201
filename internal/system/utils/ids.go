package utils

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a random identifier for correlation ids and stored documents
func NewID() string {
	return uuid.New().String()
}

// IsGeneratedID reports whether id was produced by NewID
func IsGeneratedID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// GetCurrentTimeMillis returns current time in milliseconds since epoch.
func GetCurrentTimeMillis() int64 {
	return time.Now().UnixMilli()
}
