package util

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID generates a new ULID string for predictions and batches.
func NewID() string {
	return NewIDAt(time.Now())
}

// NewIDAt generates a ULID with the given timestamp, so ids sort by event time.
func NewIDAt(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
