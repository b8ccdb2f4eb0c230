package ingest

import "time"

// Clock abstracts wall-clock reads so the flush policy can be tested with a
// fake clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }
