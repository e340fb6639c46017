// Package stopwatch implements the study stopwatch: a timer whose running
// state is shadowed in a local key/value store, reconciled on startup, and
// flushed to the backend as finalized study sessions.
package stopwatch

import (
	"context"
	"time"

	"github.com/alexanderramin/studyclock/internal/domain"
)

// Clock supplies wall-clock time. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// StateStore is the durable string key/value store the timer shadows its
// state into.
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Sink receives flushed study sessions.
//
// Send must not block the caller on network I/O. Beacon is used when the
// process is about to exit and must hand the record to something that
// outlives the caller before returning.
type Sink interface {
	Send(rec domain.StudySession)
	Beacon(rec domain.StudySession) error
}
