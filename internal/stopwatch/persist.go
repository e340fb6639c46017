package stopwatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Persisted keys. Values are string-encoded scalars.
const (
	KeyRunning = "timer.running"
	KeyStartMs = "timer.start_ms"
	KeyElapsed = "timer.elapsed_s"
)

var allKeys = []string{KeyRunning, KeyStartMs, KeyElapsed}

// Shadow is the decoded durable copy of the timer state. Absent or
// malformed values decode to their zero value with the matching Has flag
// unset.
type Shadow struct {
	Running    bool
	StartedAt  time.Time
	HasStart   bool
	Elapsed    int64
	HasElapsed bool
}

// Interrupted reports whether the previous process was timing when it
// exited without stopping.
func (s Shadow) Interrupted() bool {
	return s.Running && s.HasStart
}

// ReadShadow loads the persisted timer keys. Store errors are returned
// together with whatever could be decoded.
func ReadShadow(ctx context.Context, store StateStore) (Shadow, error) {
	var sh Shadow
	var errs []error

	if v, ok, err := store.Get(ctx, KeyRunning); err != nil {
		errs = append(errs, err)
	} else if ok {
		if b, perr := strconv.ParseBool(v); perr == nil {
			sh.Running = b
		}
	}

	if v, ok, err := store.Get(ctx, KeyStartMs); err != nil {
		errs = append(errs, err)
	} else if ok {
		if ms, perr := strconv.ParseInt(v, 10, 64); perr == nil && ms > 0 {
			sh.StartedAt = time.UnixMilli(ms).UTC()
			sh.HasStart = true
		}
	}

	if v, ok, err := store.Get(ctx, KeyElapsed); err != nil {
		errs = append(errs, err)
	} else if ok {
		if n, perr := strconv.ParseInt(v, 10, 64); perr == nil && n >= 0 {
			sh.Elapsed = n
			sh.HasElapsed = true
		}
	}

	return sh, errors.Join(errs...)
}

// ClearShadow removes every persisted timer key.
func ClearShadow(ctx context.Context, store StateStore) error {
	if err := store.Delete(ctx, allKeys...); err != nil {
		return fmt.Errorf("clearing timer state: %w", err)
	}
	return nil
}

func writeRunning(ctx context.Context, store StateStore, startedAt time.Time) error {
	if err := store.Set(ctx, KeyRunning, "true"); err != nil {
		return err
	}
	return store.Set(ctx, KeyStartMs, strconv.FormatInt(startedAt.UnixMilli(), 10))
}

func writeStopped(ctx context.Context, store StateStore, elapsed int64) error {
	if err := store.Set(ctx, KeyRunning, "false"); err != nil {
		return err
	}
	if err := store.Delete(ctx, KeyStartMs); err != nil {
		return err
	}
	return writeElapsed(ctx, store, elapsed)
}

func writeElapsed(ctx context.Context, store StateStore, elapsed int64) error {
	return store.Set(ctx, KeyElapsed, strconv.FormatInt(elapsed, 10))
}
