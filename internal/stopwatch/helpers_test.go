package stopwatch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/alexanderramin/studyclock/internal/logger"
	"github.com/alexanderramin/studyclock/internal/repository"
	"github.com/alexanderramin/studyclock/internal/testutil"
)

var baseTime = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

// recordingSink captures every record handed to it.
type recordingSink struct {
	mu        sync.Mutex
	sent      []domain.StudySession
	beaconed  []domain.StudySession
	beaconErr error
}

func (s *recordingSink) Send(rec domain.StudySession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, rec)
}

func (s *recordingSink) Beacon(rec domain.StudySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beaconed = append(s.beaconed, rec)
	return s.beaconErr
}

func (s *recordingSink) Sent() []domain.StudySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StudySession(nil), s.sent...)
}

func (s *recordingSink) Beaconed() []domain.StudySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StudySession(nil), s.beaconed...)
}

// brokenStore fails every operation.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) Get(context.Context, string) (string, bool, error) { return "", false, errStoreDown }
func (brokenStore) Set(context.Context, string, string) error         { return errStoreDown }
func (brokenStore) Delete(context.Context, ...string) error           { return errStoreDown }

type fixture struct {
	timer *Timer
	clock *testutil.FakeClock
	sink  *recordingSink
	store StateStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewSQLiteKeyValueRepo(testutil.NewTestDB(t))
	return newFixtureWithStore(t, store)
}

func newFixtureWithStore(t *testing.T, store StateStore) *fixture {
	t.Helper()
	f := &fixture{
		clock: testutil.NewFakeClock(baseTime),
		sink:  &recordingSink{},
		store: store,
	}
	f.timer = NewTimer(store, f.sink,
		WithClock(f.clock),
		WithLogger(logger.Discard()),
	)
	return f
}

// persist writes raw shadow values, skipping empty ones.
func (f *fixture) persist(t *testing.T, running, startMs, elapsed string) {
	t.Helper()
	ctx := context.Background()
	for k, v := range map[string]string{KeyRunning: running, KeyStartMs: startMs, KeyElapsed: elapsed} {
		if v == "" {
			continue
		}
		require.NoError(t, f.store.Set(ctx, k, v))
	}
}

func (f *fixture) value(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := f.store.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

func msString(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
