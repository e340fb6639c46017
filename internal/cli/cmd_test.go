package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/alexanderramin/studyclock/internal/config"
	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/alexanderramin/studyclock/internal/logger"
	"github.com/alexanderramin/studyclock/internal/repository"
	"github.com/alexanderramin/studyclock/internal/server"
	"github.com/alexanderramin/studyclock/internal/service"
	"github.com/alexanderramin/studyclock/internal/stopwatch"
	"github.com/alexanderramin/studyclock/internal/testutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday.
var cliNow = time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// testEnv is an App wired to in-memory local stores and a reference
// backend served over httptest.
type testEnv struct {
	app     *App
	clock   *testutil.FakeClock
	backend repository.StudySessionRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backendDB := testutil.NewTestDB(t)
	backend := repository.NewSQLiteStudySessionRepo(backendDB)
	svc := service.NewStudySessionService(backend, testutil.NewTestUoW(backendDB))
	scfg := config.DefaultConfig(t.TempDir()).Server
	scfg.RateLimitRPS = 1000
	scfg.RateLimitBurst = 1000
	srv := server.NewServer(svc, scfg, logger.Discard(),
		server.WithClock(func() time.Time { return cliNow }),
		server.WithLocation(time.UTC),
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := config.DefaultConfig(t.TempDir())
	cfg.API.Endpoint = ts.URL + "/api"
	cfg.API.MaxRetries = 0
	cfg.API.TimeoutMs = 2000
	cfg.Outbox.ReplayRPS = 0

	local := testutil.NewTestDB(t)
	clock := testutil.NewFakeClock(cliNow)
	return &testEnv{
		app: &App{
			Config: cfg,
			Logger: logger.Discard(),
			State:  repository.NewSQLiteKeyValueRepo(local),
			Outbox: repository.NewSQLitePendingSessionRepo(local),
			Clock:  clock,
		},
		clock:   clock,
		backend: backend,
	}
}

// withBackendDown points the client at an address nothing listens on.
func (e *testEnv) withBackendDown(t *testing.T) {
	t.Helper()
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()
	e.app.Config.API.Endpoint = url + "/api"
}

func (e *testEnv) persist(t *testing.T, values map[string]string) {
	t.Helper()
	for k, v := range values {
		require.NoError(t, e.app.State.Set(context.Background(), k, v))
	}
}

func (e *testEnv) shadowKeys(t *testing.T) []string {
	t.Helper()
	var present []string
	for _, k := range []string{stopwatch.KeyRunning, stopwatch.KeyStartMs, stopwatch.KeyElapsed} {
		_, ok, err := e.app.State.Get(context.Background(), k)
		require.NoError(t, err)
		if ok {
			present = append(present, k)
		}
	}
	return present
}

func (e *testEnv) backendTotal(t *testing.T) int64 {
	t.Helper()
	total, err := e.backend.Total(context.Background())
	require.NoError(t, err)
	return total
}

func (e *testEnv) pending(t *testing.T) int {
	t.Helper()
	n, err := e.app.Outbox.Count(context.Background())
	require.NoError(t, err)
	return n
}

func msString(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// executeCmd runs the root command with args and returns its output with
// ANSI codes removed.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	return executeCmdContext(context.Background(), app, args...)
}

func executeCmdContext(ctx context.Context, app *App, args ...string) (string, error) {
	root := NewRootCmd(app)
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stripANSI(buf.String()), err
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	root := NewRootCmd(&App{})

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"timer", "status", "recover", "reset", "stats", "sessions", "sync", "serve"} {
		assert.Contains(t, names, want)
	}
}

// ── status ──────────────────────────────────────────────────────────────────

func TestStatus_PausedShadow(t *testing.T) {
	env := newTestEnv(t)
	env.persist(t, map[string]string{stopwatch.KeyRunning: "false", stopwatch.KeyElapsed: "40"})

	out, err := executeCmd(t, env.app, "status", "--offline")
	require.NoError(t, err)

	assert.Contains(t, out, "00:00:40")
	assert.Contains(t, out, "PAUSED")
	assert.Contains(t, out, "Outbox: empty")
	assert.NotContains(t, out, "Backend")
	assert.Len(t, env.shadowKeys(t), 2, "status must not mutate the shadow")
}

func TestStatus_RunningShadowCountsToNow(t *testing.T) {
	env := newTestEnv(t)
	env.persist(t, map[string]string{
		stopwatch.KeyRunning: "true",
		stopwatch.KeyStartMs: msString(cliNow.Add(-95 * time.Second)),
		stopwatch.KeyElapsed: "90",
	})

	out, err := executeCmd(t, env.app, "status")
	require.NoError(t, err)

	assert.Contains(t, out, "00:01:35")
	assert.Contains(t, out, "RUNNING")
	assert.Contains(t, out, "Backend reachable")
}

func TestStatus_ShowsPendingOutbox(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.app.Outbox.Enqueue(context.Background(),
		domain.NewStudySession("queued-1", cliNow, 60), "unreachable"))

	out, err := executeCmd(t, env.app, "status", "--offline")
	require.NoError(t, err)

	assert.Contains(t, out, "IDLE")
	assert.Contains(t, out, "Outbox: 1 pending")
}

func TestStatus_BackendUnreachable(t *testing.T) {
	env := newTestEnv(t)
	env.withBackendDown(t)

	out, err := executeCmd(t, env.app, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Backend unreachable")
}

// ── recover ─────────────────────────────────────────────────────────────────

func TestRecover_SubmitsInterruptedRun(t *testing.T) {
	env := newTestEnv(t)
	env.persist(t, map[string]string{
		stopwatch.KeyRunning: "true",
		stopwatch.KeyStartMs: msString(cliNow.Add(-125 * time.Second)),
		stopwatch.KeyElapsed: "120",
	})

	out, err := executeCmd(t, env.app, "recover")
	require.NoError(t, err)

	assert.Contains(t, out, "Recovered interrupted session: 2m")
	assert.Equal(t, int64(125), env.backendTotal(t))
	assert.Empty(t, env.shadowKeys(t))
	assert.Zero(t, env.pending(t))
}

func TestRecover_NothingToRecover(t *testing.T) {
	env := newTestEnv(t)

	out, err := executeCmd(t, env.app, "recover")
	require.NoError(t, err)

	assert.Contains(t, out, "Nothing to recover.")
	assert.Zero(t, env.backendTotal(t))
}

func TestRecover_BackendDownQueuesRecord(t *testing.T) {
	env := newTestEnv(t)
	env.withBackendDown(t)
	env.persist(t, map[string]string{
		stopwatch.KeyRunning: "true",
		stopwatch.KeyStartMs: msString(cliNow.Add(-300 * time.Second)),
	})

	out, err := executeCmd(t, env.app, "recover")
	require.NoError(t, err)

	assert.Contains(t, out, "Recovered interrupted session: 5m")
	assert.Empty(t, env.shadowKeys(t), "shadow is cleared whatever the submission outcome")
	assert.Equal(t, 1, env.pending(t))
}

// ── reset ───────────────────────────────────────────────────────────────────

func TestReset_RequiresYesWhenNotInteractive(t *testing.T) {
	env := newTestEnv(t)
	env.persist(t, map[string]string{stopwatch.KeyRunning: "false", stopwatch.KeyElapsed: "40"})

	_, err := executeCmd(t, env.app, "reset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Len(t, env.shadowKeys(t), 2)
}

func TestReset_RunningShadowIsRecoveredFirst(t *testing.T) {
	env := newTestEnv(t)
	env.persist(t, map[string]string{
		stopwatch.KeyRunning: "true",
		stopwatch.KeyStartMs: msString(cliNow.Add(-time.Minute)),
		stopwatch.KeyElapsed: "55",
	})

	out, err := executeCmd(t, env.app, "reset", "--yes")
	require.NoError(t, err)

	assert.Contains(t, out, "Recovered interrupted session: 1m")
	assert.Contains(t, out, "Timer reset.")
	assert.Empty(t, env.shadowKeys(t))
	assert.Equal(t, int64(60), env.backendTotal(t), "the interrupted interval is submitted, not discarded")
	assert.Zero(t, env.pending(t))
}

func TestReset_PausedShadowIsCleared(t *testing.T) {
	env := newTestEnv(t)
	env.persist(t, map[string]string{stopwatch.KeyRunning: "false", stopwatch.KeyElapsed: "40"})

	out, err := executeCmd(t, env.app, "reset", "--yes")
	require.NoError(t, err)

	assert.NotContains(t, out, "Recovered")
	assert.Contains(t, out, "Timer reset.")
	assert.Empty(t, env.shadowKeys(t))
	assert.Zero(t, env.backendTotal(t), "paused time was submitted when it was stopped")
}

func TestReset_NothingToReset(t *testing.T) {
	env := newTestEnv(t)

	out, err := executeCmd(t, env.app, "reset", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to reset.")
}

// ── stats / sessions ────────────────────────────────────────────────────────

func seedBackend(t *testing.T, env *testEnv) []*domain.StudySession {
	t.Helper()
	ctx := context.Background()
	today := testutil.NewTestSession(3600, testutil.WithStartTime(cliNow.Add(-2*time.Hour)))
	yesterday := testutil.NewTestSession(1800, testutil.WithStartTime(time.Date(2025, 6, 17, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, env.backend.Create(ctx, today, ""))
	require.NoError(t, env.backend.Create(ctx, yesterday, ""))
	return []*domain.StudySession{today, yesterday}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	seedBackend(t, env)

	out, err := executeCmd(t, env.app, "stats")
	require.NoError(t, err)

	assert.Contains(t, out, "STUDY TIME")
	assert.Contains(t, out, "Today")
	assert.Contains(t, out, "1h 0min 0s")
	assert.Contains(t, out, "1h 30min 0s")
	assert.Contains(t, out, "LAST 7 DAYS")
	assert.Contains(t, out, "18/06")
	assert.Contains(t, out, "12/06")
	assert.Contains(t, out, "All time: 1h 30m")
}

func TestStats_BackendDown(t *testing.T) {
	env := newTestEnv(t)
	env.withBackendDown(t)

	_, err := executeCmd(t, env.app, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching stats")
}

func TestSessions(t *testing.T) {
	env := newTestEnv(t)
	seeded := seedBackend(t, env)

	out, err := executeCmd(t, env.app, "sessions")
	require.NoError(t, err)

	assert.Contains(t, out, "RECENT SESSIONS")
	for _, s := range seeded {
		assert.Contains(t, out, s.ID[:8])
	}
	assert.Contains(t, out, "Shown: 1h 30m")
}

func TestSessions_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, err := executeCmd(t, env.app, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "No study sessions yet.")
}

// ── sync ────────────────────────────────────────────────────────────────────

func TestSync_DeliversQueuedRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.app.Outbox.Enqueue(ctx, domain.NewStudySession("q-1", cliNow.Add(-time.Hour), 600), "timeout"))
	require.NoError(t, env.app.Outbox.Enqueue(ctx, domain.NewStudySession("q-2", cliNow, 300), "timeout"))

	out, err := executeCmd(t, env.app, "sync")
	require.NoError(t, err)

	assert.Contains(t, out, "2 delivered")
	assert.Equal(t, int64(900), env.backendTotal(t))
	assert.Zero(t, env.pending(t))
}

func TestSync_ReplayIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := domain.NewStudySession("q-dup", cliNow, 300)
	require.NoError(t, env.app.Outbox.Enqueue(ctx, rec, ""))

	_, err := executeCmd(t, env.app, "sync")
	require.NoError(t, err)
	require.NoError(t, env.app.Outbox.Enqueue(ctx, rec, ""))
	out, err := executeCmd(t, env.app, "sync")
	require.NoError(t, err)

	assert.Contains(t, out, "1 delivered")
	assert.Equal(t, int64(300), env.backendTotal(t))
}

func TestSync_EmptyOutbox(t *testing.T) {
	env := newTestEnv(t)

	out, err := executeCmd(t, env.app, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Outbox is empty.")
}

func TestSync_BackendDownKeepsRecords(t *testing.T) {
	env := newTestEnv(t)
	env.withBackendDown(t)
	require.NoError(t, env.app.Outbox.Enqueue(context.Background(), domain.NewStudySession("q-1", cliNow, 60), ""))

	out, err := executeCmd(t, env.app, "sync")
	require.NoError(t, err)

	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "(1 pending)")
	assert.Equal(t, 1, env.pending(t))
}

// ── timer ───────────────────────────────────────────────────────────────────

// runHeadlessTimer starts `timer --headless` and returns a stop function
// that cancels it and returns its output.
func runHeadlessTimer(t *testing.T, env *testEnv) func() string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var out string
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		out, err = executeCmdContext(ctx, env.app, "timer", "--headless", "--tick", "5ms", "--autoflush", "1h")
	}()

	return func() string {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("timer command did not exit")
		}
		require.NoError(t, err)
		return out
	}
}

func (e *testEnv) waitForValue(t *testing.T, key, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		v, ok, err := e.app.State.Get(context.Background(), key)
		return err == nil && ok && v == want
	}, 5*time.Second, 5*time.Millisecond)
}

func TestTimer_HeadlessRunSubmitsRemainderOnExit(t *testing.T) {
	env := newTestEnv(t)
	stop := runHeadlessTimer(t, env)

	env.waitForValue(t, stopwatch.KeyRunning, "true")
	env.waitForValue(t, stopwatch.KeyStartMs, msString(cliNow))

	env.clock.Advance(95 * time.Second)
	env.waitForValue(t, stopwatch.KeyElapsed, "95")

	out := stop()

	assert.Contains(t, out, "Nothing to recover.")
	assert.Contains(t, out, "RUNNING")
	assert.Contains(t, out, "Stopped at 00:01:35")
	assert.Equal(t, int64(95), env.backendTotal(t))
	assert.Empty(t, env.shadowKeys(t))
	assert.Zero(t, env.pending(t))
}

func TestTimer_HeadlessRecoversBeforeStarting(t *testing.T) {
	env := newTestEnv(t)
	env.persist(t, map[string]string{
		stopwatch.KeyRunning: "true",
		stopwatch.KeyStartMs: msString(cliNow.Add(-125 * time.Second)),
	})

	stop := runHeadlessTimer(t, env)
	env.waitForValue(t, stopwatch.KeyStartMs, msString(cliNow))
	out := stop()

	assert.Contains(t, out, "Recovered interrupted session: 2m")
	assert.Equal(t, int64(125), env.backendTotal(t))
	assert.Empty(t, env.shadowKeys(t))
}

func TestTimer_HeadlessBackendDownQueuesRemainder(t *testing.T) {
	env := newTestEnv(t)
	env.withBackendDown(t)
	env.app.Config.API.BeaconTimeout = 500 * time.Millisecond

	stop := runHeadlessTimer(t, env)
	env.waitForValue(t, stopwatch.KeyRunning, "true")
	env.clock.Advance(45 * time.Second)
	env.waitForValue(t, stopwatch.KeyElapsed, "45")
	out := stop()

	assert.Contains(t, out, "Stopped at 00:00:45")
	assert.Equal(t, 1, env.pending(t))

	list, err := env.app.Outbox.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(45), list[0].Session.DurationSeconds)
}

// withHungBackend points the client at a backend that accepts connections
// and never answers.
func (e *testEnv) withHungBackend(t *testing.T) {
	t.Helper()
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })
	e.app.Config.API.Endpoint = ts.URL + "/api"
}

func TestTimer_RecoveredRunQueuedBeforeExitWhenBackendHangs(t *testing.T) {
	env := newTestEnv(t)
	env.withHungBackend(t)
	env.app.Config.API.TimeoutMs = 200
	env.app.Config.API.MaxRetries = 2
	env.app.Config.API.BeaconTimeout = 100 * time.Millisecond
	env.persist(t, map[string]string{
		stopwatch.KeyRunning: "true",
		stopwatch.KeyStartMs: msString(cliNow.Add(-125 * time.Second)),
	})

	stop := runHeadlessTimer(t, env)
	env.waitForValue(t, stopwatch.KeyStartMs, msString(cliNow))
	out := stop()

	assert.Contains(t, out, "Recovered interrupted session: 2m")
	assert.Empty(t, env.shadowKeys(t))

	list, err := env.app.Outbox.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1, "the recovered run must be durable when the command returns")
	assert.Equal(t, int64(125), list[0].Session.DurationSeconds)
	assert.Zero(t, env.backendTotal(t))
}

func TestTimer_RejectsNonPositiveIntervals(t *testing.T) {
	env := newTestEnv(t)

	_, err := executeCmd(t, env.app, "timer", "--headless", "--tick", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
	assert.Empty(t, env.shadowKeys(t))
}

// ── serve ───────────────────────────────────────────────────────────────────

func TestServe_RunsUntilCancelled(t *testing.T) {
	app := &App{Config: config.DefaultConfig(t.TempDir()), Logger: logger.Discard()}
	dbPath := filepath.Join(t.TempDir(), "nested", "server.db")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := executeCmdContext(ctx, app, "serve", "--addr", "127.0.0.1:0", "--db", dbPath)
	require.NoError(t, err)

	_, statErr := os.Stat(dbPath)
	assert.NoError(t, statErr)
}

func TestServe_BadAddress(t *testing.T) {
	app := &App{Config: config.DefaultConfig(t.TempDir()), Logger: logger.Discard()}

	_, err := executeCmd(t, app, "serve", "--addr", "256.0.0.1:bad", "--db", filepath.Join(t.TempDir(), "s.db"))
	require.Error(t, err)
}

func TestServeFlags_OverrideConfig(t *testing.T) {
	cfg := config.DefaultConfig(t.TempDir()).Server
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addServerFlags(fs, &cfg)

	require.NoError(t, fs.Parse([]string{
		"--addr", "127.0.0.1:9999",
		"--cors-origin", "http://a.test,http://b.test",
		"--rate-limit", "2.5",
		"--shutdown-timeout", "3s",
	}))

	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 20, cfg.RateLimitBurst)
}
