package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alexanderramin/studyclock/internal/config"
	"github.com/alexanderramin/studyclock/internal/delivery"
	"github.com/alexanderramin/studyclock/internal/logger"
	"github.com/alexanderramin/studyclock/internal/repository"
	"github.com/alexanderramin/studyclock/internal/stopwatch"
	"github.com/alexanderramin/studyclock/internal/studyapi"
	"github.com/spf13/cobra"
)

// App holds the configuration and local stores shared by CLI commands.
// Network-facing pieces are built per command so the full-screen timer can
// route their logs away from the terminal.
type App struct {
	Config config.Config
	Logger *slog.Logger

	// State is the local key/value store that shadows the timer.
	State repository.KeyValueRepo
	// Outbox holds records that could not be delivered.
	Outbox repository.PendingSessionRepo

	// Clock and NewID are optional; tests pin them.
	Clock stopwatch.Clock
	NewID func() string

	// IsInteractive reports whether stdin is a terminal. Nil means false.
	IsInteractive func() bool
}

// NewRootCmd creates the top-level "studyclock" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "studyclock",
		Short:         "Study stopwatch that never loses a minute",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTimerCmd(app),
		newStatusCmd(app),
		newRecoverCmd(app),
		newResetCmd(app),
		newStatsCmd(app),
		newSessionsCmd(app),
		newSyncCmd(app),
		newServeCmd(app),
	)

	return root
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return logger.Discard()
	}
	return a.Logger
}

func (a *App) clock() stopwatch.Clock {
	if a.Clock == nil {
		return stopwatch.SystemClock{}
	}
	return a.Clock
}

// apiClient builds the backend client, reporting calls to log when
// configured to.
func (a *App) apiClient(log *slog.Logger) studyapi.Client {
	var observer studyapi.Observer = studyapi.NoopObserver{}
	if a.Config.API.LogCalls {
		observer = studyapi.NewLogObserver(log)
	}
	return studyapi.NewClient(a.Config.API, observer)
}

// dispatcher builds the delivery sink over the backend client and outbox.
func (a *App) dispatcher(log *slog.Logger) *delivery.Dispatcher {
	cfg := delivery.DefaultConfig()
	cfg.SendTimeout = max(cfg.SendTimeout, a.Config.API.RetryBudget())
	cfg.BeaconTimeout = a.Config.API.BeaconTimeout
	cfg.BatchSize = a.Config.Outbox.BatchSize
	cfg.MaxAttempts = a.Config.Outbox.MaxAttempts
	cfg.ReplayRPS = a.Config.Outbox.ReplayRPS
	return delivery.NewDispatcher(a.apiClient(log), a.Outbox, cfg, log)
}

// newTimer builds a stopwatch over the local state store.
func (a *App) newTimer(sink stopwatch.Sink, log *slog.Logger) *stopwatch.Timer {
	opts := []stopwatch.Option{
		stopwatch.WithClock(a.clock()),
		stopwatch.WithLogger(log),
		stopwatch.WithAutoFlushMinimum(a.Config.Timer.AutoFlushMinimum),
	}
	if a.NewID != nil {
		opts = append(opts, stopwatch.WithIDGenerator(a.NewID))
	}
	return stopwatch.NewTimer(a.State, sink, opts...)
}

// fileLogger opens the log file used while a full-screen view owns the
// terminal.
func (a *App) fileLogger() (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(a.Config.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(a.Config.DataDir, "studyclock.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	log := logger.New(logger.Config{
		Writer: f,
		Format: logger.FormatJSON,
		Level:  a.Config.Log.Level,
	})
	return log, f, nil
}
