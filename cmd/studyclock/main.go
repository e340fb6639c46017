package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alexanderramin/studyclock/internal/cli"
	"github.com/alexanderramin/studyclock/internal/config"
	"github.com/alexanderramin/studyclock/internal/db"
	"github.com/alexanderramin/studyclock/internal/logger"
	"github.com/alexanderramin/studyclock/internal/repository"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(logger.Config{
		Writer: os.Stderr,
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})
	slog.SetDefault(log)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	app := &cli.App{
		Config: cfg,
		Logger: log,
		State:  repository.NewSQLiteKeyValueRepo(database),
		Outbox: repository.NewSQLitePendingSessionRepo(database),
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}

	// SIGINT/SIGTERM end the timer the same way closing the window would.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(app).ExecuteContext(ctx)
}
