package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexanderramin/studyclock/internal/config"
	"github.com/alexanderramin/studyclock/internal/db"
	"github.com/alexanderramin/studyclock/internal/repository"
	"github.com/alexanderramin/studyclock/internal/server"
	"github.com/alexanderramin/studyclock/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newServeCmd(app *App) *cobra.Command {
	cfg := app.Config.Server

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the study-session backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := app.logger()

			if dir := filepath.Dir(cfg.DBPath); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("creating database directory: %w", err)
				}
			}
			database, err := db.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening server database: %w", err)
			}
			defer database.Close()

			sessions := service.NewStudySessionService(
				repository.NewSQLiteStudySessionRepo(database),
				db.NewSQLiteUnitOfWork(database),
				service.NewLogUseCaseObserver(log),
			)
			return server.NewServer(sessions, cfg, log).Run(cmd.Context())
		},
	}

	addServerFlags(cmd.Flags(), &cfg)

	return cmd
}

// addServerFlags binds flags that override the configured server settings.
func addServerFlags(fs *pflag.FlagSet, cfg *config.ServerConfig) {
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path")
	fs.StringSliceVar(&cfg.AllowedOrigins, "cors-origin", cfg.AllowedOrigins, "allowed CORS origins")
	fs.Float64Var(&cfg.RateLimitRPS, "rate-limit", cfg.RateLimitRPS, "requests per second allowed per client")
	fs.IntVar(&cfg.RateLimitBurst, "rate-burst", cfg.RateLimitBurst, "burst allowed per client")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "grace period for in-flight requests")
}
