package cli

import (
	"fmt"

	"github.com/alexanderramin/studyclock/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show study time for today, this week, month and year",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := app.apiClient(app.logger())

			stats, err := client.Stats(ctx)
			if err != nil {
				return fmt.Errorf("fetching stats: %w", err)
			}
			total, err := client.Total(ctx)
			if err != nil {
				return fmt.Errorf("fetching total: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.FormatStats(stats))
			fmt.Fprintf(out, "%s %s\n", formatter.Dim("All time:"), formatter.Bold(formatter.FormatSeconds(total)))
			return nil
		},
	}
}

func newSessionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List the most recent study sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := app.apiClient(app.logger()).RecentSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching sessions: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSessions(sessions, app.clock().Now().Local()))
			return nil
		},
	}
}

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay study sessions that could not be delivered",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			disp := app.dispatcher(app.logger())

			stop := func() {}
			if app.interactive() {
				stop = formatter.StartSpinner(out, "Replaying outbox...")
			}
			res, err := disp.Drain(cmd.Context())
			stop()
			if err != nil {
				return fmt.Errorf("replaying outbox: %w", err)
			}

			fmt.Fprintln(out, formatter.FormatDrainResult(res))
			return nil
		},
	}
}
