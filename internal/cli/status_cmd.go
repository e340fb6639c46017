package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/studyclock/internal/cli/formatter"
	"github.com/alexanderramin/studyclock/internal/delivery"
	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/alexanderramin/studyclock/internal/stopwatch"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved timer state and outbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := app.logger()

			sh, err := stopwatch.ReadShadow(ctx, app.State)
			if err != nil {
				return fmt.Errorf("reading timer state: %w", err)
			}

			pending, err := app.dispatcher(log).Pending(ctx)
			if err != nil {
				log.Warn("counting outbox", "error", err)
				pending = -1
			}

			now := app.clock().Now()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, formatter.FormatTimerStatus(shadowState(sh, now), pending, now))

			if !offline {
				if app.apiClient(log).Available(ctx) {
					fmt.Fprintln(out, formatter.StyleGreen.Render("Backend reachable")+formatter.Dim(" at "+app.Config.API.Endpoint))
				} else {
					fmt.Fprintln(out, formatter.StyleRed.Render("Backend unreachable")+formatter.Dim(" at "+app.Config.API.Endpoint))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "skip the backend reachability check")

	return cmd
}

// shadowState converts the persisted keys into a displayable state. A
// running shadow shows time counted up to now.
func shadowState(sh stopwatch.Shadow, now time.Time) domain.TimerState {
	state := domain.TimerState{ElapsedSeconds: sh.Elapsed, Running: sh.Running}
	if sh.Interrupted() {
		started := sh.StartedAt
		state.StartedAt = &started
		state.ElapsedSeconds = state.ElapsedAt(now)
	}
	return state
}

func newRecoverCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Submit a run interrupted by a crash without starting the timer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := app.logger()

			disp := app.dispatcher(log)
			res := app.newTimer(disp, log).Load(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatLoadResult(res))

			return app.waitForSends(ctx, disp)
		},
	}
}

// waitForSends gives background submissions the client's full retry
// budget. Anything still in flight afterwards is already in the outbox.
func (a *App) waitForSends(ctx context.Context, disp *delivery.Dispatcher) error {
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx),
		a.Config.API.RetryBudget()+a.Config.API.BeaconTimeout)
	defer cancel()
	if err := disp.Wait(waitCtx); err != nil {
		return fmt.Errorf("waiting for submission: %w", err)
	}
	return nil
}

func newResetCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the saved timer state",
		Long: `Clear the saved timer state.

Time already submitted is kept. A run that was interrupted is recovered
and submitted first, the same way the timer does on start.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			sh, err := stopwatch.ReadShadow(ctx, app.State)
			if err != nil {
				return fmt.Errorf("reading timer state: %w", err)
			}
			state := shadowState(sh, app.clock().Now())
			if state.Phase() == domain.PhaseIdle {
				fmt.Fprintln(out, formatter.Dim("Nothing to reset."))
				return nil
			}

			if !yes {
				if !app.interactive() {
					return errors.New("refusing to reset without --yes when not on a terminal")
				}
				confirmed := false
				desc := fmt.Sprintf("Saved state: %s, %s.", state.Phase(), stopwatch.FormatClock(state.ElapsedSeconds))
				err := confirmForm("Reset the timer?", desc, "Reset", &confirmed).RunWithContext(ctx)
				if err != nil && !errors.Is(err, huh.ErrUserAborted) {
					return err
				}
				if !confirmed {
					fmt.Fprintln(out, formatter.Dim("Cancelled."))
					return nil
				}
			}

			log := app.logger()
			disp := app.dispatcher(log)
			timer := app.newTimer(disp, log)
			if res := timer.Load(ctx); res.Interrupted {
				fmt.Fprintln(out, formatter.FormatLoadResult(res))
			}
			timer.Reset(ctx)
			if sh, err := stopwatch.ReadShadow(ctx, app.State); err != nil || sh.Running || sh.HasStart || sh.HasElapsed {
				return errors.New("timer state could not be cleared")
			}
			fmt.Fprintln(out, formatter.StyleGreen.Render("Timer reset."))
			return app.waitForSends(ctx, disp)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}
