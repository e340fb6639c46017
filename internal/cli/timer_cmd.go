package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alexanderramin/studyclock/internal/cli/formatter"
	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/alexanderramin/studyclock/internal/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type timerOptions struct {
	tick      time.Duration
	autoFlush time.Duration
	headless  bool
	noStart   bool
}

func newTimerCmd(app *App) *cobra.Command {
	var opts timerOptions

	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Run the study stopwatch",
		Long: `Run the study stopwatch.

Any run interrupted by a crash or kill is recovered and submitted first.
On a terminal the stopwatch is full-screen; otherwise it starts at once
and runs until interrupted, submitting the remainder on exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimer(cmd, app, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.tick, "tick", app.Config.Timer.TickInterval, "display refresh interval")
	cmd.Flags().DurationVar(&opts.autoFlush, "autoflush", app.Config.Timer.AutoFlushInterval, "how often unsaved time is submitted while running")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "run without the full-screen view")
	cmd.Flags().BoolVar(&opts.noStart, "no-start", false, "headless only: wait instead of starting immediately")

	return cmd
}

func runTimer(cmd *cobra.Command, app *App, opts timerOptions) error {
	if opts.tick <= 0 || opts.autoFlush <= 0 {
		return fmt.Errorf("--tick and --autoflush must be positive")
	}
	ctx := cmd.Context()
	fullScreen := app.interactive() && !opts.headless

	log := app.logger()
	if fullScreen {
		fileLog, closer, err := app.fileLogger()
		if err != nil {
			return err
		}
		defer closer.Close()
		log = fileLog
	}

	disp := app.dispatcher(log)
	timer := app.newTimer(disp, log)
	loaded := timer.Load(ctx)

	loop := stopwatch.NewLoop(timer,
		stopwatch.WithTickInterval(opts.tick),
		stopwatch.WithAutoFlushInterval(opts.autoFlush),
	)
	loopCtx, stopLoop := context.WithCancel(ctx)
	defer stopLoop()
	go loop.Run(loopCtx)

	var err error
	if fullScreen {
		err = runTimerView(loopCtx, cmd, loop, loaded)
	} else {
		err = runHeadless(loopCtx, cmd.OutOrStdout(), loop, loaded, !opts.noStart)
	}

	// Cancelling the loop abandons the timer, which hands any remainder to
	// the beacon before Done closes.
	stopLoop()
	<-loop.Done()

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx),
		app.Config.API.Timeout()+app.Config.API.BeaconTimeout)
	defer cancel()
	if werr := disp.Wait(waitCtx); werr != nil {
		log.Warn("study sessions still in flight at exit", "error", werr)
	}
	return err
}

func runTimerView(ctx context.Context, cmd *cobra.Command, loop *stopwatch.Loop, loaded stopwatch.LoadResult) error {
	p := tea.NewProgram(newTimerModel(ctx, loop, loaded),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running timer view: %w", err)
	}
	return nil
}

// runHeadless prints a line when the timer starts and at every whole
// minute, until ctx is cancelled.
func runHeadless(ctx context.Context, w io.Writer, loop *stopwatch.Loop, loaded stopwatch.LoadResult, autoStart bool) error {
	fmt.Fprintln(w, formatter.FormatLoadResult(loaded))

	var last domain.TimerState
	if autoStart {
		state, err := loop.Start(ctx)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("starting timer: %w", err)
		}
		if err == nil {
			last = state
			printState(w, state)
		}
	}

	lastMinute := int64(-1)
	for {
		select {
		case <-ctx.Done():
			// The loop publishes once more after abandoning the timer.
			<-loop.Done()
			select {
			case state := <-loop.Updates():
				last = state
			default:
			}
			fmt.Fprintf(w, "%s %s\n", formatter.Dim("Stopped at"), formatter.Bold(stopwatch.FormatClock(last.ElapsedSeconds)))
			return nil
		case state := <-loop.Updates():
			last = state
			if !state.Running {
				continue
			}
			if minute := state.ElapsedSeconds / 60; minute > lastMinute {
				if lastMinute >= 0 {
					printState(w, state)
				}
				lastMinute = minute
			}
		}
	}
}

func printState(w io.Writer, state domain.TimerState) {
	fmt.Fprintf(w, "%s  %s\n", formatter.ClockFace(state), formatter.PhaseIndicator(state.Phase()))
}
