package stopwatch

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/studyclock/internal/domain"
)

// ErrLoopClosed is returned by Loop commands after Run has returned.
var ErrLoopClosed = errors.New("timer loop is not running")

const (
	DefaultTickInterval      = time.Second
	DefaultAutoFlushInterval = time.Minute
)

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdReset
	cmdSnapshot
)

type command struct {
	kind  commandKind
	reply chan domain.TimerState
}

// Loop owns a Timer on a single goroutine. User commands and both periodic
// tickers are handled by one select, so they never interleave. The tickers
// are armed by start and disarmed by stop or reset before the command is
// answered.
type Loop struct {
	timer      *Timer
	tickEvery  time.Duration
	flushEvery time.Duration

	cmds    chan command
	updates chan domain.TimerState
	done    chan struct{}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithTickInterval sets how often a running timer recomputes elapsed time.
func WithTickInterval(d time.Duration) LoopOption {
	return func(l *Loop) { l.tickEvery = d }
}

// WithAutoFlushInterval sets how often a running timer tries to flush.
func WithAutoFlushInterval(d time.Duration) LoopOption {
	return func(l *Loop) { l.flushEvery = d }
}

// NewLoop wraps a timer that has already been loaded.
func NewLoop(timer *Timer, opts ...LoopOption) *Loop {
	l := &Loop{
		timer:      timer,
		tickEvery:  DefaultTickInterval,
		flushEvery: DefaultAutoFlushInterval,
		cmds:       make(chan command),
		updates:    make(chan domain.TimerState, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Updates delivers the latest state after every change. Only the newest
// value is kept when the reader falls behind.
func (l *Loop) Updates() <-chan domain.TimerState {
	return l.updates
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run processes commands and ticks until ctx is cancelled. Cancellation is
// treated as process exit: the timer is abandoned before Run returns.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	var tick, flush *time.Ticker
	var tickC, flushC <-chan time.Time

	arm := func() {
		if tick != nil {
			return
		}
		tick = time.NewTicker(l.tickEvery)
		flush = time.NewTicker(l.flushEvery)
		tickC, flushC = tick.C, flush.C
	}
	disarm := func() {
		if tick == nil {
			return
		}
		tick.Stop()
		flush.Stop()
		tick, flush = nil, nil
		tickC, flushC = nil, nil
	}
	defer disarm()

	if l.timer.Snapshot().Running {
		arm()
	}
	l.publish()

	for {
		select {
		case <-ctx.Done():
			disarm()
			l.timer.Abandon(context.WithoutCancel(ctx))
			l.publish()
			return
		case cmd := <-l.cmds:
			switch cmd.kind {
			case cmdStart:
				l.timer.Start(ctx)
				arm()
			case cmdStop:
				disarm()
				l.timer.Stop(ctx)
			case cmdReset:
				disarm()
				l.timer.Reset(ctx)
			}
			snap := l.timer.Snapshot()
			l.publish()
			cmd.reply <- snap
		case <-tickC:
			l.timer.Tick(ctx)
			l.publish()
		case <-flushC:
			if l.timer.AutoFlush(ctx) {
				l.publish()
			}
		}
	}
}

// Start starts the timer and arms both tickers.
func (l *Loop) Start(ctx context.Context) (domain.TimerState, error) {
	return l.do(ctx, cmdStart)
}

// Stop pauses the timer, flushing unsaved time. No tick is seen after it returns.
func (l *Loop) Stop(ctx context.Context) (domain.TimerState, error) {
	return l.do(ctx, cmdStop)
}

// Reset stops the timer if needed and returns it to idle.
func (l *Loop) Reset(ctx context.Context) (domain.TimerState, error) {
	return l.do(ctx, cmdReset)
}

// Toggle starts a stopped timer and stops a running one.
func (l *Loop) Toggle(ctx context.Context) (domain.TimerState, error) {
	snap, err := l.do(ctx, cmdSnapshot)
	if err != nil {
		return snap, err
	}
	if snap.Running {
		return l.Stop(ctx)
	}
	return l.Start(ctx)
}

// Snapshot returns the state as seen by the loop goroutine.
func (l *Loop) Snapshot(ctx context.Context) (domain.TimerState, error) {
	return l.do(ctx, cmdSnapshot)
}

func (l *Loop) do(ctx context.Context, kind commandKind) (domain.TimerState, error) {
	cmd := command{kind: kind, reply: make(chan domain.TimerState, 1)}
	select {
	case l.cmds <- cmd:
	case <-l.done:
		return domain.TimerState{}, ErrLoopClosed
	case <-ctx.Done():
		return domain.TimerState{}, ctx.Err()
	}
	select {
	case snap := <-cmd.reply:
		return snap, nil
	case <-l.done:
		return domain.TimerState{}, ErrLoopClosed
	}
}

func (l *Loop) publish() {
	snap := l.timer.Snapshot()
	select {
	case <-l.updates:
	default:
	}
	select {
	case l.updates <- snap:
	default:
	}
}
