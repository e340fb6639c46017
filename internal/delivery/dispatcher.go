// Package delivery hands flushed study sessions to the backend without
// blocking the timer, keeping anything undeliverable in a local outbox.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alexanderramin/studyclock/internal/contract"
	"github.com/alexanderramin/studyclock/internal/domain"
	"github.com/alexanderramin/studyclock/internal/repository"
	"github.com/alexanderramin/studyclock/internal/studyapi"
)

// Submitter is the part of studyapi.Client the dispatcher needs.
type Submitter interface {
	CreateSession(ctx context.Context, s domain.StudySession) (*contract.CreateSessionResponse, error)
}

// Config controls delivery and outbox replay.
type Config struct {
	// SendTimeout bounds one background Send including client retries. It
	// should cover the client's worst case (config.APIConfig.RetryBudget).
	SendTimeout time.Duration
	// BeaconTimeout bounds delivery from Beacon.
	BeaconTimeout time.Duration
	BatchSize     int
	// MaxAttempts is how many failed replays a row survives.
	MaxAttempts int
	ReplayRPS   float64
}

func DefaultConfig() Config {
	return Config{
		SendTimeout:   30 * time.Second,
		BeaconTimeout: 2 * time.Second,
		BatchSize:     50,
		MaxAttempts:   10,
		ReplayRPS:     5,
	}
}

// Dispatcher implements the timer's sink on top of the backend client and
// the pending_sessions outbox.
type Dispatcher struct {
	client      Submitter
	outbox      repository.PendingSessionRepo
	cfg         Config
	log         *slog.Logger
	onDelivered func(domain.StudySession)

	wg sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithOnDelivered registers a callback run after each successful delivery.
// It is called from the delivering goroutine.
func WithOnDelivered(fn func(domain.StudySession)) Option {
	return func(d *Dispatcher) { d.onDelivered = fn }
}

func NewDispatcher(client Submitter, outbox repository.PendingSessionRepo, cfg Config, log *slog.Logger, opts ...Option) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{client: client, outbox: outbox, cfg: cfg, log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send writes rec to the outbox, then delivers it on its own goroutine and
// returns. A delivered or rejected record leaves the outbox; one that still
// fails after the client's retries stays queued for replay. A process that
// exits mid-delivery therefore still has the record queued.
func (d *Dispatcher) Send(rec domain.StudySession) {
	queueErr := d.outbox.Enqueue(context.Background(), rec, "")
	if queueErr != nil {
		d.log.Error("queueing study session", "session_id", rec.ID, "error", queueErr)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
		defer cancel()

		err := d.deliver(ctx, rec)
		switch {
		case err == nil:
			d.dequeue(rec, queueErr)
		case errors.Is(err, studyapi.ErrRejected):
			d.log.Warn("study session rejected", "session_id", rec.ID,
				"duration_seconds", rec.DurationSeconds, "error", err)
			d.dequeue(rec, queueErr)
		case queueErr != nil:
			// The write-ahead failed, so queue it now.
			if qerr := d.outbox.Enqueue(context.Background(), rec, err.Error()); qerr != nil {
				d.log.Error("study session lost", "session_id", rec.ID,
					"duration_seconds", rec.DurationSeconds, "error", errors.Join(err, qerr))
			}
		default:
			d.log.Warn("study session not delivered, queued for replay", "session_id", rec.ID,
				"duration_seconds", rec.DurationSeconds, "error", err)
			d.markFailed(rec, err)
		}
	}()
}

// Beacon is used on exit. The record is made durable in the outbox before
// anything touches the network, then delivery is tried once within
// BeaconTimeout. Success removes the outbox row.
func (d *Dispatcher) Beacon(rec domain.StudySession) error {
	ctx := context.Background()
	queueErr := d.outbox.Enqueue(ctx, rec, "")
	if queueErr != nil {
		d.log.Error("queueing final study session", "session_id", rec.ID, "error", queueErr)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.BeaconTimeout)
	defer cancel()
	if err := d.deliver(sendCtx, rec); err != nil {
		if queueErr != nil {
			return errors.Join(queueErr, err)
		}
		d.markFailed(rec, err)
		// Queued, so the record is not lost.
		return nil
	}

	d.dequeue(rec, queueErr)
	return nil
}

// dequeue removes a settled record written ahead of delivery.
func (d *Dispatcher) dequeue(rec domain.StudySession, queueErr error) {
	if queueErr != nil {
		return
	}
	if err := d.outbox.Remove(context.Background(), rec.ID); err != nil {
		d.log.Warn("removing settled session from outbox", "session_id", rec.ID, "error", err)
	}
}

func (d *Dispatcher) markFailed(rec domain.StudySession, cause error) {
	if err := d.outbox.MarkFailed(context.Background(), rec.ID, cause.Error()); err != nil {
		d.log.Warn("recording delivery failure", "session_id", rec.ID, "error", err)
	}
}

// DrainResult summarizes one outbox replay.
type DrainResult struct {
	Delivered int
	Failed    int
	Dropped   int
	Remaining int
}

// Drain replays queued records oldest first, paced by ReplayRPS. It stops
// early when the backend is unreachable. Rejected rows, and rows that have
// failed MaxAttempts times, are dropped.
func (d *Dispatcher) Drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	pending, err := d.outbox.List(ctx, d.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("listing outbox: %w", err)
	}

	limit := rate.Inf
	if d.cfg.ReplayRPS > 0 {
		limit = rate.Limit(d.cfg.ReplayRPS)
	}
	limiter := rate.NewLimiter(limit, 1)
	for _, p := range pending {
		if err := limiter.Wait(ctx); err != nil {
			return d.withRemaining(ctx, res), err
		}

		err := d.deliver(ctx, p.Session)
		switch {
		case err == nil:
			if rerr := d.outbox.Remove(ctx, p.Session.ID); rerr != nil {
				return d.withRemaining(ctx, res), fmt.Errorf("removing delivered session: %w", rerr)
			}
			res.Delivered++
		case errors.Is(err, studyapi.ErrRejected) || p.Attempts+1 >= d.cfg.MaxAttempts:
			d.log.Warn("dropping queued study session", "session_id", p.Session.ID,
				"attempts", p.Attempts+1, "error", err)
			if rerr := d.outbox.Remove(ctx, p.Session.ID); rerr != nil {
				return d.withRemaining(ctx, res), fmt.Errorf("dropping session: %w", rerr)
			}
			res.Dropped++
		default:
			if merr := d.outbox.MarkFailed(ctx, p.Session.ID, err.Error()); merr != nil {
				return d.withRemaining(ctx, res), fmt.Errorf("recording replay failure: %w", merr)
			}
			res.Failed++
			if errors.Is(err, studyapi.ErrUnavailable) {
				d.log.Info("backend unreachable, stopping replay", "error", err)
				return d.withRemaining(ctx, res), nil
			}
		}
	}
	return d.withRemaining(ctx, res), nil
}

// Pending returns the number of queued records.
func (d *Dispatcher) Pending(ctx context.Context) (int, error) {
	return d.outbox.Count(ctx)
}

// Wait blocks until in-flight Sends finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, rec domain.StudySession) error {
	resp, err := d.client.CreateSession(ctx, rec)
	if err != nil {
		return err
	}
	d.log.Info("study session delivered", "session_id", rec.ID,
		"server_id", resp.ID, "duration_seconds", rec.DurationSeconds)
	if d.onDelivered != nil {
		d.onDelivered(rec)
	}
	return nil
}

func (d *Dispatcher) withRemaining(ctx context.Context, res DrainResult) DrainResult {
	if n, err := d.outbox.Count(context.WithoutCancel(ctx)); err == nil {
		res.Remaining = n
	}
	return res
}
