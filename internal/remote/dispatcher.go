package remote

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/sightspeech/internal/command"
	"github.com/jackzampolin/sightspeech/internal/metrics"
)

// Job is one remote command accepted by the dispatcher.
type Job struct {
	ID      string
	Command command.Command
	Frame   image.Image
}

// JobResult is reported after a job finishes.
type JobResult struct {
	Job      Job
	Err      error
	Duration time.Duration
}

// Runner executes a remote command. *Extractor implements it.
type Runner interface {
	Run(ctx context.Context, frame image.Image, cmd command.Command) error
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Runner  Runner
	Metrics *metrics.Metrics
	Logger  *slog.Logger

	// OnDone is called from the dispatcher goroutine after each job. Optional.
	OnDone func(JobResult)
}

// Dispatcher runs remote commands off the frame loop, one at a time.
// Submissions made while a job is in flight are rejected with ErrBusy.
type Dispatcher struct {
	runner   Runner
	metrics  *metrics.Metrics
	logger   *slog.Logger
	onDone   func(JobResult)
	queue    chan Job
	inFlight atomic.Bool
}

// NewDispatcher creates a dispatcher. Call Start to begin processing.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		runner:  cfg.Runner,
		metrics: cfg.Metrics,
		logger:  logger.With("component", "dispatcher"),
		onDone:  cfg.OnDone,
		queue:   make(chan Job, 1),
	}, nil
}

// Start runs the processing loop.
// Blocks until context is cancelled. Run in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return

		case job := <-d.queue:
			start := time.Now()
			err := d.runner.Run(ctx, job.Frame, job.Command)
			res := JobResult{Job: job, Err: err, Duration: time.Since(start)}
			if err != nil {
				d.logger.Warn("remote job failed", "job_id", job.ID, "command", job.Command, "error", err)
			} else {
				d.logger.Info("remote job complete", "job_id", job.ID, "command", job.Command, "duration", res.Duration)
			}
			d.inFlight.Store(false)
			if d.onDone != nil {
				d.onDone(res)
			}
		}
	}
}

// Submit queues cmd on frame and returns the job ID.
// Returns ErrBusy if a job is already in flight.
func (d *Dispatcher) Submit(cmd command.Command, frame image.Image) (string, error) {
	if !cmd.Remote() {
		return "", command.ErrInvalidCommand
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		d.metrics.RemoteRejected()
		return "", ErrBusy
	}
	job := Job{ID: uuid.New().String(), Command: cmd, Frame: frame}
	select {
	case d.queue <- job:
		return job.ID, nil
	default:
		d.inFlight.Store(false)
		d.metrics.RemoteRejected()
		return "", ErrBusy
	}
}

// Idle reports whether no job is in flight.
func (d *Dispatcher) Idle() bool {
	return !d.inFlight.Load()
}
