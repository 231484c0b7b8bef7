package platform

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"wanworker/internal/handler"
)

// Worker polls the queue and feeds jobs through the handler, one at a time.
// GPU memory makes concurrent generations pointless, so there is no worker
// pool; the platform scales by adding workers, not goroutines.
type Worker struct {
	client       *Client
	handler      *handler.Handler
	pollInterval time.Duration
	jobTimeout   time.Duration
	logger       zerolog.Logger
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Client       *Client
	Handler      *handler.Handler
	PollInterval time.Duration
	JobTimeout   time.Duration
	Logger       zerolog.Logger
}

// NewWorker constructs a Worker with defaults applied.
func NewWorker(opts WorkerOptions) *Worker {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	jobTimeout := opts.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Minute
	}
	return &Worker{
		client:       opts.Client,
		handler:      opts.Handler,
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
		logger:       opts.Logger,
	}
}

// Run polls until the context is canceled. Handler failures are reported to
// the queue as error envelopes, never as a dead worker.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("platform: worker started")
	for {
		job, err := w.client.TakeJob(ctx)
		switch {
		case errors.Is(err, ErrNoJob):
			if sleepErr := sleepCtx(ctx, w.pollInterval); sleepErr != nil {
				return nil
			}
			continue
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			w.logger.Error().Err(err).Msg("platform: job-take failed")
			if sleepErr := sleepCtx(ctx, w.pollInterval); sleepErr != nil {
				return nil
			}
			continue
		}

		w.execute(ctx, job)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (w *Worker) execute(ctx context.Context, job *Job) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	output, err := w.handler.Handle(jobCtx, job.ID, job.Input)

	result := JobResult{}
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("platform: job failed")
		result.Error = err.Error()
	} else {
		result.Output = output
	}

	// Report with a fresh deadline so a canceled job still gets flushed.
	doneCtx, doneCancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer doneCancel()
	if err := w.client.JobDone(doneCtx, job.ID, result); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("platform: job-done failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
