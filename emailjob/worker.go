package emailjob

import (
	"context"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Worker is the single consumer of a Queue. It attempts delivery via the
// configured Sender and retries failed sends with exponential backoff.
type Worker struct {
	queue  *Queue
	sender Sender
	config Config
	log    *zap.Logger
}

// New creates a queue/worker pair sharing one bounded job channel.
// logger may be nil.
func New(sender Sender, config Config, logger *zap.Logger) (*Queue, *Worker) {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	queue := &Queue{
		jobs:        make(chan Job, config.BufferSize),
		stopped:     make(chan struct{}),
		nonBlocking: config.NonBlocking,
	}

	worker := &Worker{
		queue:  queue,
		sender: sender,
		config: config,
		log:    logger,
	}

	return queue, worker
}

// Run consumes jobs until the queue is closed and drained, or ctx is
// cancelled. Closing the queue is the graceful path: buffered jobs are still
// processed to completion, retries included. Cancelling ctx is immediate and
// may lose buffered jobs.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.queue.stopped)

	w.log.Info("email worker started")

	for {
		select {
		case job, ok := <-w.queue.jobs:
			if !ok {
				w.log.Info("email worker stopped (queue closed)")
				return
			}
			w.process(ctx, job)
		case <-ctx.Done():
			w.log.Info("email worker cancelled", zap.Error(ctx.Err()))
			return
		}
	}
}

// Start runs the worker in a goroutine and returns a handle for shutdown.
func (w *Worker) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	go w.Run(ctx)

	return &Handle{
		queue:  w.queue,
		cancel: cancel,
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = w.config.MaxAttempts
	}

	backoff := newBackoff(w.config)
	backoff = retry.WithMaxRetries(uint64(maxAttempts-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		job.Attempts++

		if err := w.sender.SendVerificationEmail(ctx, job.message()); err != nil {
			w.log.Warn("email send failed",
				zap.String("type", string(job.Type)),
				zap.String("recipient", job.Recipient),
				zap.Int("attempt", job.Attempts),
				zap.Int("max_attempts", maxAttempts),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})

	if err != nil {
		// Delivery failure is never surfaced to the original caller; the
		// issuing operation returned long ago. Log and drop.
		w.log.Error("email job failed permanently, dropping",
			zap.String("type", string(job.Type)),
			zap.String("recipient", job.Recipient),
			zap.String("user_id", job.UserID),
			zap.Int("attempts", job.Attempts),
			zap.Error(err))
		return
	}

	w.log.Info("email sent",
		zap.String("type", string(job.Type)),
		zap.String("recipient", job.Recipient),
		zap.Int("attempts", job.Attempts))
}

// newBackoff builds the retry schedule: delay = min(base * 2^(attempt-1), max)
// with up to ±10% jitter.
func newBackoff(config Config) retry.Backoff {
	backoff := retry.NewExponential(config.BaseRetryDelay)
	backoff = retry.WithCappedDuration(config.MaxRetryDelay, backoff)
	backoff = retry.WithJitterPercent(10, backoff)
	return backoff
}

// Handle owns the shutdown of a running worker. The host application decides
// between a graceful drain (Shutdown) and an immediate stop (Abort).
type Handle struct {
	queue  *Queue
	cancel context.CancelFunc
}

// Queue returns the producer handle for the running worker.
func (h *Handle) Queue() *Queue {
	return h.queue
}

// Running reports whether the worker goroutine is still alive.
func (h *Handle) Running() bool {
	select {
	case <-h.queue.stopped:
		return false
	default:
		return true
	}
}

// Shutdown closes the queue and waits for the worker to drain buffered jobs.
// Returns ctx.Err() if the drain does not finish in time; the worker keeps
// draining regardless.
func (h *Handle) Shutdown(ctx context.Context) error {
	h.queue.Close()
	select {
	case <-h.queue.stopped:
		h.cancel()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Abort cancels the worker immediately. In-flight and buffered jobs may be lost.
func (h *Handle) Abort() {
	h.cancel()
}
