// Package worker drives queued jobs through the conversion pipeline, one at
// a time. It is the only place that decides retry-versus-fail for pipeline
// errors.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/doc2md/doc2md/internal/core/domain"
	"github.com/doc2md/doc2md/internal/core/ports"
	"github.com/doc2md/doc2md/internal/observability/metrics"
)

const retryCeiling = 3

// ConvertFunc runs the full pipeline for one claimed job with the resolved
// credentials. The worker owns all queue transitions around it.
type ConvertFunc func(ctx context.Context, job domain.Job, profile domain.ProviderProfile, traceID string) error

type Worker struct {
	queue    ports.JobQueue
	profiles *ProfileCache
	convert  ConvertFunc

	pollInterval time.Duration
	pruneKeep    int

	wake     chan struct{}
	onChange func()
	metrics  *metrics.WorkerMetrics
	log      *slog.Logger
}

type Options struct {
	PollInterval time.Duration
	PruneKeep    int
	// OnChange fires after every queue transition so observers can refresh.
	// It is a side effect only, never a correctness dependency.
	OnChange func()
	Metrics  *metrics.WorkerMetrics
}

func New(queue ports.JobQueue, profiles *ProfileCache, convert ConvertFunc, log *slog.Logger, opts Options) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewWorkerMetrics()
	}
	return &Worker{
		queue:        queue,
		profiles:     profiles,
		convert:      convert,
		pollInterval: opts.PollInterval,
		pruneKeep:    opts.PruneKeep,
		wake:         make(chan struct{}, 1),
		onChange:     opts.OnChange,
		metrics:      opts.Metrics,
		log:          log,
	}
}

// Wake nudges an idle worker. The buffered channel retains one signal fired
// while nobody was waiting, so wake-ups are never lost.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run loops until ctx is cancelled. An in-flight attempt always runs to its
// own completion; cancellation only prevents future picks.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		job, ok := w.queue.Claim("starting")
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-w.wake:
			case <-ticker.C:
			}
			continue
		}

		w.notifyChange()
		w.processJob(ctx, job)
	}
}

func (w *Worker) processJob(ctx context.Context, job domain.Job) {
	traceID := fmt.Sprintf("job-%d-%s", job.ID, uuid.NewString())
	started := time.Now()
	w.metrics.StartJob()

	profile, err := w.profiles.Active()
	if err != nil {
		// Missing configuration will not fix itself on retry.
		w.commitFailure(job, err, started, true)
		return
	}

	w.queue.MarkRunning(job.ID, "processing")
	w.notifyChange()

	if err := w.convert(ctx, job, profile, traceID); err != nil {
		w.log.Warn("job_attempt_failed",
			"job_id", job.ID,
			"retries", job.Retries,
			"trace_id", traceID,
			"error", err,
		)
		w.commitFailure(job, err, started, isTerminalJobError(err))
		return
	}

	w.queue.MarkSuccess(job.ID)
	w.finishCommit("success", started)
	w.log.Info("job_done", "job_id", job.ID, "trace_id", traceID)
}

// commitFailure records the outcome for a failed attempt. terminal forces a
// hard failure regardless of the retry budget; otherwise the job retries
// until its pre-failure retry count reaches the ceiling.
func (w *Worker) commitFailure(job domain.Job, err error, started time.Time, terminal bool) {
	if !terminal && job.Retries < retryCeiling {
		w.queue.MarkRetrying(job.ID, "failed_retry", err.Error())
		w.finishCommit("retrying", started)
		return
	}
	w.queue.MarkFailed(job.ID, err.Error())
	w.finishCommit("failed", started)
}

func (w *Worker) finishCommit(outcome string, started time.Time) {
	if outcome != "retrying" && w.pruneKeep > 0 {
		w.queue.PruneTerminal(w.pruneKeep)
	}
	w.notifyChange()
	w.metrics.FinishJob(outcome, time.Since(started))
	w.metrics.SetQueueDepth(w.pendingDepth())
}

func (w *Worker) pendingDepth() int {
	depth := 0
	for _, job := range w.queue.List() {
		if job.State.Pending() {
			depth++
		}
	}
	return depth
}

func (w *Worker) notifyChange() {
	if w.onChange != nil {
		w.onChange()
	}
}

// isTerminalJobError marks error kinds that no amount of retrying can fix.
func isTerminalJobError(err error) bool {
	return domain.IsKind(err, domain.ErrConfigMissing) ||
		domain.IsKind(err, domain.ErrUnsupportedInput) ||
		domain.IsKind(err, domain.ErrInvalidInput) ||
		domain.IsKind(err, domain.ErrDecryptFailed)
}
