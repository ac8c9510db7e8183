// Package memory holds the in-process job registry. One mutex guards every
// mutation, and each operation is a short non-blocking critical section: the
// lock is never held across network calls or backoff sleeps.
package memory

import (
	"math"
	"sort"
	"sync"

	"github.com/doc2md/doc2md/internal/core/domain"
)

const doneStage = "done"

type Queue struct {
	mu     sync.Mutex
	nextID domain.JobID
	jobs   map[domain.JobID]*domain.Job
}

func NewQueue() *Queue {
	return &Queue{jobs: make(map[domain.JobID]*domain.Job)}
}

// Enqueue registers a new job and returns its id. IDs grow monotonically and
// are never reused.
func (q *Queue) Enqueue(input string) domain.JobID {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	id := q.nextID
	q.jobs[id] = &domain.Job{
		ID:    id,
		Input: input,
		State: domain.JobQueued,
		Stage: "queued",
	}
	return id
}

// MarkRunning is a no-op for unknown ids: callers may race with external job
// removal and that is not an error.
func (q *Queue) MarkRunning(id domain.JobID, stage string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job, ok := q.jobs[id]; ok {
		job.State = domain.JobRunning
		job.Stage = stage
		job.LastError = ""
	}
}

func (q *Queue) MarkRetrying(id domain.JobID, stage, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job, ok := q.jobs[id]; ok {
		job.State = domain.JobRetrying
		job.Stage = stage
		if job.Retries < math.MaxUint8 {
			job.Retries++
		}
		job.LastError = errMsg
	}
}

func (q *Queue) MarkFailed(id domain.JobID, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job, ok := q.jobs[id]; ok {
		job.State = domain.JobFailed
		job.LastError = errMsg
	}
}

func (q *Queue) MarkSuccess(id domain.JobID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job, ok := q.jobs[id]; ok {
		job.State = domain.JobSuccess
		job.Stage = doneStage
		job.LastError = ""
	}
}

// Requeue puts a job back into Queued with a fresh retry budget. This backs
// the host-facing "retry job" command, so it deliberately resets the counter
// instead of consuming it.
func (q *Queue) Requeue(id domain.JobID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job, ok := q.jobs[id]; ok {
		job.State = domain.JobQueued
		job.Stage = "requeued"
		job.Retries = 0
		job.LastError = ""
	}
}

func (q *Queue) Get(id domain.JobID) (domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

// NextPending returns the lowest id among Queued and Retrying jobs. A linear
// scan is fine at the job volumes a single process sees.
func (q *Queue) NextPending() (domain.JobID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.nextPendingLocked()
}

func (q *Queue) nextPendingLocked() (domain.JobID, bool) {
	var best domain.JobID
	found := false
	for id, job := range q.jobs {
		if !job.State.Pending() {
			continue
		}
		if !found || id < best {
			best = id
			found = true
		}
	}
	return best, found
}

// Claim selects the next pending job and flips it to Running in a single
// critical section, so two workers can never take the same job. It returns a
// copy of the claimed record.
func (q *Queue) Claim(stage string) (domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id, ok := q.nextPendingLocked()
	if !ok {
		return domain.Job{}, false
	}

	job := q.jobs[id]
	job.State = domain.JobRunning
	job.Stage = stage
	job.LastError = ""
	return *job, true
}

// List returns an id-ordered snapshot of every job.
func (q *Queue) List() []domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PruneTerminal drops the oldest terminal jobs until at most keep remain,
// bounding queue growth across a long session. keep <= 0 disables pruning.
// It returns the number of jobs removed.
func (q *Queue) PruneTerminal(keep int) int {
	if keep <= 0 {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var terminal []domain.JobID
	for id, job := range q.jobs {
		if job.State.Terminal() {
			terminal = append(terminal, id)
		}
	}
	if len(terminal) <= keep {
		return 0
	}

	sort.Slice(terminal, func(i, j int) bool { return terminal[i] < terminal[j] })
	evict := terminal[:len(terminal)-keep]
	for _, id := range evict {
		delete(q.jobs, id)
	}
	return len(evict)
}
