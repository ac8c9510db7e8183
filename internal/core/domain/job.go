package domain

// JobID identifies one queued conversion. IDs grow monotonically and are
// never reused within a process.
type JobID = uint64

type JobState string

const (
	JobQueued   JobState = "queued"
	JobRunning  JobState = "running"
	JobRetrying JobState = "retrying"
	JobFailed   JobState = "failed"
	JobSuccess  JobState = "success"
)

// Pending reports whether a job in this state is eligible for worker pickup.
func (s JobState) Pending() bool {
	return s == JobQueued || s == JobRetrying
}

// Terminal states are sticky: the worker never re-selects them.
func (s JobState) Terminal() bool {
	return s == JobFailed || s == JobSuccess
}

// Job is one document-conversion request tracked through its lifecycle.
// The queue owns the canonical record; everything handed out is a copy.
type Job struct {
	ID        JobID    `json:"id"`
	Input     string   `json:"input"`
	State     JobState `json:"state"`
	Stage     string   `json:"stage"`
	Retries   uint8    `json:"retries"`
	LastError string   `json:"last_error,omitempty"`
}
