package domain

import "testing"

func TestJobStatePredicates(t *testing.T) {
	pending := map[JobState]bool{
		JobQueued:   true,
		JobRetrying: true,
		JobRunning:  false,
		JobFailed:   false,
		JobSuccess:  false,
	}
	for state, want := range pending {
		if got := state.Pending(); got != want {
			t.Errorf("%s.Pending() = %v, want %v", state, got, want)
		}
	}

	terminal := map[JobState]bool{
		JobFailed:   true,
		JobSuccess:  true,
		JobQueued:   false,
		JobRetrying: false,
		JobRunning:  false,
	}
	for state, want := range terminal {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
	}
}
