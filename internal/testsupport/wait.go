package testsupport

import (
	"testing"
	"time"

	"vectra/internal/job"
)

// WaitForState polls the manager until the job reaches the wanted state or
// the deadline passes.
func WaitForState(t testing.TB, manager *job.Manager, jobID string, want job.State, timeout time.Duration) job.Snapshot {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		snap, err := manager.Get(jobID)
		if err == nil && snap.State == want {
			return snap
		}
		if time.Now().After(deadline) {
			if err != nil {
				t.Fatalf("job %s never reached %s: %v", jobID, want, err)
			}
			t.Fatalf("job %s never reached %s (stuck at %s)", jobID, want, snap.State)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitForTerminal polls until the job is in any terminal state.
func WaitForTerminal(t testing.TB, manager *job.Manager, jobID string, timeout time.Duration) job.Snapshot {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		snap, err := manager.Get(jobID)
		if err == nil && snap.State.IsTerminal() {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s never reached a terminal state", jobID)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
