package heartbeat

import (
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func TestTrackBeatUntrackLifecycle(t *testing.T) {
	w := NewWatchdog(arbor.NewLogger(), 30*time.Minute)

	w.Track("job-1")
	w.mu.Lock()
	_, tracked := w.inFlight["job-1"]
	w.mu.Unlock()
	if !tracked {
		t.Fatal("Track() should register the job as in-flight")
	}

	w.Beat("job-1")
	w.mu.Lock()
	lastBeat := w.inFlight["job-1"].lastBeat
	w.mu.Unlock()
	if time.Since(lastBeat) > time.Second {
		t.Fatal("Beat() should refresh lastBeat to approximately now")
	}

	w.Untrack("job-1")
	w.mu.Lock()
	_, stillTracked := w.inFlight["job-1"]
	w.mu.Unlock()
	if stillTracked {
		t.Fatal("Untrack() should remove the job")
	}
}

func TestBeatOnUntrackedJobIsANoOp(t *testing.T) {
	w := NewWatchdog(arbor.NewLogger(), 30*time.Minute)
	// Must not panic when beating a job nobody tracked.
	w.Beat("never-tracked")
}

func TestSweepDoesNotPanicWithStaleAndFreshJobs(t *testing.T) {
	w := NewWatchdog(arbor.NewLogger(), 4*time.Minute) // threshold = 1 minute
	w.Track("fresh")
	w.mu.Lock()
	w.inFlight["stale"] = &trackedJob{jobID: "stale", startedAt: time.Now().Add(-time.Hour), lastBeat: time.Now().Add(-time.Hour)}
	w.mu.Unlock()

	w.sweep()

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.inFlight) != 2 {
		t.Fatalf("sweep() must not remove tracked jobs, have %d", len(w.inFlight))
	}
}
