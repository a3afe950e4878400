// -----------------------------------------------------------------------
// Heartbeat is the lease-preserving side channel handlers call at every
// natural checkpoint (spec.md §4.5). Both writes are best-effort: a
// heartbeat failure never aborts the handler, it only risks losing the
// lease to a future stale-claim if it keeps failing.
// -----------------------------------------------------------------------

package heartbeat

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/models"
)

// Beater refreshes a job's lease and its worker's liveness timestamp.
type Beater struct {
	Client       *coordinator.Client
	Logger       arbor.ILogger
	WorkerID     string
	JobType      models.JobType
	JobID        string
}

// New constructs a Beater bound to one in-flight job.
func New(client *coordinator.Client, logger arbor.ILogger, workerID string, jobType models.JobType, jobID string) *Beater {
	return &Beater{Client: client, Logger: logger, WorkerID: workerID, JobType: jobType, JobID: jobID}
}

// Beat refreshes job.claimedAt and worker.lastSeenAt. Status and claimedBy
// are never touched here (spec.md §4.5 "Heartbeat never changes status").
// Failures are logged at warn level and swallowed.
func (b *Beater) Beat(ctx context.Context) {
	now := time.Now().UTC()

	if err := b.Client.UpdateByID(ctx, coordinator.JobCollection(b.JobType), b.JobID, map[string]interface{}{
		"claimed_at": now,
	}, nil); err != nil {
		b.Logger.Warn().Str("job_id", b.JobID).Err(err).Msg("heartbeat: failed to refresh job lease")
	}

	if err := b.Client.UpdateByID(ctx, coordinator.CollectionWorkers, b.WorkerID, map[string]interface{}{
		"last_seen_at": now,
	}, nil); err != nil {
		b.Logger.Warn().Str("worker_id", b.WorkerID).Err(err).Msg("heartbeat: failed to refresh worker liveness")
	}
}

// BeatEvery returns a ticker-driven heartbeat loop suitable for
// goroutine-wrapped long operations; the caller stops it via the returned
// cancel func when the handler finishes its batch.
func (b *Beater) BeatEvery(ctx context.Context, interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				b.Beat(ctx)
			case <-done:
				ticker.Stop()
				return
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
