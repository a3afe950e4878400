// -----------------------------------------------------------------------
// Submit writes entity changes and per-item join records, bumps job
// counters, decides completion, and releases or completes the lease
// (spec.md §4.4). Each item's persist is independent: no cross-item
// transaction is assumed.
// -----------------------------------------------------------------------

package submit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/models"
)

// Outcome summarizes one batch's persist pass for the caller's logging.
type Outcome struct {
	Succeeded int
	Failed    int
	Completed bool
}

// finalize applies the shared counters/completion/release rule of
// spec.md §4.4 "Counters and completion" once all item persists for a
// batch have run.
func finalize(ctx context.Context, client *coordinator.Client, logger arbor.ILogger, job *models.Job, succeeded, failed int, nextCursor json.RawMessage, cursorExhausted bool) (Outcome, error) {
	now := time.Now().UTC()
	progressed := job.Progressed + succeeded
	errors := job.Errors + failed

	collection := coordinator.JobCollection(job.Type)

	// job.Total == 0 means "not yet known" for types whose total isn't
	// countable up front (e.g. video-discovery, until the channel is
	// exhausted) - only a known, positive total can satisfy completion
	// by counters alone; otherwise completion rests on cursorExhausted.
	if (job.Total > 0 && progressed+errors >= job.Total) || cursorExhausted {
		if err := client.UpdateByID(ctx, collection, job.ID, map[string]interface{}{
			"status":       models.JobStatusCompleted,
			"completed_at": now,
			"progressed":   progressed,
			"errors":       errors,
		}, nil); err != nil {
			return Outcome{}, err
		}
		return Outcome{Succeeded: succeeded, Failed: failed, Completed: true}, nil
	}

	patch := map[string]interface{}{
		"claimed_by": nil,
		"claimed_at": nil,
		"progressed": progressed,
		"errors":     errors,
	}
	if len(nextCursor) > 0 {
		patch["progress"] = nextCursor
	}
	if err := client.UpdateByID(ctx, collection, job.ID, patch, nil); err != nil {
		return Outcome{}, err
	}
	return Outcome{Succeeded: succeeded, Failed: failed}, nil
}

// writeJoinRecord appends the audit-log entry backing a batch item's
// persist outcome (spec.md §3 "Join records").
func writeJoinRecord(ctx context.Context, client *coordinator.Client, jobID, entityType, entityID string, persistErr error) error {
	record := models.JoinRecord{
		ID:         uuid.NewString(),
		JobID:      jobID,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now().UTC(),
	}
	if persistErr != nil {
		msg := persistErr.Error()
		record.Error = &msg
	}
	return client.Create(ctx, coordinator.CollectionJoinRecords, record, "", "", nil, nil)
}
