// -----------------------------------------------------------------------
// Engine implements the claim/lease protocol (spec.md §4.1): given a
// worker's capability set, return exactly one claimed job or "no work".
// -----------------------------------------------------------------------

package claim

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/models"
)

// ErrNoWork is the distinguished "nothing claimable right now" sentinel.
// It is not a failure; the main loop treats it as "sleep and retry".
var ErrNoWork = errors.New("claim: no work available")

// Engine selects and atomically claims one job per tick.
type Engine struct {
	client     *coordinator.Client
	workerID   string
	jobTimeout time.Duration
	logger     arbor.ILogger
	rnd        *rand.Rand
}

// New builds a claim Engine bound to one worker identity.
func New(client *coordinator.Client, workerID string, jobTimeout time.Duration, logger arbor.ILogger) *Engine {
	return &Engine{
		client:     client,
		workerID:   workerID,
		jobTimeout: jobTimeout,
		logger:     logger,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Claim returns the next job of one of the given types this worker should
// process, or ErrNoWork if nothing is claimable. Candidates are gathered
// per type in capability order; a rejected claim attempt removes that
// candidate and retries with the next (spec.md §4.1 steps 1-4).
func (e *Engine) Claim(ctx context.Context, capabilities []models.JobType) (*models.Job, error) {
	candidates, err := e.gatherCandidates(ctx, capabilities)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoWork
	}

	priority, rest := splitPriority(candidates)
	order := buildAttemptOrder(priority, rest, e.rnd)

	for _, cand := range order {
		job, err := e.attemptClaim(ctx, cand)
		if err == nil {
			return job, nil
		}
		if coordinator.IsClaimRejected(err) {
			e.logger.Debug().Str("job_id", cand.job.ID).Str("type", string(cand.jobType)).Msg("claim rejected, trying next candidate")
			continue
		}
		return nil, err
	}
	return nil, ErrNoWork
}

// candidate pairs a job document with the collection it came from.
type candidate struct {
	job     models.Job
	jobType models.JobType
}

// gatherCandidates issues the three-query shape of spec.md §4.1 step 2
// against every capability's collection and unions the results.
func (e *Engine) gatherCandidates(ctx context.Context, capabilities []models.JobType) ([]candidate, error) {
	now := time.Now().UTC()
	var all []candidate

	for _, jobType := range capabilities {
		collection := coordinator.JobCollection(jobType)
		if collection == "" {
			continue
		}

		var pending []models.Job
		if err := e.client.Find(ctx, collection, coordinator.Query{
			Where: coordinator.Eq("status", string(models.JobStatusPending)),
			Limit: 20,
		}, &pending); err != nil {
			return nil, err
		}

		var released []models.Job
		if err := e.client.Find(ctx, collection, coordinator.Query{
			Where: coordinator.And(
				coordinator.Eq("status", string(models.JobStatusInProgress)),
				coordinator.FieldOp("claimed_by", coordinator.OpExists, false),
			),
			Limit: 20,
		}, &released); err != nil {
			return nil, err
		}

		var inProgress []models.Job
		if err := e.client.Find(ctx, collection, coordinator.Query{
			Where: coordinator.Eq("status", string(models.JobStatusInProgress)),
			Limit: 50,
		}, &inProgress); err != nil {
			return nil, err
		}
		var stale []models.Job
		for _, j := range inProgress {
			if j.IsStale(now, e.jobTimeout) {
				stale = append(stale, j)
			}
		}

		seen := make(map[string]bool)
		for _, bucket := range [][]models.Job{pending, released, stale} {
			for _, j := range bucket {
				if seen[j.ID] {
					continue
				}
				seen[j.ID] = true
				all = append(all, candidate{job: j, jobType: jobType})
			}
		}
	}
	return all, nil
}

// splitPriority separates "selected target" jobs from the rest (spec.md
// §4.1 step 3).
func splitPriority(candidates []candidate) (priority, rest []candidate) {
	for _, c := range candidates {
		if c.job.IsSelectedTarget() {
			priority = append(priority, c)
		} else {
			rest = append(rest, c)
		}
	}
	return priority, rest
}

// buildAttemptOrder returns the order in which candidates are tried: the
// full priority set first (in discovery order), then the remainder
// shuffled so repeated polls don't converge the fleet on one job.
func buildAttemptOrder(priority, rest []candidate, rnd *rand.Rand) []candidate {
	shuffled := make([]candidate, len(rest))
	copy(shuffled, rest)
	rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	order := make([]candidate, 0, len(priority)+len(shuffled))
	order = append(order, priority...)
	order = append(order, shuffled...)
	return order
}

// attemptClaim performs the conditional update of spec.md §4.1 step 4. A
// zero matched-document count from UpdateByWhere means the race was lost;
// the caller treats that identically to any other non-2xx rejection.
func (e *Engine) attemptClaim(ctx context.Context, cand candidate) (*models.Job, error) {
	now := time.Now().UTC()
	collection := coordinator.JobCollection(cand.jobType)

	precondition := coordinator.And(
		coordinator.Eq("id", cand.job.ID),
		coordinator.Or(
			coordinator.FieldOp("claimed_by", coordinator.OpExists, false),
			coordinator.Eq("claimed_by", e.workerID),
			coordinator.FieldOp("claimed_at", coordinator.OpLessThanEqual, now.Add(-e.jobTimeout)),
		),
	)

	// Only claimedBy/claimedAt are touched here (spec.md §4.1 step 4); the
	// pending->in_progress transition, startedAt, and counter/total
	// initialization are the work-builder's responsibility (spec.md §4.2).
	patch := map[string]interface{}{
		"claimed_by": e.workerID,
		"claimed_at": now,
	}

	matched, err := e.client.UpdateByWhere(ctx, collection, coordinator.Query{Where: precondition, Limit: 1}, patch)
	if err != nil {
		return nil, err
	}
	if matched == 0 {
		return nil, &coordinator.StatusError{Op: "claim", StatusCode: 409, Body: "lease precondition failed"}
	}

	claimed := cand.job
	claimed.ClaimedBy = &e.workerID
	claimed.ClaimedAt = &now
	return &claimed, nil
}
