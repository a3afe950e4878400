// -----------------------------------------------------------------------
// Loop is the main worker loop (spec.md §4.6): authenticate, then
// repeatedly claim -> build -> handle -> submit, sleeping PollInterval
// between ticks whether the tick found work or not.
// -----------------------------------------------------------------------

package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/claim"
	"github.com/ternarybob/workdispatch/internal/common"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/events"
	"github.com/ternarybob/workdispatch/internal/heartbeat"
	"github.com/ternarybob/workdispatch/internal/models"
	"github.com/ternarybob/workdispatch/internal/submit"
)

// ErrNotActive is returned by Authenticate when the coordinator reports
// this worker's status as anything other than "active".
var ErrNotActive = errors.New("worker: account is not active")

// Drivers bundles the concrete driver/matcher instances every per-type
// dispatch needs; built once at startup and shared across ticks.
type Drivers struct {
	Crawl           *CrawlDrivers
	Discovery       *DiscoveryDrivers
	Ingredient      *IngredientDrivers
	VideoDiscovery  *VideoDiscoveryDrivers
	VideoProcessing *VideoProcessingDrivers
	Aggregation     *AggregationDrivers
}

// Loop owns one worker's identity and runs its polling cycle.
type Loop struct {
	Client     *coordinator.Client
	Config     *common.Config
	Logger     arbor.ILogger
	Claim      *claim.Engine
	Events     *events.Sink
	Watchdog   *heartbeat.Watchdog
	WorkerID   string
	Drivers    *Drivers
}

// Authenticate calls GET /api/me and rejects startup unless the
// coordinator reports this worker as active (spec.md §6 "the first call").
func (l *Loop) Authenticate(ctx context.Context) error {
	me, err := l.Client.Me(ctx)
	if err != nil {
		return err
	}
	if me.Status != "active" {
		return ErrNotActive
	}
	l.WorkerID = me.ID
	return nil
}

// Run drives the poll loop until ctx is cancelled. Every error in a tick
// is logged and followed by a PollInterval sleep, never a crash
// (spec.md §4.6 step 4).
func (l *Loop) Run(ctx context.Context) error {
	capabilities := parseCapabilities(l.Config.Worker.Capabilities)
	interval := l.Config.Worker.PollInterval()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := l.tick(ctx, capabilities); err != nil {
			if errors.Is(err, claim.ErrNoWork) {
				l.Logger.Debug().Msg("no work available")
			} else {
				l.Logger.Error().Err(err).Msg("tick failed")
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (l *Loop) tick(ctx context.Context, capabilities []models.JobType) error {
	job, err := l.Claim.Claim(ctx, capabilities)
	if err != nil {
		return err
	}

	l.Watchdog.Track(job.ID)
	defer l.Watchdog.Untrack(job.ID)

	jobRef := models.JobRef{Kind: job.Type, ID: job.ID}
	beater := heartbeat.New(l.Client, l.Logger, l.WorkerID, job.Type, job.ID)

	switch job.Type {
	case models.JobTypeCrawl:
		return l.runCrawl(ctx, job, jobRef, beater)
	case models.JobTypeDiscovery:
		return l.runDiscovery(ctx, job, jobRef, beater)
	case models.JobTypeIngredientDiscovery:
		return l.runIngredient(ctx, job, jobRef, beater)
	case models.JobTypeVideoDiscovery:
		return l.runVideoDiscovery(ctx, job, jobRef, beater)
	case models.JobTypeVideoProcessing:
		return l.runVideoProcessing(ctx, job, jobRef, beater)
	case models.JobTypeAggregation:
		return l.runAggregation(ctx, job, jobRef, beater)
	default:
		return errors.New("worker: unknown job type: " + string(job.Type))
	}
}

func parseCapabilities(names []string) []models.JobType {
	if len(names) == 0 {
		return models.AllJobTypes
	}
	out := make([]models.JobType, 0, len(names))
	for _, n := range names {
		out = append(out, models.JobType(n))
	}
	return out
}

// logOutcome is a small shared shim so tick() logging reads uniformly
// across all six dispatch paths.
func (l *Loop) logOutcome(job *models.Job, outcome submit.Outcome) {
	l.Logger.Info().
		Str("job_id", job.ID).
		Str("job_type", string(job.Type)).
		Int("succeeded", outcome.Succeeded).
		Int("failed", outcome.Failed).
		Bool("completed", outcome.Completed).
		Msg("tick finished")
}
