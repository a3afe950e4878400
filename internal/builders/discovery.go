// -----------------------------------------------------------------------
// Discovery builder (spec.md §4.2 "Discovery"). Cursor is
// {currentUrlIndex, driverProgress}; completion is currentUrlIndex >= len(sourceUrls).
// -----------------------------------------------------------------------

package builders

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/events"
	"github.com/ternarybob/workdispatch/internal/models"
)

// DiscoveryItem is one source URL to scan this tick, carrying the
// opaque driver-progress value from where the previous tick left off.
type DiscoveryItem struct {
	URLIndex       int
	URL            string
	DriverProgress []byte
}

// DiscoveryBuilder implements Builder[DiscoveryItem].
type DiscoveryBuilder struct {
	Client *coordinator.Client
	Logger arbor.ILogger
	Events *events.Sink
}

var _ Builder[DiscoveryItem] = (*DiscoveryBuilder)(nil)

func (b *DiscoveryBuilder) Build(ctx context.Context, job *models.Job) (Batch[DiscoveryItem], Outcome, error) {
	sourceURLs, _ := job.GetConfigStringSlice("source_urls")

	if job.Status == models.JobStatusPending {
		if err := b.initPending(ctx, job, len(sourceURLs)); err != nil {
			return Batch[DiscoveryItem]{}, OutcomeBatch, err
		}
	}

	var cursor models.DiscoveryCursor
	models.DecodeCursor(job.Progress, &cursor)

	if cursor.CurrentURLIndex >= len(sourceURLs) {
		if err := b.complete(ctx, job); err != nil {
			return Batch[DiscoveryItem]{}, OutcomeBatch, err
		}
		return Done[DiscoveryItem](job.ID), OutcomeCompleted, nil
	}

	item := DiscoveryItem{
		URLIndex:       cursor.CurrentURLIndex,
		URL:            sourceURLs[cursor.CurrentURLIndex],
		DriverProgress: cursor.DriverProgress,
	}
	return Batch[DiscoveryItem]{
		JobID:  job.ID,
		Items:  []DiscoveryItem{item},
		Cursor: job.Progress,
	}, OutcomeBatch, nil
}

func (b *DiscoveryBuilder) initPending(ctx context.Context, job *models.Job, total int) error {
	now := time.Now().UTC()
	cursor := models.EncodeCursor(models.DiscoveryCursor{CurrentURLIndex: 0})
	if err := b.Client.UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
		"status":     models.JobStatusInProgress,
		"started_at": now,
		"total":      total,
		"progressed": 0,
		"errors":     0,
		"progress":   cursor,
	}, nil); err != nil {
		return err
	}

	job.Status = models.JobStatusInProgress
	job.StartedAt = &now
	job.Total = total
	job.Progressed = 0
	job.Errors = 0
	job.Progress = cursor
	if b.Events != nil {
		b.Events.Started(ctx, models.JobRef{Kind: job.Type, ID: job.ID}, "discovery job started")
	}
	return nil
}

func (b *DiscoveryBuilder) complete(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	return b.Client.UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
		"status":       models.JobStatusCompleted,
		"completed_at": now,
	}, nil)
}
