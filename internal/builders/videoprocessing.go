// -----------------------------------------------------------------------
// Video-processing builder (spec.md §4.2 "Video-processing"). No cursor:
// the work queue is derived each tick from unprocessed videos.
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

// VideoProcessingItem is one unprocessed video to transcribe and match.
type VideoProcessingItem struct {
	VideoID string
	URL     string
}

// VideoProcessingBuilder implements Builder[VideoProcessingItem].
type VideoProcessingBuilder struct {
	Client *coordinator.Client
	Logger arbor.ILogger
	Events *events.Sink
}

var _ Builder[VideoProcessingItem] = (*VideoProcessingBuilder)(nil)

func (b *VideoProcessingBuilder) Build(ctx context.Context, job *models.Job) (Batch[VideoProcessingItem], Outcome, error) {
	if job.Status == models.JobStatusPending {
		total, err := b.Client.Count(ctx, coordinator.CollectionVideos, unprocessedQuery())
		if err != nil {
			return Batch[VideoProcessingItem]{}, OutcomeBatch, err
		}
		now := time.Now().UTC()
		if err := b.Client.UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
			"status":     models.JobStatusInProgress,
			"started_at": now,
			"total":      total,
			"progressed": 0,
			"errors":     0,
		}, nil); err != nil {
			return Batch[VideoProcessingItem]{}, OutcomeBatch, err
		}

		job.Status = models.JobStatusInProgress
		job.StartedAt = &now
		job.Total = total
		job.Progressed = 0
		job.Errors = 0
		if b.Events != nil {
			b.Events.Started(ctx, models.JobRef{Kind: job.Type, ID: job.ID}, "video-processing job started")
		}
	}

	var videos []models.Video
	q := unprocessedQuery()
	q.Limit = job.ItemsPerTick
	if err := b.Client.Find(ctx, coordinator.CollectionVideos, q, &videos); err != nil {
		return Batch[VideoProcessingItem]{}, OutcomeBatch, err
	}

	if len(videos) == 0 {
		now := time.Now().UTC()
		if err := b.Client.UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
			"status":       models.JobStatusCompleted,
			"completed_at": now,
		}, nil); err != nil {
			return Batch[VideoProcessingItem]{}, OutcomeBatch, err
		}
		return Done[VideoProcessingItem](job.ID), OutcomeCompleted, nil
	}

	items := make([]VideoProcessingItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, VideoProcessingItem{VideoID: v.ID, URL: v.URL})
	}
	return Batch[VideoProcessingItem]{JobID: job.ID, Items: items}, OutcomeBatch, nil
}

func unprocessedQuery() coordinator.Query {
	return coordinator.Query{Where: coordinator.Eq("processed", false)}
}
