// -----------------------------------------------------------------------
// Video-discovery builder (spec.md §4.2 "Video-discovery"). Cursor is a
// single channel-relative offset; each tick fetches [offset+1, offset+itemsPerTick].
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

// VideoDiscoveryItem is one page of a channel's video listing to fetch.
type VideoDiscoveryItem struct {
	ChannelID string
	Offset    int
	Limit     int
}

// VideoDiscoveryBuilder implements Builder[VideoDiscoveryItem].
type VideoDiscoveryBuilder struct {
	Client *coordinator.Client
	Logger arbor.ILogger
	Events *events.Sink
}

var _ Builder[VideoDiscoveryItem] = (*VideoDiscoveryBuilder)(nil)

func (b *VideoDiscoveryBuilder) Build(ctx context.Context, job *models.Job) (Batch[VideoDiscoveryItem], Outcome, error) {
	channelID, _ := job.GetConfigString("channel_id")
	maxVideos, hasMax := job.GetConfigInt("max_videos")

	if job.Status == models.JobStatusPending {
		if err := b.initPending(ctx, job); err != nil {
			return Batch[VideoDiscoveryItem]{}, OutcomeBatch, err
		}
	}

	var cursor models.VideoDiscoveryCursor
	models.DecodeCursor(job.Progress, &cursor)

	if hasMax && cursor.CurrentOffset >= maxVideos {
		if err := b.complete(ctx, job); err != nil {
			return Batch[VideoDiscoveryItem]{}, OutcomeBatch, err
		}
		return Done[VideoDiscoveryItem](job.ID), OutcomeCompleted, nil
	}

	item := VideoDiscoveryItem{
		ChannelID: channelID,
		Offset:    cursor.CurrentOffset,
		Limit:     job.ItemsPerTick,
	}
	return Batch[VideoDiscoveryItem]{
		JobID:  job.ID,
		Items:  []VideoDiscoveryItem{item},
		Cursor: job.Progress,
	}, OutcomeBatch, nil
}

func (b *VideoDiscoveryBuilder) initPending(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	cursor := models.EncodeCursor(models.VideoDiscoveryCursor{CurrentOffset: 0})
	if err := b.Client.UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
		"status":     models.JobStatusInProgress,
		"started_at": now,
		"total":      0, // video-discovery's total is unknown until the channel is exhausted
		"progressed": 0,
		"errors":     0,
		"progress":   cursor,
	}, nil); err != nil {
		return err
	}

	job.Status = models.JobStatusInProgress
	job.StartedAt = &now
	job.Total = 0
	job.Progressed = 0
	job.Errors = 0
	job.Progress = cursor
	if b.Events != nil {
		b.Events.Started(ctx, models.JobRef{Kind: job.Type, ID: job.ID}, "video-discovery job started")
	}
	return nil
}

func (b *VideoDiscoveryBuilder) complete(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	return b.Client.UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
		"status":       models.JobStatusCompleted,
		"completed_at": now,
	}, nil)
}
