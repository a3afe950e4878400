// -----------------------------------------------------------------------
// Video-processing persist (spec.md §4.4 "Video-processing persist"):
// deletes prior snippets for the video (re-processing semantics), creates
// new snippets + per-product mentions, and marks the video processed.
// -----------------------------------------------------------------------

package submit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/handlers"
	"github.com/ternarybob/workdispatch/internal/models"
)

type VideoProcessingSubmit struct {
	Client *coordinator.Client
	Logger arbor.ILogger
}

func (s *VideoProcessingSubmit) Apply(ctx context.Context, job *models.Job, results []handlers.VideoProcessingResult) (Outcome, error) {
	succeeded, failed := 0, 0

	for _, r := range results {
		err := s.persistOne(ctx, r)
		if err != nil {
			failed++
		} else {
			succeeded++
		}
		if joinErr := writeJoinRecord(ctx, s.Client, job.ID, "video", r.VideoID, err); joinErr != nil {
			s.Logger.Warn().Err(joinErr).Str("video_id", r.VideoID).Msg("failed to write join record")
		}
	}

	// video-processing has no cursor: completion is driven purely by the
	// builder finding zero unprocessed videos on the next tick.
	return finalize(ctx, s.Client, s.Logger, job, succeeded, failed, nil, false)
}

func (s *VideoProcessingSubmit) persistOne(ctx context.Context, r handlers.VideoProcessingResult) error {
	if r.Failed() {
		return errString(r.Err)
	}

	var priorSnippets []models.Snippet
	if err := s.Client.Find(ctx, coordinator.CollectionSnippets, coordinator.Query{
		Where: coordinator.Eq("video_id", r.VideoID),
	}, &priorSnippets); err != nil {
		return err
	}
	for _, prior := range priorSnippets {
		if err := s.Client.Delete(ctx, coordinator.CollectionSnippets, prior.ID); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for _, m := range r.Mentions {
		snippetID := uuid.NewString()
		snippet := models.Snippet{
			ID:        snippetID,
			VideoID:   r.VideoID,
			StartSec:  m.StartSec,
			EndSec:    m.EndSec,
			Text:      m.Text,
			CreatedAt: now,
		}
		if err := s.Client.Create(ctx, coordinator.CollectionSnippets, snippet, "", "", nil, nil); err != nil {
			return err
		}

		mention := models.ProductMention{
			ID:         uuid.NewString(),
			SnippetID:  snippetID,
			ProductID:  m.ProductID,
			Sentiment:  m.Sentiment,
			Confidence: m.Confidence,
			CreatedAt:  now,
		}
		if err := s.Client.Create(ctx, coordinator.CollectionMentions, mention, "", "", nil, nil); err != nil {
			return err
		}
	}

	return s.Client.UpdateByID(ctx, coordinator.CollectionVideos, r.VideoID, map[string]interface{}{
		"processed":  true,
		"updated_at": now,
	}, nil)
}
