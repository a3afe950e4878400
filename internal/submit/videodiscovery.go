// -----------------------------------------------------------------------
// Video-discovery persist (spec.md §4.4 "Video-discovery persist"):
// creates the creator->channel->video chain, always refreshes the channel
// avatar, and for each new video fetches its thumbnail and records a Media
// entry (filename, MIME type, size, source URL). The thumbnail bytes are
// not uploaded to the coordinator.
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

type VideoDiscoverySubmit struct {
	Client *coordinator.Client
	Logger arbor.ILogger
	MediaFetcher MediaFetcher
}

// MediaFetcher downloads a thumbnail image and reports the metadata
// recorded in its Media entity; the image bytes are not returned.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (filename, mimeType string, sizeBytes int64, err error)
}

func (s *VideoDiscoverySubmit) Apply(ctx context.Context, job *models.Job, results []handlers.VideoDiscoveryResult, maxOffset int) (Outcome, error) {
	succeeded, failed := 0, 0
	var cursor models.VideoDiscoveryCursor
	models.DecodeCursor(job.Progress, &cursor)
	endOfChannel := false

	for _, r := range results {
		err := s.persistOne(ctx, job, r)
		if err != nil {
			failed++
		} else {
			succeeded++
			cursor.CurrentOffset += len(r.Videos)
			endOfChannel = endOfChannel || r.EndOfChannel
		}
		if joinErr := writeJoinRecord(ctx, s.Client, job.ID, "video_discovery_page", r.ChannelID, err); joinErr != nil {
			s.Logger.Warn().Err(joinErr).Str("channel_id", r.ChannelID).Msg("failed to write join record")
		}
	}

	exhausted := endOfChannel || (maxOffset > 0 && cursor.CurrentOffset >= maxOffset)
	return finalize(ctx, s.Client, s.Logger, job, succeeded, failed, models.EncodeCursor(cursor), exhausted)
}

func (s *VideoDiscoverySubmit) persistOne(ctx context.Context, job *models.Job, r handlers.VideoDiscoveryResult) error {
	if r.Failed() {
		return errString(r.Err)
	}

	now := time.Now().UTC()

	var channels []models.Channel
	if err := s.Client.Find(ctx, coordinator.CollectionChannels, coordinator.Query{
		Where: coordinator.Eq("external_id", r.ChannelID),
		Limit: 1,
	}, &channels); err != nil {
		return err
	}

	var channelID string
	if len(channels) == 0 {
		creatorID := uuid.NewString()
		creator := models.Creator{ID: creatorID, Name: r.ChannelName, CreatedAt: now}
		if err := s.Client.Create(ctx, coordinator.CollectionCreators, creator, "", "", nil, nil); err != nil {
			return err
		}
		channelID = uuid.NewString()
		channel := models.Channel{
			ID:         channelID,
			CreatorID:  creatorID,
			ExternalID: r.ChannelID,
			Name:       r.ChannelName,
			AvatarURL:  r.AvatarURL,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.Client.Create(ctx, coordinator.CollectionChannels, channel, "", "", nil, nil); err != nil {
			return err
		}
	} else {
		channelID = channels[0].ID
		if err := s.Client.UpdateByID(ctx, coordinator.CollectionChannels, channelID, map[string]interface{}{
			"avatar_url": r.AvatarURL,
			"updated_at": now,
		}, nil); err != nil {
			return err
		}
	}

	for _, v := range r.Videos {
		var existing []models.Video
		if err := s.Client.Find(ctx, coordinator.CollectionVideos, coordinator.Query{
			Where: coordinator.Eq("external_id", v.ExternalID),
			Limit: 1,
		}, &existing); err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}

		video := models.Video{
			ID:           uuid.NewString(),
			ChannelID:    channelID,
			ExternalID:   v.ExternalID,
			Title:        v.Title,
			URL:          v.URL,
			ThumbnailURL: v.ThumbnailURL,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.Client.Create(ctx, coordinator.CollectionVideos, video, "", "", nil, nil); err != nil {
			return err
		}

		if s.MediaFetcher != nil && v.ThumbnailURL != "" {
			filename, mimeType, sizeBytes, err := s.MediaFetcher.Fetch(ctx, v.ThumbnailURL)
			if err != nil {
				s.Logger.Warn().Err(err).Str("url", v.ThumbnailURL).Msg("video-discovery submit: thumbnail fetch failed")
				continue
			}
			media := models.Media{ID: uuid.NewString(), Filename: filename, MimeType: mimeType, SizeBytes: sizeBytes, URL: v.ThumbnailURL, CreatedAt: now}
			if err := s.Client.Create(ctx, coordinator.CollectionMedia, media, "", "", nil, nil); err != nil {
				s.Logger.Warn().Err(err).Str("video_id", video.ID).Msg("video-discovery submit: failed to store thumbnail media record")
			}
		}
	}
	return nil
}
