package handlers

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/builders"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	videodriver "github.com/ternarybob/workdispatch/internal/drivers/video"
	"github.com/ternarybob/workdispatch/internal/heartbeat"
)

// VideoDiscoveryResult is one channel page's outcome.
type VideoDiscoveryResult struct {
	ItemResult
	ChannelID    string `validate:"required"`
	Videos       []videodriver.ListedVideo
	EndOfChannel bool
	ChannelName  string
	AvatarURL    string
}

type VideoDiscoveryHandler struct {
	Driver *videodriver.Driver
	Beater *heartbeat.Beater
	Logger arbor.ILogger
}

var _ Handler[builders.VideoDiscoveryItem, VideoDiscoveryResult] = (*VideoDiscoveryHandler)(nil)

func (h *VideoDiscoveryHandler) Handle(ctx context.Context, batch builders.Batch[builders.VideoDiscoveryItem]) ([]VideoDiscoveryResult, error) {
	results := make([]VideoDiscoveryResult, 0, len(batch.Items))
	for _, item := range batch.Items {
		page, err := h.Driver.ListPage(ctx, item.ChannelID, item.Offset, item.Limit)
		if err != nil {
			results = append(results, VideoDiscoveryResult{
				ItemResult: ItemResult{Err: err.Error()},
				ChannelID:  item.ChannelID,
			})
			h.Beater.Beat(ctx)
			continue
		}
		result := VideoDiscoveryResult{
			ChannelID:    item.ChannelID,
			Videos:       page.Videos,
			EndOfChannel: page.EndOfChannel,
			ChannelName:  page.ChannelName,
			AvatarURL:    page.AvatarURL,
		}
		if err := coordinator.Validate(result); err != nil {
			results = append(results, VideoDiscoveryResult{ItemResult: ItemResult{Err: err.Error()}, ChannelID: item.ChannelID})
			h.Beater.Beat(ctx)
			continue
		}
		results = append(results, result)
		h.Beater.Beat(ctx)
	}
	return results, nil
}
