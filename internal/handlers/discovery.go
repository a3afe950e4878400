package handlers

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/builders"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	discoverydriver "github.com/ternarybob/workdispatch/internal/drivers/discovery"
	"github.com/ternarybob/workdispatch/internal/heartbeat"
)

// DiscoveryResult is one scanned URL's outcome, carrying the driver's
// updated pagination progress back up through the next cursor.
type DiscoveryResult struct {
	ItemResult
	URLIndex    int `validate:"gte=0"`
	Variants    []discoverydriver.FoundVariant
	NextProgress json.RawMessage
}

type DiscoveryHandler struct {
	Driver *discoverydriver.Driver
	Beater *heartbeat.Beater
	Logger arbor.ILogger
}

var _ Handler[builders.DiscoveryItem, DiscoveryResult] = (*DiscoveryHandler)(nil)

func (h *DiscoveryHandler) Handle(ctx context.Context, batch builders.Batch[builders.DiscoveryItem]) ([]DiscoveryResult, error) {
	results := make([]DiscoveryResult, 0, len(batch.Items))
	for _, item := range batch.Items {
		scan, err := h.Driver.Scan(ctx, item.URL, item.DriverProgress)
		if err != nil {
			results = append(results, DiscoveryResult{
				ItemResult: ItemResult{Err: err.Error()},
				URLIndex:   item.URLIndex,
			})
			h.Beater.Beat(ctx)
			continue
		}
		result := DiscoveryResult{
			URLIndex:     item.URLIndex,
			Variants:     scan.Variants,
			NextProgress: scan.Progress,
		}
		if err := coordinator.Validate(result); err != nil {
			results = append(results, DiscoveryResult{ItemResult: ItemResult{Err: err.Error()}, URLIndex: item.URLIndex})
			h.Beater.Beat(ctx)
			continue
		}
		results = append(results, result)
		h.Beater.Beat(ctx)
	}
	return results, nil
}
