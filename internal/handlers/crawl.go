package handlers

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/builders"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	crawldriver "github.com/ternarybob/workdispatch/internal/drivers/crawl"
	"github.com/ternarybob/workdispatch/internal/heartbeat"
)

// CrawlResult is one crawled variant's outcome.
type CrawlResult struct {
	ItemResult
	VariantID string `validate:"required"`
	Fetched   *crawldriver.Result
}

// CrawlHandler implements Handler[CrawlItem, CrawlResult].
type CrawlHandler struct {
	Driver *crawldriver.Driver
	Beater *heartbeat.Beater
	Logger arbor.ILogger
}

var _ Handler[builders.CrawlItem, CrawlResult] = (*CrawlHandler)(nil)

func (h *CrawlHandler) Handle(ctx context.Context, batch builders.Batch[builders.CrawlItem]) ([]CrawlResult, error) {
	results := make([]CrawlResult, 0, len(batch.Items))
	for _, item := range batch.Items {
		fetched, err := h.Driver.Fetch(ctx, item.URL)
		if err != nil {
			results = append(results, CrawlResult{
				ItemResult: ItemResult{Err: err.Error()},
				VariantID:  item.VariantID,
			})
			h.Beater.Beat(ctx)
			continue
		}
		result := CrawlResult{VariantID: item.VariantID, Fetched: fetched}
		if err := coordinator.Validate(result); err != nil {
			results = append(results, CrawlResult{ItemResult: ItemResult{Err: err.Error()}, VariantID: item.VariantID})
			h.Beater.Beat(ctx)
			continue
		}
		results = append(results, result)
		h.Beater.Beat(ctx)
	}
	return results, nil
}
