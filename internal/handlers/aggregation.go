// -----------------------------------------------------------------------
// Aggregation handler: folds one crawled source-product into its logical
// Product, optionally enriching it via the LLM matcher when scope=full
// (spec.md §4.4 "Aggregation persist").
// -----------------------------------------------------------------------

package handlers

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/builders"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/drivers/llmmatch"
	"github.com/ternarybob/workdispatch/internal/heartbeat"
	"github.com/ternarybob/workdispatch/internal/models"
)

// AggregationResult is one source-product's fold outcome.
type AggregationResult struct {
	ItemResult
	SourceProductID string `validate:"required"`
	SourceProduct   *models.SourceProduct
	Enrichment      *llmmatch.Enrichment // nil unless enrichment ran (scope=full or full_enrich)
}

type AggregationHandler struct {
	Client     *coordinator.Client
	Matcher    *llmmatch.Matcher
	Beater     *heartbeat.Beater
	Logger     arbor.ILogger
	FullEnrich bool
}

var _ Handler[builders.AggregationItem, AggregationResult] = (*AggregationHandler)(nil)

func (h *AggregationHandler) Handle(ctx context.Context, batch builders.Batch[builders.AggregationItem]) ([]AggregationResult, error) {
	results := make([]AggregationResult, 0, len(batch.Items))
	for _, item := range batch.Items {
		var sp models.SourceProduct
		if err := h.Client.FindByID(ctx, coordinator.CollectionSourceProducts, item.SourceProductID, &sp); err != nil {
			results = append(results, AggregationResult{
				ItemResult:      ItemResult{Err: err.Error()},
				SourceProductID: item.SourceProductID,
			})
			h.Beater.Beat(ctx)
			continue
		}

		result := AggregationResult{SourceProductID: item.SourceProductID, SourceProduct: &sp}
		if h.FullEnrich {
			enrichment, err := h.Matcher.Enrich(ctx, sp.Name, sp.IngredientsRaw)
			if err != nil {
				h.Logger.Warn().Err(err).Str("source_product_id", sp.ID).Msg("aggregation enrichment failed, continuing without it")
			} else {
				result.Enrichment = enrichment
			}
		}
		if err := coordinator.Validate(result); err != nil {
			results = append(results, AggregationResult{ItemResult: ItemResult{Err: err.Error()}, SourceProductID: item.SourceProductID})
			h.Beater.Beat(ctx)
			continue
		}
		results = append(results, result)
		h.Beater.Beat(ctx)
	}
	return results, nil
}
