package handlers

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/builders"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	ingredientdriver "github.com/ternarybob/workdispatch/internal/drivers/ingredient"
	"github.com/ternarybob/workdispatch/internal/heartbeat"
)

// IngredientResult is one term/page scan's outcome.
type IngredientResult struct {
	ItemResult
	Term            string `validate:"required"`
	Page            int    `validate:"gte=1"`
	Found           []ingredientdriver.Found
	TotalPages      int
	ShouldSubdivide bool
	Subterms        []string
}

type IngredientHandler struct {
	Driver *ingredientdriver.Driver
	Beater *heartbeat.Beater
	Logger arbor.ILogger
}

var _ Handler[builders.IngredientItem, IngredientResult] = (*IngredientHandler)(nil)

func (h *IngredientHandler) Handle(ctx context.Context, batch builders.Batch[builders.IngredientItem]) ([]IngredientResult, error) {
	results := make([]IngredientResult, 0, len(batch.Items))
	for _, item := range batch.Items {
		scan, err := h.Driver.Scan(ctx, item.Term, item.Page)
		if err != nil {
			results = append(results, IngredientResult{
				ItemResult: ItemResult{Err: err.Error()},
				Term:       item.Term,
				Page:       item.Page,
			})
			h.Beater.Beat(ctx)
			continue
		}
		result := IngredientResult{
			Term:            item.Term,
			Page:            item.Page,
			Found:           scan.Ingredients,
			TotalPages:      scan.TotalPages,
			ShouldSubdivide: scan.ShouldSubdivide,
			Subterms:        scan.Subterms,
		}
		if err := coordinator.Validate(result); err != nil {
			results = append(results, IngredientResult{ItemResult: ItemResult{Err: err.Error()}, Term: item.Term, Page: item.Page})
			h.Beater.Beat(ctx)
			continue
		}
		results = append(results, result)
		h.Beater.Beat(ctx)
	}
	return results, nil
}
