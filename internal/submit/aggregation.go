// -----------------------------------------------------------------------
// Aggregation persist (spec.md §4.4 "Aggregation persist"): finds a
// product by its own gtin field (product variants are not consulted for
// the lookup), creates parent+variant if
// missing, merges source-product ids, enriches when scope=full, and
// always prepends a score-history entry labeled increase|stable|drop.
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

type AggregationSubmit struct {
	Client *coordinator.Client
	Logger arbor.ILogger
}

func (s *AggregationSubmit) Apply(ctx context.Context, job *models.Job, results []handlers.AggregationResult) (Outcome, error) {
	succeeded, failed := 0, 0
	var cursor models.AggregationCursor
	models.DecodeCursor(job.Progress, &cursor)

	// scope=selected_gtins processes a single fixed batch with no
	// cursor to resume - one tick always exhausts it.
	scope, _ := job.GetConfigString("scope")
	exhausted := scope == "selected_gtins"

	for _, r := range results {
		err := s.persistOne(ctx, r)
		if err != nil {
			failed++
		} else {
			succeeded++
			if !exhausted {
				cursor.LastCheckedSourceID = r.SourceProductID
			}
		}
		if joinErr := writeJoinRecord(ctx, s.Client, job.ID, "source_product", r.SourceProductID, err); joinErr != nil {
			s.Logger.Warn().Err(joinErr).Str("source_product_id", r.SourceProductID).Msg("failed to write join record")
		}
	}

	var nextCursor []byte
	if !exhausted {
		nextCursor = models.EncodeCursor(cursor)
	}
	return finalize(ctx, s.Client, s.Logger, job, succeeded, failed, nextCursor, exhausted)
}

func (s *AggregationSubmit) persistOne(ctx context.Context, r handlers.AggregationResult) error {
	if r.Failed() {
		return errString(r.Err)
	}
	sp := r.SourceProduct
	if sp.GTIN == "" {
		return errString("aggregation: source product has no GTIN to aggregate on")
	}

	now := time.Now().UTC()

	var products []models.Product
	if err := s.Client.Find(ctx, coordinator.CollectionProducts, coordinator.Query{
		Where: coordinator.Eq("gtin", sp.GTIN),
		Limit: 1,
	}, &products); err != nil {
		return err
	}

	var product models.Product
	isNew := len(products) == 0
	if isNew {
		product = models.Product{
			ID:               uuid.NewString(),
			GTIN:             sp.GTIN,
			Name:             sp.Name,
			SourceProductIDs: []string{sp.ID},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
	} else {
		product = products[0]
		if !containsString(product.SourceProductIDs, sp.ID) {
			product.SourceProductIDs = append(product.SourceProductIDs, sp.ID)
		}
		product.UpdatedAt = now
	}

	if r.Enrichment != nil {
		product.Brand = r.Enrichment.Brand
		product.Classification = r.Enrichment.Classification
	}

	storeScore, creatorScore := scoreFor(sp)
	trend := "stable"
	if len(product.ScoreHistory) > 0 {
		prev := product.ScoreHistory[0]
		switch {
		case storeScore+creatorScore > prev.StoreScore+prev.CreatorScore:
			trend = "increase"
		case storeScore+creatorScore < prev.StoreScore+prev.CreatorScore:
			trend = "drop"
		}
	}
	entry := models.ScoreHistoryEntry{StoreScore: storeScore, CreatorScore: creatorScore, Trend: trend, RecordedAt: now}
	product.ScoreHistory = append([]models.ScoreHistoryEntry{entry}, product.ScoreHistory...)

	if isNew {
		if err := s.Client.Create(ctx, coordinator.CollectionProducts, product, "", "", nil, nil); err != nil {
			return err
		}
		variant := models.ProductVariant{ID: uuid.NewString(), ParentID: product.ID, GTIN: product.GTIN, CreatedAt: now}
		return s.Client.Create(ctx, coordinator.CollectionProductVariant, variant, "", "", nil, nil)
	}

	return s.Client.UpdateByID(ctx, coordinator.CollectionProducts, product.ID, map[string]interface{}{
		"name":               product.Name,
		"brand":              product.Brand,
		"classification":     product.Classification,
		"source_product_ids": product.SourceProductIDs,
		"score_history":      product.ScoreHistory,
		"updated_at":         now,
	}, nil)
}

// scoreFor derives a store/creator score pair from a source-product's
// latest observations. The store score is the most recent price-history
// entry's price normalized to zero when unpriced; the creator score is
// currently a placeholder pending a mention-aggregation feed.
func scoreFor(sp *models.SourceProduct) (store, creator float64) {
	if len(sp.PriceHistory) > 0 {
		store = sp.PriceHistory[len(sp.PriceHistory)-1].Price
	}
	return store, 0
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
