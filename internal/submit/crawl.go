// -----------------------------------------------------------------------
// Crawl persist (spec.md §4.4 "Crawl persist"): updates the parent
// source-product with scraped fields, appends a price-history entry
// (never replaces), updates the variant's crawledAt and canonical URL,
// creates sibling variants the driver discovered, and defers the parent's
// crawled status while any sibling is still uncrawled.
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

type CrawlSubmit struct {
	Client *coordinator.Client
	Logger arbor.ILogger
}

func (s *CrawlSubmit) Apply(ctx context.Context, job *models.Job, results []handlers.CrawlResult) (Outcome, error) {
	succeeded, failed := 0, 0

	for _, r := range results {
		err := s.persistOne(ctx, job.ID, r)
		if err != nil {
			failed++
		} else {
			succeeded++
		}
		if joinErr := writeJoinRecord(ctx, s.Client, job.ID, "source_variant", r.VariantID, err); joinErr != nil {
			s.Logger.Warn().Err(joinErr).Str("variant_id", r.VariantID).Msg("failed to write join record")
		}
	}

	return finalize(ctx, s.Client, s.Logger, job, succeeded, failed, nil, false)
}

func (s *CrawlSubmit) persistOne(ctx context.Context, jobID string, r handlers.CrawlResult) error {
	if r.Failed() {
		return errString(r.Err)
	}

	var variant models.SourceVariant
	if err := s.Client.FindByID(ctx, coordinator.CollectionSourceVariants, r.VariantID, &variant); err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := s.Client.UpdateByID(ctx, coordinator.CollectionSourceVariants, r.VariantID, map[string]interface{}{
		"crawled_at":    now,
		"canonical_url": r.Fetched.CanonicalURL,
	}, nil); err != nil {
		return err
	}

	var parent models.SourceProduct
	if err := s.Client.FindByID(ctx, coordinator.CollectionSourceProducts, variant.ParentID, &parent); err != nil {
		return err
	}

	priceEntry := models.PriceHistoryEntry{
		Price:      r.Fetched.Price,
		Currency:   r.Fetched.Currency,
		ObservedAt: now,
		SourceURL:  r.Fetched.CanonicalURL,
	}
	patch := map[string]interface{}{
		"name":            r.Fetched.Name,
		"ingredients_raw": r.Fetched.IngredientsRaw,
		"price_history":   append(parent.PriceHistory, priceEntry),
		"updated_at":      now,
	}
	if r.Fetched.GTIN != "" {
		patch["gtin"] = r.Fetched.GTIN
	}
	if err := s.Client.UpdateByID(ctx, coordinator.CollectionSourceProducts, parent.ID, patch, nil); err != nil {
		return err
	}

	for _, siblingURL := range r.Fetched.SiblingURLs {
		var existing []models.SourceVariant
		if err := s.Client.Find(ctx, coordinator.CollectionSourceVariants, coordinator.Query{
			Where: coordinator.Eq("url", siblingURL),
			Limit: 1,
		}, &existing); err == nil && len(existing) == 0 {
			sibling := models.SourceVariant{
				ID:        uuid.NewString(),
				ParentID:  parent.ID,
				URL:       siblingURL,
				CreatedAt: now,
			}
			if err := s.Client.Create(ctx, coordinator.CollectionSourceVariants, sibling, "", "", nil, nil); err != nil {
				s.Logger.Warn().Err(err).Str("url", siblingURL).Msg("crawl submit: failed to create sibling variant")
			}
		}
	}

	return s.updateParentCrawledStatus(ctx, parent.ID)
}

// updateParentCrawledStatus defers the parent's crawled status while any
// sibling variant is still uncrawled.
func (s *CrawlSubmit) updateParentCrawledStatus(ctx context.Context, parentID string) error {
	var siblings []models.SourceVariant
	if err := s.Client.Find(ctx, coordinator.CollectionSourceVariants, coordinator.Query{
		Where: coordinator.Eq("parent_id", parentID),
	}, &siblings); err != nil {
		return err
	}

	status := "crawled"
	for _, sibling := range siblings {
		if sibling.CrawledAt == nil {
			status = "partial"
			break
		}
	}
	return s.Client.UpdateByID(ctx, coordinator.CollectionSourceProducts, parentID, map[string]interface{}{
		"crawled": status,
	}, nil)
}

type errString string

func (e errString) Error() string { return string(e) }
