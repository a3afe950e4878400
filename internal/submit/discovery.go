// -----------------------------------------------------------------------
// Discovery persist (spec.md §4.4 "Discovery persist"): dedupes by
// variant URL, creates parent+default-variant together if the URL is new,
// else updates the existing parent.
// -----------------------------------------------------------------------

package submit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/handlers"
	"github.com/ternarybob/workdispatch/internal/models"
)

type DiscoverySubmit struct {
	Client *coordinator.Client
	Logger arbor.ILogger
	Source string
}

func (s *DiscoverySubmit) Apply(ctx context.Context, job *models.Job, results []handlers.DiscoveryResult, sourceURLCount int) (Outcome, error) {
	succeeded, failed := 0, 0
	var lastCursor []byte
	nextIndex := 0

	for _, r := range results {
		err := s.persistOne(ctx, r)
		if err != nil {
			failed++
		} else {
			succeeded++
		}
		if joinErr := writeJoinRecord(ctx, s.Client, job.ID, "discovery_url", strconv.Itoa(r.URLIndex), err); joinErr != nil {
			s.Logger.Warn().Err(joinErr).Int("url_index", r.URLIndex).Msg("failed to write join record")
		}
		if r.NextProgress != nil {
			lastCursor = r.NextProgress
		}
		nextIndex = r.URLIndex + 1
	}

	cursor := models.EncodeCursor(models.DiscoveryCursor{CurrentURLIndex: nextIndex, DriverProgress: lastCursor})
	exhausted := nextIndex >= sourceURLCount
	return finalize(ctx, s.Client, s.Logger, job, succeeded, failed, cursor, exhausted)
}

func (s *DiscoverySubmit) persistOne(ctx context.Context, r handlers.DiscoveryResult) error {
	if r.Failed() {
		return errString(r.Err)
	}

	now := time.Now().UTC()
	for _, v := range r.Variants {
		var existing []models.SourceVariant
		if err := s.Client.Find(ctx, coordinator.CollectionSourceVariants, coordinator.Query{
			Where: coordinator.Eq("url", v.URL),
			Limit: 1,
		}, &existing); err != nil {
			return err
		}

		if len(existing) > 0 {
			if v.GTIN != "" {
				if err := s.Client.UpdateByID(ctx, coordinator.CollectionSourceProducts, existing[0].ParentID, map[string]interface{}{
					"gtin": v.GTIN,
				}, nil); err != nil {
					return err
				}
			}
			continue
		}

		parentID := uuid.NewString()
		parent := models.SourceProduct{
			ID:        parentID,
			Source:    s.Source,
			GTIN:      v.GTIN,
			Crawled:   "uncrawled",
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.Client.Create(ctx, coordinator.CollectionSourceProducts, parent, "", "", nil, nil); err != nil {
			return err
		}

		variant := models.SourceVariant{
			ID:        uuid.NewString(),
			ParentID:  parentID,
			URL:       v.URL,
			GTIN:      v.GTIN,
			CreatedAt: now,
		}
		if err := s.Client.Create(ctx, coordinator.CollectionSourceVariants, variant, "", "", nil, nil); err != nil {
			return err
		}
	}
	return nil
}
