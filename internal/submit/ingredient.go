// -----------------------------------------------------------------------
// Ingredient persist (spec.md §4.4 "Ingredient persist"): upserts by
// name, filling in previously-null fields only, never overwriting.
// -----------------------------------------------------------------------

package submit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/builders"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/handlers"
	"github.com/ternarybob/workdispatch/internal/models"
)

type IngredientSubmit struct {
	Client *coordinator.Client
	Logger arbor.ILogger
}

func (s *IngredientSubmit) Apply(ctx context.Context, job *models.Job, results []handlers.IngredientResult) (Outcome, error) {
	succeeded, failed := 0, 0
	var cursor models.IngredientCursor
	models.DecodeCursor(job.Progress, &cursor)

	for _, r := range results {
		err := s.persistOne(ctx, r)
		if err != nil {
			failed++
		} else {
			succeeded++
		}
		if joinErr := writeJoinRecord(ctx, s.Client, job.ID, "ingredient_term", r.Term, err); joinErr != nil {
			s.Logger.Warn().Err(joinErr).Str("term", r.Term).Msg("failed to write join record")
		}

		if r.Failed() {
			continue
		}
		if r.ShouldSubdivide {
			cursor = builders.RequeueSubterms(cursor, r.Subterms)
		} else if r.Page < r.TotalPages {
			cursor.CurrentPage = r.Page + 1
		} else {
			cursor.CurrentTerm = ""
		}
	}

	done := cursor.CurrentTerm == "" && len(cursor.TermQueue) == 0
	return finalize(ctx, s.Client, s.Logger, job, succeeded, failed, models.EncodeCursor(cursor), done)
}

func (s *IngredientSubmit) persistOne(ctx context.Context, r handlers.IngredientResult) error {
	if r.Failed() {
		return errString(r.Err)
	}

	now := time.Now().UTC()
	for _, found := range r.Found {
		var existing []models.Ingredient
		if err := s.Client.Find(ctx, coordinator.CollectionIngredients, coordinator.Query{
			Where: coordinator.Eq("name", found.Name),
			Limit: 1,
		}, &existing); err != nil {
			return err
		}

		if len(existing) == 0 {
			ing := models.Ingredient{
				ID:          uuid.NewString(),
				Name:        found.Name,
				Description: found.Description,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.Client.Create(ctx, coordinator.CollectionIngredients, ing, "", "", nil, nil); err != nil {
				return err
			}
			continue
		}

		current := existing[0]
		if current.Description != "" {
			continue // never overwrite a previously-filled field
		}
		if err := s.Client.UpdateByID(ctx, coordinator.CollectionIngredients, current.ID, map[string]interface{}{
			"description": found.Description,
			"updated_at":  now,
		}, nil); err != nil {
			return err
		}
	}
	return nil
}
