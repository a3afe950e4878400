// -----------------------------------------------------------------------
// Ingredient-discovery builder (spec.md §4.2 "Ingredient-discovery").
// Cursor is {currentTerm, currentPage, totalPagesForTerm, termQueue};
// terms may recursively subdivide and are re-enqueued at termQueue's head.
// -----------------------------------------------------------------------

package builders

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/events"
	"github.com/ternarybob/workdispatch/internal/models"
)

// IngredientItem is one term/page pair to scan this tick.
type IngredientItem struct {
	Term string
	Page int
}

// IngredientBuilder implements Builder[IngredientItem].
type IngredientBuilder struct {
	Client *coordinator.Client
	Logger arbor.ILogger
	Events *events.Sink
}

var _ Builder[IngredientItem] = (*IngredientBuilder)(nil)

func (b *IngredientBuilder) Build(ctx context.Context, job *models.Job) (Batch[IngredientItem], Outcome, error) {
	seedTerms, _ := job.GetConfigStringSlice("seed_terms")

	if job.Status == models.JobStatusPending {
		if err := b.initPending(ctx, job, seedTerms); err != nil {
			return Batch[IngredientItem]{}, OutcomeBatch, err
		}
	}

	var cursor models.IngredientCursor
	if !models.DecodeCursor(job.Progress, &cursor) {
		cursor = models.IngredientCursor{TermQueue: seedTerms}
	}

	if cursor.CurrentTerm == "" {
		if len(cursor.TermQueue) == 0 {
			if err := b.complete(ctx, job); err != nil {
				return Batch[IngredientItem]{}, OutcomeBatch, err
			}
			return Done[IngredientItem](job.ID), OutcomeCompleted, nil
		}
		cursor.CurrentTerm, cursor.TermQueue = cursor.TermQueue[0], cursor.TermQueue[1:]
		cursor.CurrentPage = 1
		cursor.TotalPagesForTerm = 0
	}

	item := IngredientItem{Term: cursor.CurrentTerm, Page: cursor.CurrentPage}
	return Batch[IngredientItem]{
		JobID:  job.ID,
		Items:  []IngredientItem{item},
		Cursor: models.EncodeCursor(cursor),
	}, OutcomeBatch, nil
}

func (b *IngredientBuilder) initPending(ctx context.Context, job *models.Job, seedTerms []string) error {
	now := time.Now().UTC()
	total := len(seedTerms)
	if err := b.Client.UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
		"status":     models.JobStatusInProgress,
		"started_at": now,
		"total":      total,
		"progressed": 0,
		"errors":     0,
	}, nil); err != nil {
		return err
	}

	job.Status = models.JobStatusInProgress
	job.StartedAt = &now
	job.Total = total
	job.Progressed = 0
	job.Errors = 0
	if b.Events != nil {
		b.Events.Started(ctx, models.JobRef{Kind: job.Type, ID: job.ID}, "ingredient-discovery job started")
	}
	return nil
}

func (b *IngredientBuilder) complete(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	return b.Client.UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
		"status":       models.JobStatusCompleted,
		"completed_at": now,
	}, nil)
}

// RequeueSubterms pushes newly discovered sub-terms to the head of the
// term queue, called by ingredient submit when a term's result set
// signals it should recursively subdivide (e.g. "A" -> "AA","AB",...).
func RequeueSubterms(cursor models.IngredientCursor, subterms []string) models.IngredientCursor {
	cursor.CurrentTerm = ""
	cursor.TermQueue = append(append([]string{}, subterms...), cursor.TermQueue...)
	return cursor
}
