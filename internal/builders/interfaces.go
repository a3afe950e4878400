package builders

import (
	"context"

	"github.com/ternarybob/workdispatch/internal/models"
)

// Builder transforms a claimed job into a batch of typed work items, or
// reports that the job is already complete (spec.md §4.2).
type Builder[T any] interface {
	Build(ctx context.Context, job *models.Job) (Batch[T], Outcome, error)
}
