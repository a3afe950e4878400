// -----------------------------------------------------------------------
// Aggregation builder (spec.md §4.2 "Aggregation"). Cursor is
// lastCheckedSourceId for type=all (a monotonic scan grouping by GTIN);
// type=selected_gtins has a fixed scope processed in one tick.
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

// AggregationItem is one crawled source-product to fold into its Product.
type AggregationItem struct {
	SourceProductID string
}

// AggregationBuilder implements Builder[AggregationItem].
type AggregationBuilder struct {
	Client *coordinator.Client
	Logger arbor.ILogger
	Events *events.Sink
}

var _ Builder[AggregationItem] = (*AggregationBuilder)(nil)

func (b *AggregationBuilder) Build(ctx context.Context, job *models.Job) (Batch[AggregationItem], Outcome, error) {
	scope, _ := job.GetConfigString("scope")
	if scope == "" {
		scope = "all"
	}

	if job.Status == models.JobStatusPending {
		if err := b.initPending(ctx, job, scope); err != nil {
			return Batch[AggregationItem]{}, OutcomeBatch, err
		}
	}

	if scope == "selected_gtins" {
		return b.buildFixedScope(ctx, job)
	}
	return b.buildScanningScope(ctx, job)
}

func (b *AggregationBuilder) buildFixedScope(ctx context.Context, job *models.Job) (Batch[AggregationItem], Outcome, error) {
	gtins, _ := job.GetConfigStringSlice("selected_gtins")
	if len(gtins) == 0 {
		if err := b.complete(ctx, job); err != nil {
			return Batch[AggregationItem]{}, OutcomeBatch, err
		}
		return Done[AggregationItem](job.ID), OutcomeCompleted, nil
	}

	var products []models.SourceProduct
	if err := b.Client.Find(ctx, coordinator.CollectionSourceProducts, coordinator.Query{
		Where: coordinator.And(
			coordinator.FieldOp("gtin", coordinator.OpIn, gtins),
			coordinator.Eq("crawled", "crawled"),
		),
		Limit: job.ItemsPerTick,
	}, &products); err != nil {
		return Batch[AggregationItem]{}, OutcomeBatch, err
	}
	if len(products) == 0 {
		if err := b.complete(ctx, job); err != nil {
			return Batch[AggregationItem]{}, OutcomeBatch, err
		}
		return Done[AggregationItem](job.ID), OutcomeCompleted, nil
	}

	items := make([]AggregationItem, 0, len(products))
	for _, p := range products {
		items = append(items, AggregationItem{SourceProductID: p.ID})
	}
	return Batch[AggregationItem]{JobID: job.ID, Items: items}, OutcomeBatch, nil
}

func (b *AggregationBuilder) buildScanningScope(ctx context.Context, job *models.Job) (Batch[AggregationItem], Outcome, error) {
	var cursor models.AggregationCursor
	models.DecodeCursor(job.Progress, &cursor)

	where := coordinator.And(
		coordinator.Eq("crawled", "crawled"),
		coordinator.FieldOp("id", coordinator.OpGreaterThan, cursor.LastCheckedSourceID),
	)

	var products []models.SourceProduct
	if err := b.Client.Find(ctx, coordinator.CollectionSourceProducts, coordinator.Query{
		Where: where,
		Limit: job.ItemsPerTick,
		Sort:  "id",
	}, &products); err != nil {
		return Batch[AggregationItem]{}, OutcomeBatch, err
	}

	if len(products) == 0 {
		if err := b.complete(ctx, job); err != nil {
			return Batch[AggregationItem]{}, OutcomeBatch, err
		}
		return Done[AggregationItem](job.ID), OutcomeCompleted, nil
	}

	items := make([]AggregationItem, 0, len(products))
	for _, p := range products {
		items = append(items, AggregationItem{SourceProductID: p.ID})
	}
	nextCursor := models.EncodeCursor(models.AggregationCursor{LastCheckedSourceID: products[len(products)-1].ID})
	return Batch[AggregationItem]{JobID: job.ID, Items: items, Cursor: nextCursor}, OutcomeBatch, nil
}

func (b *AggregationBuilder) initPending(ctx context.Context, job *models.Job, scope string) error {
	now := time.Now().UTC()
	total := 0
	if scope == "selected_gtins" {
		gtins, _ := job.GetConfigStringSlice("selected_gtins")
		total = len(gtins)
	} else {
		n, err := b.Client.Count(ctx, coordinator.CollectionSourceProducts, coordinator.Query{Where: coordinator.Eq("crawled", "crawled")})
		if err != nil {
			return err
		}
		total = n
	}
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
		b.Events.Started(ctx, models.JobRef{Kind: job.Type, ID: job.ID}, "aggregation job started")
	}
	return nil
}

func (b *AggregationBuilder) complete(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	return b.Client.UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
		"status":       models.JobStatusCompleted,
		"completed_at": now,
	}, nil)
}
