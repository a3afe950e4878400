// -----------------------------------------------------------------------
// Crawl builder (spec.md §4.2 "Crawl"). No explicit cursor: the implicit
// work queue is "variants whose crawled_at is unset", filtered by scope,
// and itemsPerTick of them are claimed each tick by query alone. The
// parent source-product's crawled status is not part of the query.
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

// CrawlItem is one source-variant to crawl.
type CrawlItem struct {
	VariantID    string
	ParentID     string
	URL          string
	CrawledCount int // how many times this variant has been crawled before
}

// CrawlBuilder implements Builder[CrawlItem].
type CrawlBuilder struct {
	Client *coordinator.Client
	Logger arbor.ILogger
	Events *events.Sink
}

var _ Builder[CrawlItem] = (*CrawlBuilder)(nil)

func (b *CrawlBuilder) Build(ctx context.Context, job *models.Job) (Batch[CrawlItem], Outcome, error) {
	scope, _ := job.GetConfigString("scope")
	if scope == "" {
		scope = "all"
	}

	if job.Status == models.JobStatusPending {
		if err := b.initPending(ctx, job, scope); err != nil {
			return Batch[CrawlItem]{}, OutcomeBatch, err
		}
	}

	if scope == "recrawl" {
		if err := b.applyRecrawlReset(ctx, job); err != nil {
			return Batch[CrawlItem]{}, OutcomeBatch, err
		}
	}

	variants, err := b.nextUncrawled(ctx, job, scope)
	if err != nil {
		return Batch[CrawlItem]{}, OutcomeBatch, err
	}

	if len(variants) == 0 {
		if err := b.complete(ctx, job); err != nil {
			return Batch[CrawlItem]{}, OutcomeBatch, err
		}
		return Done[CrawlItem](job.ID), OutcomeCompleted, nil
	}

	items := make([]CrawlItem, 0, len(variants))
	for _, v := range variants {
		items = append(items, CrawlItem{VariantID: v.ID, ParentID: v.ParentID, URL: v.URL})
	}
	return Batch[CrawlItem]{JobID: job.ID, Items: items}, OutcomeBatch, nil
}

func (b *CrawlBuilder) initPending(ctx context.Context, job *models.Job, scope string) error {
	now := time.Now().UTC()
	total, err := b.client().Count(ctx, coordinator.CollectionSourceVariants, scopeQuery(job, scope))
	if err != nil {
		return err
	}
	patch := map[string]interface{}{
		"status":     models.JobStatusInProgress,
		"started_at": now,
		"total":      total,
		"progressed": 0,
		"errors":     0,
	}
	if err := b.client().UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, patch, nil); err != nil {
		return err
	}

	job.Status = models.JobStatusInProgress
	job.StartedAt = &now
	job.Total = total
	job.Progressed = 0
	job.Errors = 0
	if b.Events != nil {
		b.Events.Started(ctx, models.JobRef{Kind: job.Type, ID: job.ID}, "crawl job started")
	}
	return nil
}

// applyRecrawlReset resets previously-crawled variants back to uncrawled,
// optionally filtered by minCrawlAge, per spec.md §4.2 "scope = recrawl".
func (b *CrawlBuilder) applyRecrawlReset(ctx context.Context, job *models.Job) error {
	where := coordinator.FieldOp("crawled_at", coordinator.OpExists, true)
	if minAge, ok := job.GetConfigString("min_crawl_age"); ok && minAge != "" {
		if d, err := time.ParseDuration(minAge); err == nil {
			cutoff := time.Now().UTC().Add(-d)
			where = coordinator.And(where, coordinator.FieldOp("crawled_at", coordinator.OpLessThanEqual, cutoff))
		}
	}
	_, err := b.client().UpdateByWhere(ctx, coordinator.CollectionSourceVariants, coordinator.Query{Where: where}, map[string]interface{}{
		"crawled_at": nil,
	})
	return err
}

func (b *CrawlBuilder) nextUncrawled(ctx context.Context, job *models.Job, scope string) ([]models.SourceVariant, error) {
	var variants []models.SourceVariant
	q := scopeQuery(job, scope)
	q.Limit = job.ItemsPerTick
	if err := b.client().Find(ctx, coordinator.CollectionSourceVariants, q, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}

func (b *CrawlBuilder) complete(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	return b.client().UpdateByID(ctx, coordinator.JobCollection(job.Type), job.ID, map[string]interface{}{
		"status":       models.JobStatusCompleted,
		"completed_at": now,
	}, nil)
}

func (b *CrawlBuilder) client() *coordinator.Client { return b.Client }

// scopeQuery translates a crawl job's scope into the where-clause
// selecting its candidate variants.
func scopeQuery(job *models.Job, scope string) coordinator.Query {
	base := coordinator.FieldOp("crawled_at", coordinator.OpExists, false)
	switch scope {
	case "selected_urls":
		if urls, ok := job.GetConfigStringSlice("source_urls"); ok {
			return coordinator.Query{Where: coordinator.And(base, coordinator.FieldOp("url", coordinator.OpIn, urls))}
		}
	case "selected_gtins":
		if gtins, ok := job.GetConfigStringSlice("selected_gtins"); ok {
			return coordinator.Query{Where: coordinator.And(base, coordinator.FieldOp("gtin", coordinator.OpIn, gtins))}
		}
	case "from_discovery":
		if parentID, ok := job.GetConfigString("parent_job_id"); ok {
			return coordinator.Query{Where: coordinator.And(base, coordinator.Eq("discovered_by", parentID))}
		}
	}
	return coordinator.Query{Where: base}
}
