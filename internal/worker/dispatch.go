// -----------------------------------------------------------------------
// Per-type dispatch: build -> handle -> submit for each of the six job
// types, sharing the claim/heartbeat/event plumbing from loop.go.
// -----------------------------------------------------------------------

package worker

import (
	"context"

	"github.com/ternarybob/workdispatch/internal/builders"
	crawldriver "github.com/ternarybob/workdispatch/internal/drivers/crawl"
	discoverydriver "github.com/ternarybob/workdispatch/internal/drivers/discovery"
	ingredientdriver "github.com/ternarybob/workdispatch/internal/drivers/ingredient"
	"github.com/ternarybob/workdispatch/internal/drivers/llmmatch"
	videodriver "github.com/ternarybob/workdispatch/internal/drivers/video"
	"github.com/ternarybob/workdispatch/internal/handlers"
	"github.com/ternarybob/workdispatch/internal/heartbeat"
	"github.com/ternarybob/workdispatch/internal/models"
	"github.com/ternarybob/workdispatch/internal/submit"
)

type CrawlDrivers struct{ Driver *crawldriver.Driver }
type DiscoveryDrivers struct{ Driver *discoverydriver.Driver }
type IngredientDrivers struct{ Driver *ingredientdriver.Driver }
type VideoDiscoveryDrivers struct {
	Driver       *videodriver.Driver
	MediaFetcher submit.MediaFetcher
}
type VideoProcessingDrivers struct {
	Driver          *videodriver.Driver
	Matcher         *llmmatch.Matcher
	SpeechToTextBin string
}
type AggregationDrivers struct {
	Matcher    *llmmatch.Matcher
	FullEnrich bool
}

func (l *Loop) runCrawl(ctx context.Context, job *models.Job, ref models.JobRef, beater *heartbeat.Beater) error {
	builder := &builders.CrawlBuilder{Client: l.Client, Logger: l.Logger, Events: l.Events}
	batch, outcome, err := builder.Build(ctx, job)
	if err != nil {
		return err
	}
	if outcome == builders.OutcomeCompleted {
		l.Events.Succeeded(ctx, ref, "crawl job completed")
		return nil
	}
	if batch.Empty() {
		return nil
	}

	handler := &handlers.CrawlHandler{Driver: l.Drivers.Crawl.Driver, Beater: beater, Logger: l.Logger}
	results, err := handler.Handle(ctx, batch)
	if err != nil {
		return err
	}

	persister := &submit.CrawlSubmit{Client: l.Client, Logger: l.Logger}
	out, err := persister.Apply(ctx, job, results)
	if err != nil {
		return err
	}
	l.logOutcome(job, out)
	if out.Completed {
		l.Events.Succeeded(ctx, ref, "crawl job completed")
	}
	return nil
}

func (l *Loop) runDiscovery(ctx context.Context, job *models.Job, ref models.JobRef, beater *heartbeat.Beater) error {
	builder := &builders.DiscoveryBuilder{Client: l.Client, Logger: l.Logger, Events: l.Events}
	batch, outcome, err := builder.Build(ctx, job)
	if err != nil {
		return err
	}
	if outcome == builders.OutcomeCompleted {
		l.Events.Succeeded(ctx, ref, "discovery job completed")
		return nil
	}
	if batch.Empty() {
		return nil
	}

	handler := &handlers.DiscoveryHandler{Driver: l.Drivers.Discovery.Driver, Beater: beater, Logger: l.Logger}
	results, err := handler.Handle(ctx, batch)
	if err != nil {
		return err
	}

	sourceURLs, _ := job.GetConfigStringSlice("source_urls")
	persister := &submit.DiscoverySubmit{Client: l.Client, Logger: l.Logger, Source: sourceFor(job)}
	out, err := persister.Apply(ctx, job, results, len(sourceURLs))
	if err != nil {
		return err
	}
	l.logOutcome(job, out)
	if out.Completed {
		l.Events.Succeeded(ctx, ref, "discovery job completed")
	}
	return nil
}

func (l *Loop) runIngredient(ctx context.Context, job *models.Job, ref models.JobRef, beater *heartbeat.Beater) error {
	builder := &builders.IngredientBuilder{Client: l.Client, Logger: l.Logger, Events: l.Events}
	batch, outcome, err := builder.Build(ctx, job)
	if err != nil {
		return err
	}
	if outcome == builders.OutcomeCompleted {
		l.Events.Succeeded(ctx, ref, "ingredient-discovery job completed")
		return nil
	}
	if batch.Empty() {
		return nil
	}

	handler := &handlers.IngredientHandler{Driver: l.Drivers.Ingredient.Driver, Beater: beater, Logger: l.Logger}
	results, err := handler.Handle(ctx, batch)
	if err != nil {
		return err
	}

	// The builder dequeues the next term into the batch cursor; submit
	// advances from that state, not from the pre-tick job progress.
	job.Progress = batch.Cursor
	persister := &submit.IngredientSubmit{Client: l.Client, Logger: l.Logger}
	out, err := persister.Apply(ctx, job, results)
	if err != nil {
		return err
	}
	l.logOutcome(job, out)
	if out.Completed {
		l.Events.Succeeded(ctx, ref, "ingredient-discovery job completed")
	}
	return nil
}

func (l *Loop) runVideoDiscovery(ctx context.Context, job *models.Job, ref models.JobRef, beater *heartbeat.Beater) error {
	builder := &builders.VideoDiscoveryBuilder{Client: l.Client, Logger: l.Logger, Events: l.Events}
	batch, outcome, err := builder.Build(ctx, job)
	if err != nil {
		return err
	}
	if outcome == builders.OutcomeCompleted {
		l.Events.Succeeded(ctx, ref, "video-discovery job completed")
		return nil
	}
	if batch.Empty() {
		return nil
	}

	handler := &handlers.VideoDiscoveryHandler{Driver: l.Drivers.VideoDiscovery.Driver, Beater: beater, Logger: l.Logger}
	results, err := handler.Handle(ctx, batch)
	if err != nil {
		return err
	}

	maxVideos, _ := job.GetConfigInt("max_videos")
	persister := &submit.VideoDiscoverySubmit{Client: l.Client, Logger: l.Logger, MediaFetcher: l.Drivers.VideoDiscovery.MediaFetcher}
	out, err := persister.Apply(ctx, job, results, maxVideos)
	if err != nil {
		return err
	}
	l.logOutcome(job, out)
	if out.Completed {
		l.Events.Succeeded(ctx, ref, "video-discovery job completed")
	}
	return nil
}

func (l *Loop) runVideoProcessing(ctx context.Context, job *models.Job, ref models.JobRef, beater *heartbeat.Beater) error {
	builder := &builders.VideoProcessingBuilder{Client: l.Client, Logger: l.Logger, Events: l.Events}
	batch, outcome, err := builder.Build(ctx, job)
	if err != nil {
		return err
	}
	if outcome == builders.OutcomeCompleted {
		l.Events.Succeeded(ctx, ref, "video-processing job completed")
		return nil
	}
	if batch.Empty() {
		return nil
	}

	handler := &handlers.VideoProcessingHandler{
		Driver:          l.Drivers.VideoProcessing.Driver,
		Matcher:         l.Drivers.VideoProcessing.Matcher,
		Client:          l.Client,
		Beater:          beater,
		Logger:          l.Logger,
		SpeechToTextBin: l.Drivers.VideoProcessing.SpeechToTextBin,
	}
	results, err := handler.Handle(ctx, batch)
	if err != nil {
		return err
	}

	persister := &submit.VideoProcessingSubmit{Client: l.Client, Logger: l.Logger}
	out, err := persister.Apply(ctx, job, results)
	if err != nil {
		return err
	}
	l.logOutcome(job, out)
	if out.Completed {
		l.Events.Succeeded(ctx, ref, "video-processing job completed")
	}
	return nil
}

func (l *Loop) runAggregation(ctx context.Context, job *models.Job, ref models.JobRef, beater *heartbeat.Beater) error {
	builder := &builders.AggregationBuilder{Client: l.Client, Logger: l.Logger, Events: l.Events}
	batch, outcome, err := builder.Build(ctx, job)
	if err != nil {
		return err
	}
	if outcome == builders.OutcomeCompleted {
		l.Events.Succeeded(ctx, ref, "aggregation job completed")
		return nil
	}
	if batch.Empty() {
		return nil
	}

	scope, _ := job.GetConfigString("scope")
	handler := &handlers.AggregationHandler{
		Client:     l.Client,
		Matcher:    l.Drivers.Aggregation.Matcher,
		Beater:     beater,
		Logger:     l.Logger,
		FullEnrich: l.Drivers.Aggregation.FullEnrich || scope == "full",
	}
	results, err := handler.Handle(ctx, batch)
	if err != nil {
		return err
	}

	persister := &submit.AggregationSubmit{Client: l.Client, Logger: l.Logger}
	out, err := persister.Apply(ctx, job, results)
	if err != nil {
		return err
	}
	l.logOutcome(job, out)
	if out.Completed {
		l.Events.Succeeded(ctx, ref, "aggregation job completed")
	}
	return nil
}

func sourceFor(job *models.Job) string {
	source, _ := job.GetConfigString("source")
	return source
}
