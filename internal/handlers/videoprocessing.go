// -----------------------------------------------------------------------
// Video-processing handler: transcribes a video, segments its transcript
// into snippets, and resolves each snippet's product mention by GTIN when
// present, else via the LLM matcher (spec.md §4.4 "Video-processing persist").
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/builders"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/drivers/llmmatch"
	videodriver "github.com/ternarybob/workdispatch/internal/drivers/video"
	"github.com/ternarybob/workdispatch/internal/heartbeat"
	"github.com/ternarybob/workdispatch/internal/models"
)

// SnippetMention is one transcript span plus its resolved product, ready
// for submit to persist.
type SnippetMention struct {
	StartSec   float64
	EndSec     float64
	Text       string
	ProductID  string
	Sentiment  string
	Confidence float64
}

// VideoProcessingResult is one video's full processing outcome.
type VideoProcessingResult struct {
	ItemResult
	VideoID  string `validate:"required"`
	Mentions []SnippetMention
}

type VideoProcessingHandler struct {
	Driver          *videodriver.Driver
	Matcher         *llmmatch.Matcher
	Client          *coordinator.Client
	Beater          *heartbeat.Beater
	Logger          arbor.ILogger
	SpeechToTextBin string
}

var _ Handler[builders.VideoProcessingItem, VideoProcessingResult] = (*VideoProcessingHandler)(nil)

func (h *VideoProcessingHandler) Handle(ctx context.Context, batch builders.Batch[builders.VideoProcessingItem]) ([]VideoProcessingResult, error) {
	results := make([]VideoProcessingResult, 0, len(batch.Items))
	for _, item := range batch.Items {
		mentions, err := h.processOne(ctx, item)
		if err != nil {
			results = append(results, VideoProcessingResult{
				ItemResult: ItemResult{Err: err.Error()},
				VideoID:    item.VideoID,
			})
			h.Beater.Beat(ctx)
			continue
		}
		result := VideoProcessingResult{VideoID: item.VideoID, Mentions: mentions}
		if err := coordinator.Validate(result); err != nil {
			results = append(results, VideoProcessingResult{ItemResult: ItemResult{Err: err.Error()}, VideoID: item.VideoID})
			h.Beater.Beat(ctx)
			continue
		}
		results = append(results, result)
		h.Beater.Beat(ctx)
	}
	return results, nil
}

func (h *VideoProcessingHandler) processOne(ctx context.Context, item builders.VideoProcessingItem) ([]SnippetMention, error) {
	workDir, err := os.MkdirTemp("", "videoproc-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	transcript, err := h.Driver.Transcribe(ctx, item.URL, workDir, h.SpeechToTextBin)
	if err != nil {
		return nil, err
	}
	h.Beater.Beat(ctx)

	candidates, err := h.loadCandidates(ctx)
	if err != nil {
		return nil, err
	}

	mentions := make([]SnippetMention, 0, len(transcript.Segments))
	for _, seg := range transcript.Segments {
		gtin := extractGTIN(seg.Text)
		var productID, sentiment string
		var confidence float64

		if gtin != "" {
			if id, ok := h.resolveByGTIN(ctx, gtin); ok {
				productID, sentiment, confidence = id, "neutral", 1.0
			}
		}
		if productID == "" {
			match, err := h.Matcher.MatchMention(ctx, seg.Text, candidates)
			if err == nil && match.ProductID != "" {
				productID, sentiment, confidence = match.ProductID, match.Sentiment, match.Confidence
			}
		}
		if productID == "" {
			h.Beater.Beat(ctx)
			continue
		}

		mentions = append(mentions, SnippetMention{
			StartSec:   seg.StartSec,
			EndSec:     seg.EndSec,
			Text:       seg.Text,
			ProductID:  productID,
			Sentiment:  sentiment,
			Confidence: confidence,
		})
		h.Beater.Beat(ctx)
	}
	return mentions, nil
}

func (h *VideoProcessingHandler) loadCandidates(ctx context.Context) ([]llmmatch.Candidate, error) {
	var products []models.Product
	if err := h.Client.Find(ctx, coordinator.CollectionProducts, coordinator.Query{Limit: 200}, &products); err != nil {
		return nil, err
	}
	candidates := make([]llmmatch.Candidate, 0, len(products))
	for _, p := range products {
		candidates = append(candidates, llmmatch.Candidate{ID: p.ID, Name: p.Name, Brand: p.Brand})
	}
	return candidates, nil
}

func (h *VideoProcessingHandler) resolveByGTIN(ctx context.Context, gtin string) (string, bool) {
	var products []models.Product
	if err := h.Client.Find(ctx, coordinator.CollectionProducts, coordinator.Query{
		Where: coordinator.Eq("gtin", gtin),
		Limit: 1,
	}, &products); err != nil || len(products) == 0 {
		return "", false
	}
	return products[0].ID, true
}

// extractGTIN looks for a run of at least 13 consecutive digits in a
// transcript span and returns its first 13, treating them as a
// spoken-aloud barcode reference. Shorter runs are ignored.
func extractGTIN(text string) string {
	digits := ""
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits += string(r)
			if len(digits) >= 13 {
				return digits[:13]
			}
			continue
		}
		digits = ""
	}
	return ""
}
