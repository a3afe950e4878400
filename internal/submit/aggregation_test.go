package submit

import (
	"testing"

	"github.com/ternarybob/workdispatch/internal/handlers"
	"github.com/ternarybob/workdispatch/internal/models"
)

func TestScoreForUsesLatestPriceHistoryEntry(t *testing.T) {
	sp := &models.SourceProduct{
		PriceHistory: []models.PriceHistoryEntry{
			{Price: 4.99},
			{Price: 5.49},
		},
	}
	store, creator := scoreFor(sp)
	if store != 5.49 {
		t.Fatalf("store score = %v, want the latest (last) price entry 5.49", store)
	}
	if creator != 0 {
		t.Fatalf("creator score = %v, want 0 (placeholder pending mention aggregation)", creator)
	}
}

func TestScoreForZeroWhenUnpriced(t *testing.T) {
	store, _ := scoreFor(&models.SourceProduct{})
	if store != 0 {
		t.Fatalf("store score = %v, want 0 for an unpriced source product", store)
	}
}

func TestAggregationApplyExhaustsImmediatelyForSelectedGtinsScope(t *testing.T) {
	client := newTestClient(t, nil)
	job := &models.Job{ID: "job-1", Type: models.JobTypeAggregation, Config: map[string]interface{}{"scope": "selected_gtins"}}
	results := []handlers.AggregationResult{
		{SourceProductID: "sp-1", SourceProduct: &models.SourceProduct{GTIN: "1234567890123"}},
	}

	s := &AggregationSubmit{Client: client}
	out, err := s.Apply(ctxBG(), job, results)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if !out.Completed {
		t.Fatal("selected_gtins scope should always complete after a single tick")
	}
}

func TestAggregationApplyAdvancesCursorForAllScope(t *testing.T) {
	var captured map[string]interface{}
	client := newTestClient(t, &captured)
	job := &models.Job{ID: "job-1", Type: models.JobTypeAggregation, Total: 100, Config: map[string]interface{}{"scope": "all"}}
	results := []handlers.AggregationResult{
		{SourceProductID: "sp-1", SourceProduct: &models.SourceProduct{GTIN: "1234567890123"}},
	}

	s := &AggregationSubmit{Client: client}
	out, err := s.Apply(ctxBG(), job, results)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if out.Completed {
		t.Fatal("scope=all should release with a resumable cursor, not complete, when total isn't reached")
	}
	progress, _ := captured["progress"].(map[string]interface{})
	if progress["last_checked_source_id"] != "sp-1" {
		t.Fatalf("released progress = %v, want last_checked_source_id sp-1", captured["progress"])
	}
}

func TestContainsString(t *testing.T) {
	ids := []string{"a", "b", "c"}
	if !containsString(ids, "b") {
		t.Fatal("containsString should find an existing element")
	}
	if containsString(ids, "z") {
		t.Fatal("containsString should not find a missing element")
	}
	if containsString(nil, "a") {
		t.Fatal("containsString on a nil slice should be false")
	}
}
