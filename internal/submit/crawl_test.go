package submit

import (
	"testing"

	"github.com/ternarybob/workdispatch/internal/handlers"
)

func TestErrStringError(t *testing.T) {
	var err error = errString("aggregation: source product has no GTIN to aggregate on")
	if err.Error() != "aggregation: source product has no GTIN to aggregate on" {
		t.Fatalf("errString.Error() = %q", err.Error())
	}
}

// A failed handler result must short-circuit before any coordinator call -
// persistOne is invoked here with a nil Client to prove it never dereferences it.
func TestCrawlPersistOneShortCircuitsOnHandlerFailure(t *testing.T) {
	s := &CrawlSubmit{}
	r := handlers.CrawlResult{ItemResult: handlers.ItemResult{Err: "fetch timed out"}, VariantID: "variant-1"}

	err := s.persistOne(ctxBG(), "job-1", r)
	if err == nil || err.Error() != "fetch timed out" {
		t.Fatalf("persistOne() error = %v, want %q", err, "fetch timed out")
	}
}

func TestAggregationPersistOneShortCircuitsOnHandlerFailure(t *testing.T) {
	s := &AggregationSubmit{}
	r := handlers.AggregationResult{ItemResult: handlers.ItemResult{Err: "scan failed"}}

	err := s.persistOne(ctxBG(), r)
	if err == nil || err.Error() != "scan failed" {
		t.Fatalf("persistOne() error = %v, want %q", err, "scan failed")
	}
}
