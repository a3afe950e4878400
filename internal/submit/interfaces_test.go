package submit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/models"
)

func ctxBG() context.Context {
	return context.Background()
}

func newTestClient(t *testing.T, capture *map[string]interface{}) *coordinator.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			*capture = body
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"docs": []interface{}{}})
	}))
	t.Cleanup(srv.Close)
	return coordinator.New(coordinator.Config{BaseURL: srv.URL, APIKey: "k", RequestTimeout: 5 * time.Second}, arbor.NewLogger())
}

func TestFinalizeCompletesWhenCountersReachTotal(t *testing.T) {
	var captured map[string]interface{}
	client := newTestClient(t, &captured)
	job := &models.Job{ID: "job-1", Type: models.JobTypeCrawl, Total: 5, Progressed: 3, Errors: 0}

	out, err := finalize(ctxBG(), client, nil, job, 2, 0, nil, false)
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}
	if !out.Completed {
		t.Fatal("expected Completed=true when progressed+errors >= total")
	}
	if captured["status"] != string(models.JobStatusCompleted) {
		t.Fatalf("expected status=completed patch, got %v", captured["status"])
	}
	if _, ok := captured["completed_at"]; !ok {
		t.Fatal("expected completed_at to be set on completion")
	}
}

func TestFinalizeReleasesWhenWorkRemains(t *testing.T) {
	var captured map[string]interface{}
	client := newTestClient(t, &captured)
	job := &models.Job{ID: "job-1", Type: models.JobTypeCrawl, Total: 10, Progressed: 2, Errors: 0}

	cursor := models.EncodeCursor(models.DiscoveryCursor{CurrentURLIndex: 3})
	out, err := finalize(ctxBG(), client, nil, job, 2, 0, cursor, false)
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}
	if out.Completed {
		t.Fatal("expected Completed=false when work remains")
	}
	if captured["claimed_by"] != nil {
		t.Fatalf("expected claimed_by to be released to nil, got %v", captured["claimed_by"])
	}
	if _, ok := captured["progress"]; !ok {
		t.Fatal("expected a non-empty next cursor to be persisted as progress")
	}
}

func TestFinalizeCompletesOnCursorExhaustionEvenBelowTotal(t *testing.T) {
	var captured map[string]interface{}
	client := newTestClient(t, &captured)
	job := &models.Job{ID: "job-1", Type: models.JobTypeDiscovery, Total: 0, Progressed: 0, Errors: 0}

	out, err := finalize(ctxBG(), client, nil, job, 1, 0, nil, true)
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}
	if !out.Completed {
		t.Fatal("cursorExhausted=true should force completion regardless of total")
	}
}

func TestFinalizeOmitsProgressPatchWhenNoCursorGiven(t *testing.T) {
	var captured map[string]interface{}
	client := newTestClient(t, &captured)
	job := &models.Job{ID: "job-1", Type: models.JobTypeVideoProcessing, Total: 100, Progressed: 1, Errors: 0}

	_, err := finalize(ctxBG(), client, nil, job, 1, 0, nil, false)
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}
	if _, ok := captured["progress"]; ok {
		t.Fatal("video-processing has no cursor; progress key should not be set")
	}
}
