package claim

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/models"
)

func bgCtx() context.Context {
	return context.Background()
}

// fakeCoordinator serves GET /api/jobs-crawl (the three gather queries,
// distinguished by their where-tree shape) and PATCH /api/jobs-crawl (the
// conditional claim attempt), matching the bracketed query encoding the
// real coordinator.Client produces.
type fakeCoordinator struct {
	pending    []map[string]interface{}
	rejectIDs  map[string]bool // job IDs whose claim attempt loses the race
	patchedIDs []string
}

func (f *fakeCoordinator) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.Method {
		case http.MethodGet:
			if q.Get("where[status][equals]") == "pending" {
				writeDocs(w, f.pending)
				return
			}
			// released (and[0]=in_progress, and[1]=claimed_by not exists) and
			// in-progress-for-staleness queries: nothing outstanding in tests.
			writeDocs(w, nil)
		case http.MethodPatch:
			id := q.Get("where[and][0][id][equals]")
			if f.rejectIDs[id] {
				writeDocs(w, nil)
				return
			}
			f.patchedIDs = append(f.patchedIDs, id)
			writeDocs(w, []map[string]interface{}{{"id": id}})
		default:
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
		}
	}
}

func writeDocs(w http.ResponseWriter, docs []map[string]interface{}) {
	if docs == nil {
		docs = []map[string]interface{}{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"docs": docs})
}

func newEngine(t *testing.T, fc *fakeCoordinator) *Engine {
	t.Helper()
	srv := httptest.NewServer(fc.handler())
	t.Cleanup(srv.Close)
	client := coordinator.New(coordinator.Config{BaseURL: srv.URL, APIKey: "k", RequestTimeout: 5 * time.Second}, arbor.NewLogger())
	return New(client, "worker-1", 30*time.Minute, arbor.NewLogger())
}

func TestClaimReturnsErrNoWorkWhenNothingPending(t *testing.T) {
	fc := &fakeCoordinator{}
	e := newEngine(t, fc)

	_, err := e.Claim(bgCtx(), []models.JobType{models.JobTypeCrawl})
	if err != ErrNoWork {
		t.Fatalf("Claim() error = %v, want ErrNoWork", err)
	}
}

func TestClaimSucceedsOnSolePendingCandidate(t *testing.T) {
	fc := &fakeCoordinator{
		pending: []map[string]interface{}{{"id": "job-1", "status": "pending", "config": map[string]interface{}{}}},
	}
	e := newEngine(t, fc)

	job, err := e.Claim(bgCtx(), []models.JobType{models.JobTypeCrawl})
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if job.ID != "job-1" {
		t.Fatalf("claimed job ID = %q, want job-1", job.ID)
	}
	if job.Status != models.JobStatusPending {
		t.Fatalf("claimed job status = %q, want pending (the engine only claims; the builder owns the pending->in_progress transition)", job.Status)
	}
	if job.ClaimedBy == nil || *job.ClaimedBy != "worker-1" {
		t.Fatalf("claimed job ClaimedBy = %v, want worker-1", job.ClaimedBy)
	}
}

func TestClaimTriesNextCandidateAfterRejection(t *testing.T) {
	fc := &fakeCoordinator{
		pending: []map[string]interface{}{
			{"id": "job-1", "status": "pending", "config": map[string]interface{}{}},
			{"id": "job-2", "status": "pending", "config": map[string]interface{}{}},
		},
		rejectIDs: map[string]bool{"job-1": true},
	}
	e := newEngine(t, fc)

	job, err := e.Claim(bgCtx(), []models.JobType{models.JobTypeCrawl})
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if job.ID != "job-2" {
		t.Fatalf("claimed job ID = %q, want job-2 (job-1 was rejected)", job.ID)
	}
}

func TestClaimPrioritizesSelectedTargetJobs(t *testing.T) {
	fc := &fakeCoordinator{
		pending: []map[string]interface{}{
			{"id": "job-plain", "status": "pending", "config": map[string]interface{}{}},
			{"id": "job-selected", "status": "pending", "config": map[string]interface{}{"scope": "selected_urls"}},
		},
	}
	e := newEngine(t, fc)

	job, err := e.Claim(bgCtx(), []models.JobType{models.JobTypeCrawl})
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if job.ID != "job-selected" {
		t.Fatalf("claimed job ID = %q, want job-selected (priority candidate)", job.ID)
	}
}

func TestSplitPriorityAndBuildAttemptOrder(t *testing.T) {
	plain := candidate{job: models.Job{ID: "plain"}}
	selected := candidate{job: models.Job{ID: "selected", Config: map[string]interface{}{"scope": "selected_gtins"}}}

	priority, rest := splitPriority([]candidate{plain, selected})
	if len(priority) != 1 || priority[0].job.ID != "selected" {
		t.Fatalf("priority = %+v, want just job 'selected'", priority)
	}
	if len(rest) != 1 || rest[0].job.ID != "plain" {
		t.Fatalf("rest = %+v, want just job 'plain'", rest)
	}

	order := buildAttemptOrder(priority, rest, rand.New(rand.NewSource(1)))
	if len(order) != 2 || order[0].job.ID != "selected" || order[1].job.ID != "plain" {
		t.Fatalf("attempt order = %+v, want selected before plain", order)
	}
}
