package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Config{BaseURL: srv.URL, APIKey: "test-key", RequestTimeout: 5 * time.Second}, nil)
	return c, srv
}

func TestMeReturnsWorkerIdentity(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(MeResponse{ID: "w-1", Status: "active", Capabilities: []string{"crawl"}})
	})

	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if me.ID != "w-1" || me.Status != "active" {
		t.Fatalf("Me() = %+v", me)
	}
}

func TestFindDecodesDocsArray(t *testing.T) {
	type job struct {
		ID string `json:"id"`
	}
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"docs": []job{{ID: "a"}, {ID: "b"}},
		})
	})

	var out []job
	if err := c.Find(context.Background(), "jobs-crawl", Query{Where: Eq("status", "pending")}, &out); err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("Find() decoded %+v", out)
	}
}

func TestFindByIDNotFoundIsPermanent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	var out struct{}
	err := c.FindByID(context.Background(), "jobs-crawl", "missing", &out)
	if err == nil {
		t.Fatal("expected a not-found error")
	}
	var nf *ErrNotFound
	if !asErrNotFound(err, &nf) {
		t.Fatalf("expected *ErrNotFound, got %T: %v", err, err)
	}
}

func asErrNotFound(err error, target **ErrNotFound) bool {
	nf, ok := err.(*ErrNotFound)
	if !ok {
		return false
	}
	*target = nf
	return true
}

func TestUpdateByWhereReturnsMatchedCount(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"docs": []interface{}{map[string]interface{}{"id": "job-1"}},
		})
	})

	matched, err := c.UpdateByWhere(context.Background(), "jobs-crawl", Query{Where: Eq("id", "job-1")}, map[string]interface{}{"claimed_by": "w-1"})
	if err != nil {
		t.Fatalf("UpdateByWhere() error: %v", err)
	}
	if matched != 1 {
		t.Fatalf("matched = %d, want 1", matched)
	}
}

func TestUpdateByWhereZeroMatchesIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"docs": []interface{}{}})
	})

	matched, err := c.UpdateByWhere(context.Background(), "jobs-crawl", Query{Where: Eq("id", "job-1")}, map[string]interface{}{})
	if err != nil {
		t.Fatalf("UpdateByWhere() error: %v", err)
	}
	if matched != 0 {
		t.Fatalf("matched = %d, want 0 (a lost race, not an error)", matched)
	}
}

func TestDoRetriesTransientFailureThenSucceeds(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(MeResponse{ID: "w-1", Status: "active"})
	})

	_, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error after transient 503: %v", err)
	}
	if attempts < 2 {
		t.Fatalf("expected at least one retry, got %d attempt(s)", attempts)
	}
}

func TestDoDoesNotRetryPermanentClientError(t *testing.T) {
	attempts := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.Me(context.Background())
	if err == nil {
		t.Fatal("expected an error for a 400 response")
	}
	if attempts != 1 {
		t.Fatalf("a 4xx response must not be retried, got %d attempts", attempts)
	}
}
