package models

import (
	"testing"
	"time"
)

func TestDecodeCursorEmptyIsFalse(t *testing.T) {
	var c DiscoveryCursor
	if DecodeCursor(nil, &c) {
		t.Fatal("DecodeCursor(nil) should report false")
	}
	if c.CurrentURLIndex != 0 {
		t.Fatalf("expected zero-value cursor, got %+v", c)
	}
}

func TestDecodeCursorUnparsableRestartsFromScratch(t *testing.T) {
	var c IngredientCursor
	ok := DecodeCursor([]byte(`{"current_term": 123}`), &c)
	if ok {
		t.Fatal("DecodeCursor should report false for a type-mismatched shape")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := IngredientCursor{
		CurrentTerm:       "chocolate",
		CurrentPage:       3,
		TotalPagesForTerm: 10,
		TermQueue:         []string{"vanilla", "caramel"},
	}
	raw := EncodeCursor(want)

	var got IngredientCursor
	if !DecodeCursor(raw, &got) {
		t.Fatal("DecodeCursor should succeed on a freshly encoded cursor")
	}
	// TermQueue is a slice so compare field-by-field instead of ==
	if got.CurrentTerm != want.CurrentTerm || got.CurrentPage != want.CurrentPage ||
		got.TotalPagesForTerm != want.TotalPagesForTerm || len(got.TermQueue) != len(want.TermQueue) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestJobIsStaleVsFresh(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	claimedAt := now.Add(-10 * time.Minute)
	j := Job{ClaimedAt: &claimedAt}

	if !j.IsFresh(now, 30*time.Minute) {
		t.Fatal("10 minutes into a 30 minute lease should be fresh")
	}
	if j.IsStale(now, 30*time.Minute) {
		t.Fatal("10 minutes into a 30 minute lease should not be stale")
	}
	if j.IsFresh(now, 5*time.Minute) {
		t.Fatal("10 minutes into a 5 minute lease should not be fresh")
	}
	if !j.IsStale(now, 5*time.Minute) {
		t.Fatal("10 minutes into a 5 minute lease should be stale")
	}
}

func TestJobIsSelectedTarget(t *testing.T) {
	cases := []struct {
		scope interface{}
		want  bool
	}{
		{"selected_urls", true},
		{"selected_gtins", true},
		{"from_discovery", true},
		{"all", false},
		{nil, false},
	}
	for _, c := range cases {
		j := Job{Config: map[string]interface{}{}}
		if c.scope != nil {
			j.Config["scope"] = c.scope
		}
		if got := j.IsSelectedTarget(); got != c.want {
			t.Fatalf("IsSelectedTarget(scope=%v) = %v, want %v", c.scope, got, c.want)
		}
	}
}

func TestJobRemainingNeverNegative(t *testing.T) {
	j := Job{Total: 5, Progressed: 3, Errors: 4}
	if got := j.Remaining(); got != 0 {
		t.Fatalf("Remaining() = %d, want 0", got)
	}
	j = Job{Total: 10, Progressed: 3, Errors: 2}
	if got := j.Remaining(); got != 5 {
		t.Fatalf("Remaining() = %d, want 5", got)
	}
}
