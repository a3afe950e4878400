package builders

import (
	"testing"

	"github.com/ternarybob/workdispatch/internal/models"
)

func TestRequeueSubtermsPrependsAtHead(t *testing.T) {
	cursor := models.IngredientCursor{
		CurrentTerm:       "choc",
		CurrentPage:       4,
		TotalPagesForTerm: 30,
		TermQueue:         []string{"vanilla"},
	}

	got := RequeueSubterms(cursor, []string{"choca", "chocb"})

	if got.CurrentTerm != "" {
		t.Fatalf("CurrentTerm should be cleared so Build() dequeues the next head, got %q", got.CurrentTerm)
	}
	want := []string{"choca", "chocb", "vanilla"}
	if len(got.TermQueue) != len(want) {
		t.Fatalf("TermQueue = %v, want %v", got.TermQueue, want)
	}
	for i := range want {
		if got.TermQueue[i] != want[i] {
			t.Fatalf("TermQueue[%d] = %q, want %q", i, got.TermQueue[i], want[i])
		}
	}
}

func TestRequeueSubtermsDoesNotMutateOriginalSlice(t *testing.T) {
	original := []string{"vanilla"}
	cursor := models.IngredientCursor{CurrentTerm: "choc", TermQueue: original}

	_ = RequeueSubterms(cursor, []string{"choca"})

	if len(original) != 1 || original[0] != "vanilla" {
		t.Fatalf("RequeueSubterms must not mutate the caller's slice in place, got %v", original)
	}
}

func TestBatchEmptyAndDone(t *testing.T) {
	done := Done[IngredientItem]("job-1")
	if !done.Empty() {
		t.Fatal("Done() batch should be Empty()")
	}
	if done.JobID != "job-1" {
		t.Fatalf("JobID = %q, want job-1", done.JobID)
	}

	batch := Batch[IngredientItem]{JobID: "job-1", Items: []IngredientItem{{Term: "x", Page: 1}}}
	if batch.Empty() {
		t.Fatal("a batch with items should not be Empty()")
	}
}
