// -----------------------------------------------------------------------
// Batch is the typed unit a work builder hands to a handler (spec.md §4.2).
// -----------------------------------------------------------------------

package builders

import "encoding/json"

// Batch carries exactly the inputs a handler needs for one tick,
// including the cursor state it was built from so the handler can return
// a next-cursor independent of later state drift.
type Batch[T any] struct {
	JobID  string
	Items  []T
	Cursor json.RawMessage
}

// Done constructs the "no work, nothing left" empty batch.
func Done[T any](jobID string) Batch[T] {
	return Batch[T]{JobID: jobID}
}

// Empty reports whether this batch carries no items.
func (b Batch[T]) Empty() bool {
	return len(b.Items) == 0
}

// Outcome is what a work builder returns alongside a batch: whether the
// job should be considered complete before any handler runs at all (the
// "no work + job completed" branch of spec.md §4.2).
type Outcome int

const (
	OutcomeBatch Outcome = iota
	OutcomeCompleted
)
