// -----------------------------------------------------------------------
// Handler executes a batch, producing one typed result per input item
// (spec.md §4.3). Handlers are reentrant and never write entity state;
// that is submit's responsibility.
// -----------------------------------------------------------------------

package handlers

import (
	"context"

	"github.com/ternarybob/workdispatch/internal/builders"
)

// ItemResult is the common shape every per-item outcome embeds: either a
// successful typed payload or an error string, never both.
type ItemResult struct {
	Err string
}

func (r ItemResult) Failed() bool { return r.Err != "" }

// Handler runs a Batch[In] and returns one Out per input item. Next-cursor
// computation is left to submit.
type Handler[In any, Out any] interface {
	Handle(ctx context.Context, batch builders.Batch[In]) ([]Out, error)
}
