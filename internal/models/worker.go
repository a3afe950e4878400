package models

import "time"

// WorkerStatus gates whether a worker is allowed to authenticate and claim.
type WorkerStatus string

const (
	WorkerStatusActive   WorkerStatus = "active"
	WorkerStatusDisabled WorkerStatus = "disabled"
)

// Worker is the coordinator's record of one fleet member. Workers never
// store job state locally; any progress they observed is derived fresh
// from the coordinator on every tick (spec.md §3 "Worker").
// Worker also stands in for the coordinator's "claim request" identity: a
// claim is always made as some worker, and that worker's capabilities and
// status are exactly what the claim engine must trust (spec.md §4.1 step
// 1 "capability and status gate").
type Worker struct {
	ID           string       `json:"id" validate:"required"`
	Name         string       `json:"name" validate:"required"`
	Capabilities []JobType    `json:"capabilities" validate:"required,min=1,dive,required"`
	Status       WorkerStatus `json:"status" validate:"required,oneof=active disabled"`
	LastSeenAt   time.Time    `json:"last_seen_at"`
}

// HasCapability reports whether the worker advertises the given job type.
func (w *Worker) HasCapability(t JobType) bool {
	for _, c := range w.Capabilities {
		if c == t {
			return true
		}
	}
	return false
}
