package models

import "time"

// JoinRecord links a job to one produced entity for one batch item. It is
// the authoritative audit log; job counters are denormalized summaries of
// these records (spec.md §3 "Join records").
type JoinRecord struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Error      *string   `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Succeeded reports whether this join record represents a successfully
// processed item (no error string attached).
func (r JoinRecord) Succeeded() bool {
	return r.Error == nil || *r.Error == ""
}

// JobRefKind discriminates which job-type collection a polymorphic
// back-reference (events, locked-documents, preferences) points into
// (spec.md §9 "Heterogeneous collections and back-references").
type JobRefKind = JobType

// JobRef is a discriminated union {kind, id} used by any collection that
// links to an arbitrary job without a dedicated foreign key per type.
type JobRef struct {
	Kind JobRefKind `json:"kind"`
	ID   string     `json:"id"`
}

// jobCollectionNames maps a JobRef kind to the coordinator collection that
// stores jobs of that type.
var jobCollectionNames = map[JobRefKind]string{
	JobTypeCrawl:               "jobs-crawl",
	JobTypeDiscovery:           "jobs-discovery",
	JobTypeIngredientDiscovery: "jobs-ingredient-discovery",
	JobTypeVideoDiscovery:      "jobs-video-discovery",
	JobTypeVideoProcessing:     "jobs-video-processing",
	JobTypeAggregation:         "jobs-aggregation",
}

// CollectionName resolves the coordinator collection backing this ref's
// job type.
func (r JobRef) CollectionName() string {
	return jobCollectionNames[r.Kind]
}
