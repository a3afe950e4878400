// -----------------------------------------------------------------------
// Job - the common envelope shared by every job type, plus its lease.
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"time"
)

// JobType identifies which work-builder, handler and submit path a job
// routes through.
type JobType string

const (
	JobTypeCrawl               JobType = "crawl"
	JobTypeDiscovery           JobType = "discovery"
	JobTypeIngredientDiscovery JobType = "ingredient_discovery"
	JobTypeVideoDiscovery      JobType = "video_discovery"
	JobTypeVideoProcessing     JobType = "video_processing"
	JobTypeAggregation         JobType = "aggregation"
)

// AllJobTypes lists every job type the claim engine can be asked about.
var AllJobTypes = []JobType{
	JobTypeCrawl,
	JobTypeDiscovery,
	JobTypeIngredientDiscovery,
	JobTypeVideoDiscovery,
	JobTypeVideoProcessing,
	JobTypeAggregation,
}

// JobStatus is the lifecycle state of a job (spec.md §3).
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// selectedTargetScopes is the closed set of scope values that trigger
// priority selection in the claim engine (spec.md §4.1 step 3).
var selectedTargetScopes = map[string]bool{
	"selected_urls":  true,
	"selected_gtins": true,
	"from_discovery": true,
}

// Job is the common document shared by every job type. Type-specific
// scope parameters live in Config; the resumption cursor lives in
// Progress as an opaque JSON document only the matching work-builder
// decodes (spec.md §3, §9).
type Job struct {
	ID       string  `json:"id" validate:"required"`
	ParentID *string `json:"parent_id,omitempty"`

	Type   JobType   `json:"type" validate:"required,oneof=crawl discovery ingredient_discovery video_discovery video_processing aggregation"`
	Status JobStatus `json:"status" validate:"required,oneof=pending in_progress completed failed"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ClaimedBy *string    `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	Total      int `json:"total" validate:"gte=0"`
	Progressed int `json:"progressed" validate:"gte=0"`
	Errors     int `json:"errors" validate:"gte=0"`

	ItemsPerTick int `json:"items_per_tick" validate:"gte=0"`

	// Progress is the type-specific resumption cursor. Decoded lazily by
	// the matching work-builder; never inspected by generic code.
	Progress json.RawMessage `json:"progress,omitempty"`

	// Config carries scope and other creation-time parameters: "scope",
	// "source", "source_urls", "selected_gtins", "min_crawl_age", etc.
	Config map[string]interface{} `json:"config"`
}

// IsFresh reports whether the job's lease is still within jobTimeout of now
// (spec.md §3 "Lease").
func (j *Job) IsFresh(now time.Time, jobTimeout time.Duration) bool {
	if j.ClaimedAt == nil {
		return false
	}
	return now.Sub(*j.ClaimedAt) < jobTimeout
}

// IsStale is the negation of IsFresh, defined only when a claim exists.
func (j *Job) IsStale(now time.Time, jobTimeout time.Duration) bool {
	if j.ClaimedAt == nil {
		return false
	}
	return !j.IsFresh(now, jobTimeout)
}

// IsSelectedTarget reports whether this job's scope names an explicit
// target set, which makes it a priority candidate in the claim engine
// (spec.md §4.1 step 3, GLOSSARY "Selected-target job").
func (j *Job) IsSelectedTarget() bool {
	scope, _ := j.GetConfigString("scope")
	return selectedTargetScopes[scope]
}

// GetConfigString retrieves a string value from Config.
func (j *Job) GetConfigString(key string) (string, bool) {
	v, ok := j.Config[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetConfigInt retrieves an int value from Config, tolerating the
// float64 that JSON unmarshaling produces for numbers.
func (j *Job) GetConfigInt(key string) (int, bool) {
	v, ok := j.Config[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// GetConfigStringSlice retrieves a string slice from Config.
func (j *Job) GetConfigStringSlice(key string) ([]string, bool) {
	v, ok := j.Config[key]
	if !ok {
		return nil, false
	}
	switch s := v.(type) {
	case []string:
		return s, true
	case []interface{}:
		out := make([]string, len(s))
		for i, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = str
		}
		return out, true
	default:
		return nil, false
	}
}

// Remaining reports how many items have not yet been accounted for by
// either success or error (spec.md §4.4 completion rule).
func (j *Job) Remaining() int {
	r := j.Total - j.Progressed - j.Errors
	if r < 0 {
		return 0
	}
	return r
}
