package models

import "time"

// EventType classifies an emitted event for downstream dashboards
// (spec.md §6 "Event sink").
type EventType string

const (
	EventStart   EventType = "start"
	EventSuccess EventType = "success"
	EventInfo    EventType = "info"
	EventWarning EventType = "warning"
	EventError   EventType = "error"
)

// Event is an append-only log entry optionally linked to a job.
type Event struct {
	ID        string    `json:"id,omitempty"`
	Type      EventType `json:"type"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Job       *JobRef   `json:"job,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
