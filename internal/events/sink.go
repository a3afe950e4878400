// -----------------------------------------------------------------------
// Sink emits structured lifecycle events (start/success/info/warning/error)
// to the coordinator's event collection (spec.md §6 "Event sink").
// -----------------------------------------------------------------------

package events

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/workdispatch/internal/coordinator"
	"github.com/ternarybob/workdispatch/internal/models"
)

// Sink writes Event documents. Emission is best-effort: a failed write is
// logged but never propagated, since losing an audit event must not fail
// the batch it describes.
type Sink struct {
	Client    *coordinator.Client
	Logger    arbor.ILogger
	Component string
}

func New(client *coordinator.Client, logger arbor.ILogger, component string) *Sink {
	return &Sink{Client: client, Logger: logger, Component: component}
}

func (s *Sink) emit(ctx context.Context, evtType models.EventType, level, message string, job *models.JobRef) {
	evt := models.Event{
		Type:      evtType,
		Level:     level,
		Component: s.Component,
		Message:   message,
		Job:       job,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Client.Create(ctx, coordinator.CollectionEvents, evt, "", "", nil, nil); err != nil {
		s.Logger.Warn().Err(err).Str("event_type", string(evtType)).Msg("failed to emit event")
	}
}

func (s *Sink) Started(ctx context.Context, job models.JobRef, message string) {
	s.emit(ctx, models.EventStart, "info", message, &job)
}

func (s *Sink) Succeeded(ctx context.Context, job models.JobRef, message string) {
	s.emit(ctx, models.EventSuccess, "info", message, &job)
}

func (s *Sink) Info(ctx context.Context, job models.JobRef, message string) {
	s.emit(ctx, models.EventInfo, "info", message, &job)
}

func (s *Sink) Warning(ctx context.Context, job models.JobRef, message string) {
	s.emit(ctx, models.EventWarning, "warn", message, &job)
}

func (s *Sink) Errorf(ctx context.Context, job models.JobRef, message string) {
	s.emit(ctx, models.EventError, "error", message, &job)
}
