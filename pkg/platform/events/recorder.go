package events

import (
	"context"
	"log/slog"
	"time"

	id "certrail/pkg/domain"
	"certrail/pkg/requestcontext"
)

// Recorder is the write side handed to domain services. Emission never blocks
// a lifecycle transition: events are buffered onto a channel drained by the
// worker, and a full buffer drops the event with a warning rather than
// stalling the request.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewRecorder creates a Recorder with the given buffer size.
func NewRecorder(buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the read side for the worker.
func (r *Recorder) Inbox() <-chan Event {
	return r.inbox
}

// Record fills in context-derived fields and enqueues the event.
func (r *Recorder) Record(ctx context.Context, action Action, subjectID id.SubjectID, entityID, detail string) {
	event := Event{
		Category:  action.Category(),
		Timestamp: requestcontext.Now(ctx),
		SubjectID: subjectID,
		Action:    string(action),
		EntityID:  entityID,
		Detail:    detail,
		ActorID:   requestcontext.ActorID(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	select {
	case r.inbox <- event:
	default:
		r.logger.Warn("event buffer full, dropping event",
			"action", event.Action,
			"entity_id", event.EntityID,
		)
	}
}

// Nop returns a recorder that discards everything; used in tests that do not
// assert on events.
func Nop() *Recorder {
	return &Recorder{
		inbox:  make(chan Event, 1),
		logger: slog.New(slog.DiscardHandler),
	}
}

// Drain collects events already buffered, waiting up to timeout for at least
// want events. Test helper for asserting emission without running a worker.
func (r *Recorder) Drain(want int, timeout time.Duration) []Event {
	var out []Event
	deadline := time.After(timeout)
	for len(out) < want {
		select {
		case e := <-r.inbox:
			out = append(out, e)
		case <-deadline:
			return out
		}
	}
	return out
}
