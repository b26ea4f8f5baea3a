// Package worker drains recorded events into a store. It keeps background
// processing testable without wiring queue implementations.
package worker

import (
	"context"

	events "certrail/pkg/platform/events"
)

// Worker consumes events from a channel and persists them.
type Worker struct {
	store events.Store
	inbox <-chan events.Event
}

func NewWorker(store events.Store, inbox <-chan events.Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

// Run blocks until ctx is cancelled or a store append fails.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
