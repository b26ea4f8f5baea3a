package cache

import (
	"context"

	id "certrail/pkg/domain"
	"certrail/pkg/platform/events"
)

type rateInvalidator interface {
	Invalidate(ctx context.Context, subjectID id.SubjectID) error
}

// invalidatingStore drops a subject's cached rate whenever a lifecycle event
// for that subject is persisted. Every transition emits an event, so a stale
// rate survives a mutation only until the worker drains it, not for the
// full TTL.
type invalidatingStore struct {
	cache rateInvalidator
	next  events.Store
}

// WithInvalidation decorates an event store so persisted events evict the
// subject's cached compliance rate. A nil cache leaves the store untouched.
func WithInvalidation(cache *RateCache, next events.Store) events.Store {
	if cache == nil {
		return next
	}
	return &invalidatingStore{cache: cache, next: next}
}

func (s *invalidatingStore) Append(ctx context.Context, event events.Event) error {
	// A failed drop never blocks the append; it only delays freshness
	// until the TTL.
	_ = s.cache.Invalidate(ctx, event.SubjectID)
	return s.next.Append(ctx, event)
}

func (s *invalidatingStore) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]events.Event, error) {
	return s.next.ListBySubject(ctx, subjectID)
}
