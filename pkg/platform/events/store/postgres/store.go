// Package postgres persists lifecycle events to a PostgreSQL table. Events
// are append-only; nothing in the engine updates or deletes them.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "certrail/pkg/domain"
	events "certrail/pkg/platform/events"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event events.Event) error {
	eventID := uuid.New()
	query := `
		INSERT INTO lifecycle_events
			(id, category, occurred_at, subject_id, action, entity_id, detail, actor_id, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		eventID,
		string(event.Category),
		event.Timestamp,
		uuid.UUID(event.SubjectID),
		event.Action,
		event.EntityID,
		event.Detail,
		event.ActorID,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append lifecycle event: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]events.Event, error) {
	query := `
		SELECT category, occurred_at, subject_id, action, entity_id, detail, actor_id, request_id
		FROM lifecycle_events
		WHERE subject_id = $1
		ORDER BY occurred_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list lifecycle events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var e events.Event
		var subject uuid.UUID
		if err := rows.Scan(&e.Category, &e.Timestamp, &subject, &e.Action, &e.EntityID, &e.Detail, &e.ActorID, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan lifecycle event: %w", err)
		}
		e.SubjectID = id.SubjectID(subject)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lifecycle events: %w", err)
	}
	return out, nil
}
