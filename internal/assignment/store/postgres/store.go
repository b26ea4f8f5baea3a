// Package postgres persists assignment rows. The UPDATE carries the version
// the service read in its WHERE clause, so a lost race surfaces as zero
// affected rows rather than a silent overwrite.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certrail/internal/assignment/models"
	id "certrail/pkg/domain"
	"certrail/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, a *models.Assignment) error {
	a.Version = 1
	query := `
		INSERT INTO assignments
			(id, content_id, subject_id, status, version, assigned_at, due_date,
			 reminder_date, read_at, acknowledged_at, started_at, completed_at,
			 score, progress_percent, certificate_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), string(a.ContentID), uuid.UUID(a.SubjectID),
		string(a.Status), a.Version, a.AssignedAt,
		nullTime(a.DueDate), nullTime(a.ReminderDate),
		nullTime(a.ReadAt), nullTime(a.AcknowledgedAt),
		nullTime(a.StartedAt), nullTime(a.CompletedAt),
		nullInt(a.Score), nullInt(a.ProgressPercent), a.CertificateRef,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error) {
	query := `
		SELECT id, content_id, subject_id, status, version, assigned_at, due_date,
		       reminder_date, read_at, acknowledged_at, started_at, completed_at,
		       score, progress_percent, certificate_ref
		FROM assignments
		WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(assignmentID))
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *Store) Update(ctx context.Context, a *models.Assignment) error {
	query := `
		UPDATE assignments
		SET status = $1, version = version + 1, assigned_at = $2, due_date = $3,
		    reminder_date = $4, read_at = $5, acknowledged_at = $6, started_at = $7,
		    completed_at = $8, score = $9, progress_percent = $10, certificate_ref = $11
		WHERE id = $12 AND version = $13`
	res, err := s.db.ExecContext(ctx, query,
		string(a.Status), a.AssignedAt,
		nullTime(a.DueDate), nullTime(a.ReminderDate),
		nullTime(a.ReadAt), nullTime(a.AcknowledgedAt),
		nullTime(a.StartedAt), nullTime(a.CompletedAt),
		nullInt(a.Score), nullInt(a.ProgressPercent), a.CertificateRef,
		uuid.UUID(a.ID), a.Version,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if affected == 0 {
		// Either the row vanished or the version moved; disambiguate so the
		// service can report NotFound vs StaleTransition correctly.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM assignments WHERE id = $1)`, uuid.UUID(a.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrStaleVersion
	}
	a.Version++
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Assignment, error) {
	query := `
		SELECT id, content_id, subject_id, status, version, assigned_at, due_date,
		       reminder_date, read_at, acknowledged_at, started_at, completed_at,
		       score, progress_percent, certificate_ref
		FROM assignments
		WHERE subject_id = $1
		ORDER BY assigned_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var (
		a                  models.Assignment
		rowID, subject     uuid.UUID
		content, status    string
		due, reminder      sql.NullTime
		readAt, ackAt      sql.NullTime
		startedAt, doneAt  sql.NullTime
		score, progressPct sql.NullInt64
	)
	if err := row.Scan(&rowID, &content, &subject, &status, &a.Version, &a.AssignedAt,
		&due, &reminder, &readAt, &ackAt, &startedAt, &doneAt,
		&score, &progressPct, &a.CertificateRef); err != nil {
		return nil, err
	}
	a.ID = id.AssignmentID(rowID)
	a.ContentID = id.ContentID(content)
	a.SubjectID = id.SubjectID(subject)
	a.Status = models.Status(status)
	a.DueDate = timePtr(due)
	a.ReminderDate = timePtr(reminder)
	a.ReadAt = timePtr(readAt)
	a.AcknowledgedAt = timePtr(ackAt)
	a.StartedAt = timePtr(startedAt)
	a.CompletedAt = timePtr(doneAt)
	a.Score = intPtr(score)
	a.ProgressPercent = intPtr(progressPct)
	return &a, nil
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
