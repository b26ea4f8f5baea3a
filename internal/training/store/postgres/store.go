// Package postgres persists training progress rows. Completed modules live
// in a text array and assessment attempts in a jsonb column, both rewritten
// whole on update under the same version compare-and-set as assignments.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certrail/internal/training/models"
	id "certrail/pkg/domain"
	"certrail/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, p *models.Progress) error {
	p.Version = 1
	results, err := json.Marshal(p.AssessmentResults)
	if err != nil {
		return fmt.Errorf("encode assessment results: %w", err)
	}
	query := `
		INSERT INTO training_progress
			(id, subject_id, training_id, status, version, completed_module_ids,
			 assessment_results, started_at, completed_at, certificate_issued_at,
			 expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.SubjectID), string(p.TrainingID),
		string(p.Status), p.Version, pq.Array(moduleStrings(p.CompletedModuleIDs)),
		results, nullTime(p.StartedAt), nullTime(p.CompletedAt),
		nullTime(p.CertificateIssuedAt), nullTime(p.ExpiresAt),
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create training progress: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, progressID id.ProgressID) (*models.Progress, error) {
	query := selectColumns + ` WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(progressID))
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get training progress: %w", err)
	}
	return p, nil
}

func (s *Store) GetByKey(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error) {
	query := selectColumns + ` WHERE subject_id = $1 AND training_id = $2`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(subjectID), string(trainingID))
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get training progress: %w", err)
	}
	return p, nil
}

func (s *Store) Update(ctx context.Context, p *models.Progress) error {
	results, err := json.Marshal(p.AssessmentResults)
	if err != nil {
		return fmt.Errorf("encode assessment results: %w", err)
	}
	query := `
		UPDATE training_progress
		SET status = $1, version = version + 1, completed_module_ids = $2,
		    assessment_results = $3, started_at = $4, completed_at = $5,
		    certificate_issued_at = $6, expires_at = $7
		WHERE id = $8 AND version = $9`
	res, err := s.db.ExecContext(ctx, query,
		string(p.Status), pq.Array(moduleStrings(p.CompletedModuleIDs)), results,
		nullTime(p.StartedAt), nullTime(p.CompletedAt),
		nullTime(p.CertificateIssuedAt), nullTime(p.ExpiresAt),
		uuid.UUID(p.ID), p.Version,
	)
	if err != nil {
		return fmt.Errorf("update training progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update training progress: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM training_progress WHERE id = $1)`, uuid.UUID(p.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("update training progress: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrStaleVersion
	}
	p.Version++
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Progress, error) {
	query := selectColumns + ` WHERE subject_id = $1 ORDER BY training_id`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(subjectID))
	if err != nil {
		return nil, fmt.Errorf("list training progress: %w", err)
	}
	defer rows.Close()

	var out []*models.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan training progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training progress: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, subject_id, training_id, status, version, completed_module_ids,
	       assessment_results, started_at, completed_at, certificate_issued_at,
	       expires_at
	FROM training_progress`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*models.Progress, error) {
	var (
		p                models.Progress
		rowID, subject   uuid.UUID
		training, status string
		modules          pq.StringArray
		results          []byte
		startedAt        sql.NullTime
		doneAt, issuedAt sql.NullTime
		expiresAt        sql.NullTime
	)
	if err := row.Scan(&rowID, &subject, &training, &status, &p.Version,
		&modules, &results, &startedAt, &doneAt, &issuedAt, &expiresAt); err != nil {
		return nil, err
	}
	p.ID = id.ProgressID(rowID)
	p.SubjectID = id.SubjectID(subject)
	p.TrainingID = id.TrainingID(training)
	p.Status = models.Status(status)
	for _, m := range modules {
		p.CompletedModuleIDs = append(p.CompletedModuleIDs, id.ModuleID(m))
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &p.AssessmentResults); err != nil {
			return nil, fmt.Errorf("decode assessment results: %w", err)
		}
	}
	p.StartedAt = timePtr(startedAt)
	p.CompletedAt = timePtr(doneAt)
	p.CertificateIssuedAt = timePtr(issuedAt)
	p.ExpiresAt = timePtr(expiresAt)
	return &p, nil
}

func moduleStrings(ids []id.ModuleID) []string {
	out := make([]string, len(ids))
	for i, m := range ids {
		out[i] = string(m)
	}
	return out
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
