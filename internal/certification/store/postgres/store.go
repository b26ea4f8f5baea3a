// Package postgres persists path progress rows under the same version
// compare-and-set contract as the other stores. The id+version WHERE clause
// is what turns a duplicate concurrent submit into a stale-version error
// instead of a double grant.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certrail/internal/certification/models"
	id "certrail/pkg/domain"
	"certrail/pkg/platform/sentinel"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, p *models.PathProgress) error {
	p.Version = 1
	query := `
		INSERT INTO path_progress
			(id, path_id, candidate_id, candidate_type, status, version,
			 training_started_at, training_completed_at, training_score,
			 evaluation_available_date, evaluation_started_at,
			 evaluation_submitted_at, evaluation_corrected_at, evaluation_score,
			 evaluation_passed, corrector_comment, habilitation_granted_at,
			 habilitation_expiry_date, assigned_by, assigned_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), string(p.PathID), uuid.UUID(p.CandidateID),
		string(p.CandidateType), string(p.Status), p.Version,
		nullTime(p.TrainingStartedAt), nullTime(p.TrainingCompletedAt), nullInt(p.TrainingScore),
		nullTime(p.EvaluationAvailableDate), nullTime(p.EvaluationStartedAt),
		nullTime(p.EvaluationSubmittedAt), nullTime(p.EvaluationCorrectedAt), nullInt(p.EvaluationScore),
		nullBool(p.EvaluationPassed), p.CorrectorComment, nullTime(p.HabilitationGrantedAt),
		nullTime(p.HabilitationExpiryDate), p.AssignedBy, p.AssignedAt, nullTime(p.CompletedAt),
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create path progress: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, progressID id.PathProgressID) (*models.PathProgress, error) {
	query := selectColumns + ` WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(progressID))
	p, err := scanPathProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get path progress: %w", err)
	}
	return p, nil
}

func (s *Store) Update(ctx context.Context, p *models.PathProgress) error {
	query := `
		UPDATE path_progress
		SET status = $1, version = version + 1,
		    training_started_at = $2, training_completed_at = $3, training_score = $4,
		    evaluation_available_date = $5, evaluation_started_at = $6,
		    evaluation_submitted_at = $7, evaluation_corrected_at = $8,
		    evaluation_score = $9, evaluation_passed = $10, corrector_comment = $11,
		    habilitation_granted_at = $12, habilitation_expiry_date = $13,
		    completed_at = $14
		WHERE id = $15 AND version = $16`
	res, err := s.db.ExecContext(ctx, query,
		string(p.Status),
		nullTime(p.TrainingStartedAt), nullTime(p.TrainingCompletedAt), nullInt(p.TrainingScore),
		nullTime(p.EvaluationAvailableDate), nullTime(p.EvaluationStartedAt),
		nullTime(p.EvaluationSubmittedAt), nullTime(p.EvaluationCorrectedAt),
		nullInt(p.EvaluationScore), nullBool(p.EvaluationPassed), p.CorrectorComment,
		nullTime(p.HabilitationGrantedAt), nullTime(p.HabilitationExpiryDate),
		nullTime(p.CompletedAt),
		uuid.UUID(p.ID), p.Version,
	)
	if err != nil {
		return fmt.Errorf("update path progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update path progress: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM path_progress WHERE id = $1)`, uuid.UUID(p.ID)).Scan(&exists); err != nil {
			return fmt.Errorf("update path progress: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrStaleVersion
	}
	p.Version++
	return nil
}

func (s *Store) ListByCandidate(ctx context.Context, candidateID id.SubjectID) ([]*models.PathProgress, error) {
	query := selectColumns + ` WHERE candidate_id = $1 ORDER BY assigned_at`
	return s.list(ctx, query, uuid.UUID(candidateID))
}

func (s *Store) ListByCandidatePath(ctx context.Context, candidateID id.SubjectID, pathID id.PathID) ([]*models.PathProgress, error) {
	query := selectColumns + ` WHERE candidate_id = $1 AND path_id = $2 ORDER BY assigned_at`
	return s.list(ctx, query, uuid.UUID(candidateID), string(pathID))
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*models.PathProgress, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list path progress: %w", err)
	}
	defer rows.Close()

	var out []*models.PathProgress
	for rows.Next() {
		p, err := scanPathProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan path progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate path progress: %w", err)
	}
	return out, nil
}

const selectColumns = `
	SELECT id, path_id, candidate_id, candidate_type, status, version,
	       training_started_at, training_completed_at, training_score,
	       evaluation_available_date, evaluation_started_at,
	       evaluation_submitted_at, evaluation_corrected_at, evaluation_score,
	       evaluation_passed, corrector_comment, habilitation_granted_at,
	       habilitation_expiry_date, assigned_by, assigned_at, completed_at
	FROM path_progress`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPathProgress(row rowScanner) (*models.PathProgress, error) {
	var (
		p                  models.PathProgress
		rowID, candidate   uuid.UUID
		path, ctype, state string
		trainStart         sql.NullTime
		trainDone          sql.NullTime
		trainScore         sql.NullInt64
		evalAvail          sql.NullTime
		evalStart          sql.NullTime
		evalSubmit         sql.NullTime
		evalCorrect        sql.NullTime
		evalScore          sql.NullInt64
		evalPassed         sql.NullBool
		habGranted         sql.NullTime
		habExpiry          sql.NullTime
		completedAt        sql.NullTime
	)
	if err := row.Scan(&rowID, &path, &candidate, &ctype, &state, &p.Version,
		&trainStart, &trainDone, &trainScore,
		&evalAvail, &evalStart, &evalSubmit, &evalCorrect, &evalScore,
		&evalPassed, &p.CorrectorComment, &habGranted,
		&habExpiry, &p.AssignedBy, &p.AssignedAt, &completedAt); err != nil {
		return nil, err
	}
	p.ID = id.PathProgressID(rowID)
	p.PathID = id.PathID(path)
	p.CandidateID = id.SubjectID(candidate)
	p.CandidateType = id.CandidateType(ctype)
	p.Status = models.Status(state)
	p.TrainingStartedAt = timePtr(trainStart)
	p.TrainingCompletedAt = timePtr(trainDone)
	p.TrainingScore = intPtr(trainScore)
	p.EvaluationAvailableDate = timePtr(evalAvail)
	p.EvaluationStartedAt = timePtr(evalStart)
	p.EvaluationSubmittedAt = timePtr(evalSubmit)
	p.EvaluationCorrectedAt = timePtr(evalCorrect)
	p.EvaluationScore = intPtr(evalScore)
	p.EvaluationPassed = boolPtr(evalPassed)
	p.HabilitationGrantedAt = timePtr(habGranted)
	p.HabilitationExpiryDate = timePtr(habExpiry)
	p.CompletedAt = timePtr(completedAt)
	return &p, nil
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

func nullBool(value *bool) sql.NullBool {
	if value == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *value, Valid: true}
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

func boolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
