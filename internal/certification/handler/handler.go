// Package handler is the HTTP layer over the certification orchestrator.
// Note the absent route: there is no endpoint that writes a habilitation.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certrail/internal/certification/models"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/httputil"
	"certrail/pkg/requestcontext"
)

// Service defines the interface for certification pathway operations.
type Service interface {
	AssignPath(ctx context.Context, pathID id.PathID, candidateID id.SubjectID, candidateType id.CandidateType, assignedBy string) (*models.PathProgress, error)
	MarkTrainingStarted(ctx context.Context, progressID id.PathProgressID) (*models.PathProgress, error)
	MarkTrainingCompleted(ctx context.Context, progressID id.PathProgressID, score *int) (*models.PathProgress, error)
	StartEvaluation(ctx context.Context, progressID id.PathProgressID) (*models.PathProgress, error)
	SubmitEvaluation(ctx context.Context, progressID id.PathProgressID, score int) (*models.PathProgress, error)
	Correct(ctx context.Context, progressID id.PathProgressID, finalScore *int, comment string) (*models.PathProgress, error)
	Get(ctx context.Context, progressID id.PathProgressID) (*models.PathProgress, error)
	ListByCandidate(ctx context.Context, candidateID id.SubjectID) ([]*models.PathProgress, error)
	CurrentProgress(ctx context.Context, candidateID id.SubjectID, pathID id.PathID) (*models.PathProgress, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the certification routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certifications", h.handleAssignPath)
	r.Get("/certifications/{id}", h.handleGet)
	r.Post("/certifications/{id}/training/start", h.handleMarkTrainingStarted)
	r.Post("/certifications/{id}/training/complete", h.handleMarkTrainingCompleted)
	r.Post("/certifications/{id}/evaluation/start", h.handleStartEvaluation)
	r.Post("/certifications/{id}/evaluation/submit", h.handleSubmitEvaluation)
	r.Post("/certifications/{id}/evaluation/correct", h.handleCorrect)
	r.Get("/subjects/{subjectID}/certifications", h.handleListByCandidate)
	r.Get("/subjects/{subjectID}/certifications/{pathID}/current", h.handleCurrentProgress)
}

type assignRequest struct {
	PathID        string `json:"path_id"`
	CandidateID   string `json:"candidate_id"`
	CandidateType string `json:"candidate_type"`
}

type trainingCompleteRequest struct {
	Score *int `json:"score,omitempty"`
}

type submitRequest struct {
	Score int `json:"score"`
}

type correctRequest struct {
	FinalScore *int   `json:"final_score,omitempty"`
	Comment    string `json:"comment"`
}

type pathProgressResponse struct {
	ID            string `json:"id"`
	PathID        string `json:"path_id"`
	CandidateID   string `json:"candidate_id"`
	CandidateType string `json:"candidate_type"`
	Status        string `json:"status"`

	TrainingStartedAt   *time.Time `json:"training_started_at,omitempty"`
	TrainingCompletedAt *time.Time `json:"training_completed_at,omitempty"`
	TrainingScore       *int       `json:"training_score,omitempty"`

	EvaluationAvailableDate *time.Time `json:"evaluation_available_date,omitempty"`
	EvaluationStartedAt     *time.Time `json:"evaluation_started_at,omitempty"`
	EvaluationSubmittedAt   *time.Time `json:"evaluation_submitted_at,omitempty"`
	EvaluationCorrectedAt   *time.Time `json:"evaluation_corrected_at,omitempty"`
	EvaluationScore         *int       `json:"evaluation_score,omitempty"`
	EvaluationPassed        *bool      `json:"evaluation_passed,omitempty"`
	CorrectorComment        string     `json:"corrector_comment,omitempty"`

	HabilitationGrantedAt  *time.Time `json:"habilitation_granted_at,omitempty"`
	HabilitationExpiryDate *time.Time `json:"habilitation_expiry_date,omitempty"`

	AssignedBy  string     `json:"assigned_by"`
	AssignedAt  time.Time  `json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toResponse(p *models.PathProgress, now time.Time) pathProgressResponse {
	return pathProgressResponse{
		ID:                      p.ID.String(),
		PathID:                  string(p.PathID),
		CandidateID:             p.CandidateID.String(),
		CandidateType:           p.CandidateType.String(),
		Status:                  p.EffectiveStatus(now).String(),
		TrainingStartedAt:       p.TrainingStartedAt,
		TrainingCompletedAt:     p.TrainingCompletedAt,
		TrainingScore:           p.TrainingScore,
		EvaluationAvailableDate: p.EvaluationAvailableDate,
		EvaluationStartedAt:     p.EvaluationStartedAt,
		EvaluationSubmittedAt:   p.EvaluationSubmittedAt,
		EvaluationCorrectedAt:   p.EvaluationCorrectedAt,
		EvaluationScore:         p.EvaluationScore,
		EvaluationPassed:        p.EvaluationPassed,
		CorrectorComment:        p.CorrectorComment,
		HabilitationGrantedAt:   p.HabilitationGrantedAt,
		HabilitationExpiryDate:  p.HabilitationExpiryDate,
		AssignedBy:              p.AssignedBy,
		AssignedAt:              p.AssignedAt,
		CompletedAt:             p.CompletedAt,
	}
}

func (h *Handler) handleAssignPath(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid assign request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	candidateID, err := id.ParseSubjectID(req.CandidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	candidateType, err := id.ParseCandidateType(req.CandidateType)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.AssignPath(ctx, id.PathID(req.PathID), candidateID, candidateType, requestcontext.ActorID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(p, requestcontext.Now(ctx)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.withProgress(w, r, h.service.Get)
}

func (h *Handler) handleMarkTrainingStarted(w http.ResponseWriter, r *http.Request) {
	h.withProgress(w, r, h.service.MarkTrainingStarted)
}

func (h *Handler) handleStartEvaluation(w http.ResponseWriter, r *http.Request) {
	h.withProgress(w, r, h.service.StartEvaluation)
}

func (h *Handler) handleMarkTrainingCompleted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	progressID, err := id.ParsePathProgressID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req trainingCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid training complete request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	p, err := h.service.MarkTrainingCompleted(ctx, progressID, req.Score)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p, requestcontext.Now(ctx)))
}

func (h *Handler) handleSubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	progressID, err := id.ParsePathProgressID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid submit request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	p, err := h.service.SubmitEvaluation(ctx, progressID, req.Score)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p, requestcontext.Now(ctx)))
}

func (h *Handler) handleCorrect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	progressID, err := id.ParsePathProgressID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req correctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid correct request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	p, err := h.service.Correct(ctx, progressID, req.FinalScore, req.Comment)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p, requestcontext.Now(ctx)))
}

func (h *Handler) handleListByCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidateID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListByCandidate(ctx, candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	now := requestcontext.Now(ctx)
	out := make([]pathProgressResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toResponse(p, now))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"certifications": out})
}

func (h *Handler) handleCurrentProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidateID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pathID := id.PathID(chi.URLParam(r, "pathID"))
	if pathID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "path id is required"))
		return
	}
	p, err := h.service.CurrentProgress(ctx, candidateID, pathID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p, requestcontext.Now(ctx)))
}

func (h *Handler) withProgress(w http.ResponseWriter, r *http.Request, op func(context.Context, id.PathProgressID) (*models.PathProgress, error)) {
	ctx := r.Context()
	progressID, err := id.ParsePathProgressID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := op(ctx, progressID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p, requestcontext.Now(ctx)))
}

func (h *Handler) logWarn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
