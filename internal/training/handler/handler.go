// Package handler is the HTTP layer over the training progress tracker.
// Routes are keyed by the (subject, training) pair rather than the progress
// row ID, matching how callers think about training state.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"certrail/internal/training/models"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/httputil"
	"certrail/pkg/requestcontext"
)

// Service defines the interface for training progress operations.
type Service interface {
	Start(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error)
	CompleteModule(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID, moduleID id.ModuleID) (*models.Progress, error)
	RecordAssessmentResult(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID, assessmentID id.AssessmentID, score int, passed bool) (*models.Progress, error)
	Complete(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID, validityMonths int) (*models.Progress, error)
	Reset(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error)
	Get(ctx context.Context, subjectID id.SubjectID, trainingID id.TrainingID) (*models.Progress, error)
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Progress, error)
	ExpiringSoon(ctx context.Context, subjectID id.SubjectID, windowDays int) ([]*models.Progress, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the training routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/subjects/{subjectID}/trainings", h.handleListBySubject)
	r.Get("/subjects/{subjectID}/trainings/expiring", h.handleExpiringSoon)
	r.Get("/subjects/{subjectID}/trainings/{trainingID}", h.handleGet)
	r.Post("/subjects/{subjectID}/trainings/{trainingID}/start", h.handleStart)
	r.Post("/subjects/{subjectID}/trainings/{trainingID}/modules", h.handleCompleteModule)
	r.Post("/subjects/{subjectID}/trainings/{trainingID}/assessments", h.handleRecordAssessment)
	r.Post("/subjects/{subjectID}/trainings/{trainingID}/complete", h.handleComplete)
	r.Post("/subjects/{subjectID}/trainings/{trainingID}/reset", h.handleReset)
}

type moduleRequest struct {
	ModuleID string `json:"module_id"`
}

type assessmentRequest struct {
	AssessmentID string `json:"assessment_id"`
	Score        int    `json:"score"`
	Passed       bool   `json:"passed"`
}

type completeRequest struct {
	ValidityMonths int `json:"validity_months"`
}

type assessmentResponse struct {
	AssessmentID string    `json:"assessment_id"`
	Score        int       `json:"score"`
	Passed       bool      `json:"passed"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type progressResponse struct {
	ID                  string               `json:"id"`
	SubjectID           string               `json:"subject_id"`
	TrainingID          string               `json:"training_id"`
	Status              string               `json:"status"`
	CompletedModuleIDs  []string             `json:"completed_module_ids"`
	AssessmentResults   []assessmentResponse `json:"assessment_results,omitempty"`
	StartedAt           *time.Time           `json:"started_at,omitempty"`
	CompletedAt         *time.Time           `json:"completed_at,omitempty"`
	CertificateIssuedAt *time.Time           `json:"certificate_issued_at,omitempty"`
	ExpiresAt           *time.Time           `json:"expires_at,omitempty"`
}

func toResponse(p *models.Progress, now time.Time) progressResponse {
	modules := make([]string, 0, len(p.CompletedModuleIDs))
	for _, m := range p.CompletedModuleIDs {
		modules = append(modules, string(m))
	}
	results := make([]assessmentResponse, 0, len(p.AssessmentResults))
	for _, res := range p.AssessmentResults {
		results = append(results, assessmentResponse{
			AssessmentID: string(res.AssessmentID),
			Score:        res.Score,
			Passed:       res.Passed,
			SubmittedAt:  res.SubmittedAt,
		})
	}
	return progressResponse{
		ID:                  p.ID.String(),
		SubjectID:           p.SubjectID.String(),
		TrainingID:          string(p.TrainingID),
		Status:              p.EffectiveStatus(now).String(),
		CompletedModuleIDs:  modules,
		AssessmentResults:   results,
		StartedAt:           p.StartedAt,
		CompletedAt:         p.CompletedAt,
		CertificateIssuedAt: p.CertificateIssuedAt,
		ExpiresAt:           p.ExpiresAt,
	}
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	h.withPair(w, r, h.service.Start)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.withPair(w, r, h.service.Get)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.withPair(w, r, h.service.Reset)
}

func (h *Handler) handleCompleteModule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, trainingID, err := pairParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req moduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ModuleID == "" {
		h.logWarn(ctx, "invalid module request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	p, err := h.service.CompleteModule(ctx, subjectID, trainingID, id.ModuleID(req.ModuleID))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p, requestcontext.Now(ctx)))
}

func (h *Handler) handleRecordAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, trainingID, err := pairParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req assessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AssessmentID == "" {
		h.logWarn(ctx, "invalid assessment request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	p, err := h.service.RecordAssessmentResult(ctx, subjectID, trainingID, id.AssessmentID(req.AssessmentID), req.Score, req.Passed)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p, requestcontext.Now(ctx)))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, trainingID, err := pairParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid complete request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	p, err := h.service.Complete(ctx, subjectID, trainingID, req.ValidityMonths)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(p, requestcontext.Now(ctx)))
}

func (h *Handler) handleListBySubject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.service.ListBySubject(ctx, subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeList(w, ctx, list)
}

func (h *Handler) handleExpiringSoon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	windowDays := 30
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		windowDays, err = strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "window_days must be an integer"))
			return
		}
	}
	list, err := h.service.ExpiringSoon(ctx, subjectID, windowDays)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeList(w, ctx, list)
}

func (h *Handler) writeList(w http.ResponseWriter, ctx context.Context, list []*models.Progress) {
	now := requestcontext.Now(ctx)
	out := make([]progressResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toResponse(p, now))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"trainings": out})
}

func (h *Handler) withPair(w http.ResponseWriter, r *http.Request, op func(context.Context, id.SubjectID, id.TrainingID) (*models.Progress, error)) {
	ctx := r.Context()
	subjectID, trainingID, err := pairParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := op(ctx, subjectID, trainingID)
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

func pairParams(r *http.Request) (id.SubjectID, id.TrainingID, error) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		return id.SubjectID{}, "", err
	}
	trainingID := id.TrainingID(chi.URLParam(r, "trainingID"))
	if trainingID == "" {
		return id.SubjectID{}, "", dErrors.New(dErrors.CodeInvalidInput, "training id is required")
	}
	return subjectID, trainingID, nil
}
