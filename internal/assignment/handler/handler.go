// Package handler is the thin HTTP layer over the assignment service. It
// parses IDs at the trust boundary and delegates every decision downstream.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certrail/internal/assignment/models"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/httputil"
	"certrail/pkg/requestcontext"
)

// Service defines the interface for assignment operations.
type Service interface {
	Assign(ctx context.Context, contentID id.ContentID, subjectID id.SubjectID, dueDate, reminderDate *time.Time) (*models.Assignment, error)
	MarkReceived(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	MarkAsRead(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	Acknowledge(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	StartTraining(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	UpdateProgress(ctx context.Context, assignmentID id.AssignmentID, percent int) (*models.Assignment, error)
	CompleteTraining(ctx context.Context, assignmentID id.AssignmentID, score int, certificateRef string) (*models.Assignment, error)
	Reset(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	Get(ctx context.Context, assignmentID id.AssignmentID) (*models.Assignment, error)
	ListBySubject(ctx context.Context, subjectID id.SubjectID) ([]*models.Assignment, error)
}

// Handler handles assignment endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the assignment routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/assignments", h.handleAssign)
	r.Get("/assignments/{id}", h.handleGet)
	r.Post("/assignments/{id}/received", h.handleMarkReceived)
	r.Post("/assignments/{id}/read", h.handleMarkAsRead)
	r.Post("/assignments/{id}/acknowledge", h.handleAcknowledge)
	r.Post("/assignments/{id}/start", h.handleStartTraining)
	r.Post("/assignments/{id}/progress", h.handleUpdateProgress)
	r.Post("/assignments/{id}/complete", h.handleCompleteTraining)
	r.Post("/assignments/{id}/reset", h.handleReset)
	r.Get("/subjects/{subjectID}/assignments", h.handleListBySubject)
}

type assignRequest struct {
	ContentID    string     `json:"content_id"`
	SubjectID    string     `json:"subject_id"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderDate *time.Time `json:"reminder_date,omitempty"`
}

type progressRequest struct {
	Percent int `json:"percent"`
}

type completeRequest struct {
	Score          int    `json:"score"`
	CertificateRef string `json:"certificate_ref,omitempty"`
}

type assignmentResponse struct {
	ID              string     `json:"id"`
	ContentID       string     `json:"content_id"`
	SubjectID       string     `json:"subject_id"`
	Status          string     `json:"status"`
	AssignedAt      time.Time  `json:"assigned_at"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	ReminderDate    *time.Time `json:"reminder_date,omitempty"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Score           *int       `json:"score,omitempty"`
	ProgressPercent *int       `json:"progress_percent,omitempty"`
	CertificateRef  string     `json:"certificate_ref,omitempty"`
}

func toResponse(a *models.Assignment, now time.Time) assignmentResponse {
	return assignmentResponse{
		ID:              a.ID.String(),
		ContentID:       string(a.ContentID),
		SubjectID:       a.SubjectID.String(),
		Status:          a.EffectiveStatus(now).String(),
		AssignedAt:      a.AssignedAt,
		DueDate:         a.DueDate,
		ReminderDate:    a.ReminderDate,
		ReadAt:          a.ReadAt,
		AcknowledgedAt:  a.AcknowledgedAt,
		StartedAt:       a.StartedAt,
		CompletedAt:     a.CompletedAt,
		Score:           a.Score,
		ProgressPercent: a.ProgressPercent,
		CertificateRef:  a.CertificateRef,
	}
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid assign request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	subjectID, err := id.ParseSubjectID(req.SubjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.service.Assign(ctx, id.ContentID(req.ContentID), subjectID, req.DueDate, req.ReminderDate)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(a, requestcontext.Now(ctx)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, h.service.Get)
}

func (h *Handler) handleMarkReceived(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, h.service.MarkReceived)
}

func (h *Handler) handleMarkAsRead(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, h.service.MarkAsRead)
}

func (h *Handler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, h.service.Acknowledge)
}

func (h *Handler) handleStartTraining(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, h.service.StartTraining)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.withAssignment(w, r, h.service.Reset)
}

func (h *Handler) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assignmentID, err := id.ParseAssignmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid progress request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	a, err := h.service.UpdateProgress(ctx, assignmentID, req.Percent)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(a, requestcontext.Now(ctx)))
}

func (h *Handler) handleCompleteTraining(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assignmentID, err := id.ParseAssignmentID(chi.URLParam(r, "id"))
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
	a, err := h.service.CompleteTraining(ctx, assignmentID, req.Score, req.CertificateRef)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(a, requestcontext.Now(ctx)))
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
	now := requestcontext.Now(ctx)
	out := make([]assignmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a, now))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"assignments": out})
}

func (h *Handler) withAssignment(w http.ResponseWriter, r *http.Request, op func(context.Context, id.AssignmentID) (*models.Assignment, error)) {
	ctx := r.Context()
	assignmentID, err := id.ParseAssignmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := op(ctx, assignmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(a, requestcontext.Now(ctx)))
}

func (h *Handler) logWarn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
