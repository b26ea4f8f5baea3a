// Package handler exposes the compliance reports over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"certrail/internal/compliance"
	training "certrail/internal/training/models"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/httputil"
	"certrail/pkg/requestcontext"
)

// Service defines the interface for compliance reporting.
type Service interface {
	SubjectRate(ctx context.Context, subjectID id.SubjectID) (int, error)
	PopulationRate(ctx context.Context, subjectIDs []id.SubjectID) (int, error)
	TrainingCounts(ctx context.Context, subjectID id.SubjectID) (compliance.TrainingCounts, error)
	ExpiringCertificates(ctx context.Context, subjectID id.SubjectID, windowDays int) ([]*training.Progress, error)
	HabilitationSummary(ctx context.Context, subjectID id.SubjectID) (compliance.HabilitationSummary, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the compliance routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/subjects/{subjectID}/compliance", h.handleSubjectReport)
	r.Get("/subjects/{subjectID}/compliance/expiring", h.handleExpiringCertificates)
	r.Post("/compliance/population", h.handlePopulationRate)
}

type populationRequest struct {
	SubjectIDs []string `json:"subject_ids"`
}

type subjectReport struct {
	SubjectID     string                         `json:"subject_id"`
	Rate          int                            `json:"rate"`
	Trainings     compliance.TrainingCounts      `json:"trainings"`
	Habilitations compliance.HabilitationSummary `json:"habilitations"`
}

type expiringEntry struct {
	TrainingID string    `json:"training_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (h *Handler) handleSubjectReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "subjectID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rate, err := h.service.SubjectRate(ctx, subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	counts, err := h.service.TrainingCounts(ctx, subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	summary, err := h.service.HabilitationSummary(ctx, subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subjectReport{
		SubjectID:     subjectID.String(),
		Rate:          rate,
		Trainings:     counts,
		Habilitations: summary,
	})
}

func (h *Handler) handleExpiringCertificates(w http.ResponseWriter, r *http.Request) {
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
	list, err := h.service.ExpiringCertificates(ctx, subjectID, windowDays)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]expiringEntry, 0, len(list))
	for _, p := range list {
		out = append(out, expiringEntry{TrainingID: string(p.TrainingID), ExpiresAt: *p.ExpiresAt})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"expiring": out})
}

func (h *Handler) handlePopulationRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req populationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logWarn(ctx, "invalid population request", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	subjectIDs := make([]id.SubjectID, 0, len(req.SubjectIDs))
	for _, raw := range req.SubjectIDs {
		subjectID, err := id.ParseSubjectID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		subjectIDs = append(subjectIDs, subjectID)
	}
	rate, err := h.service.PopulationRate(ctx, subjectIDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"rate": rate})
}

func (h *Handler) logWarn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
