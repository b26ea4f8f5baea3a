package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"certrail/internal/certification/handler/mocks"
	"certrail/internal/certification/models"
	id "certrail/pkg/domain"
	dErrors "certrail/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/certification-mocks.go -package=mocks Service
type CertificationHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *CertificationHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestCertificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(CertificationHandlerSuite))
}

func newTestHandler(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func (s *CertificationHandlerSuite) TestHandleAssignPath() {
	r, mockService := newTestHandler(s.T())
	candidate := id.NewSubjectID()
	assignedAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mockService.EXPECT().AssignPath(
		gomock.Any(),
		id.PathID("path-crane-operator"),
		candidate,
		id.CandidateEmployee,
		gomock.Any(),
	).Return(&models.PathProgress{
		ID:            id.NewPathProgressID(),
		PathID:        "path-crane-operator",
		CandidateID:   candidate,
		CandidateType: id.CandidateEmployee,
		Status:        models.StatusAssigned,
		AssignedAt:    assignedAt,
	}, nil)

	body, err := json.Marshal(map[string]string{
		"path_id":        "path-crane-operator",
		"candidate_id":   candidate.String(),
		"candidate_type": "employee",
	})
	require.NoError(s.T(), err)

	req := httptest.NewRequest(http.MethodPost, "/certifications", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "assigned", resp["status"])
	assert.Equal(s.T(), candidate.String(), resp["candidate_id"])
}

func (s *CertificationHandlerSuite) TestHandleAssignPath_InvalidCandidateType() {
	r, _ := newTestHandler(s.T())

	body, _ := json.Marshal(map[string]string{
		"path_id":        "path-crane-operator",
		"candidate_id":   id.NewSubjectID().String(),
		"candidate_type": "robot",
	})
	req := httptest.NewRequest(http.MethodPost, "/certifications", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *CertificationHandlerSuite) TestHandleSubmitEvaluation() {
	r, mockService := newTestHandler(s.T())
	progressID := id.NewPathProgressID()
	passed := true
	score := 78
	mockService.EXPECT().SubmitEvaluation(gomock.Any(), progressID, 78).
		Return(&models.PathProgress{
			ID:               progressID,
			PathID:           "path-crane-operator",
			CandidateID:      id.NewSubjectID(),
			Status:           models.StatusHabilitationActive,
			EvaluationScore:  &score,
			EvaluationPassed: &passed,
		}, nil)

	body, _ := json.Marshal(map[string]int{"score": 78})
	req := httptest.NewRequest(http.MethodPost, "/certifications/"+progressID.String()+"/evaluation/submit", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "habilitation_active", resp["status"])
	assert.Equal(s.T(), true, resp["evaluation_passed"])
}

func (s *CertificationHandlerSuite) TestHandleSubmitEvaluation_StaleLoser() {
	r, mockService := newTestHandler(s.T())
	progressID := id.NewPathProgressID()
	mockService.EXPECT().SubmitEvaluation(gomock.Any(), progressID, 90).
		Return(nil, dErrors.New(dErrors.CodeStaleTransition, "path progress changed concurrently"))

	body, _ := json.Marshal(map[string]int{"score": 90})
	req := httptest.NewRequest(http.MethodPost, "/certifications/"+progressID.String()+"/evaluation/submit", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusConflict, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "stale_transition", resp["error"])
}

func (s *CertificationHandlerSuite) TestHandleGet_InvalidID() {
	r, _ := newTestHandler(s.T())

	req := httptest.NewRequest(http.MethodGet, "/certifications/not-a-uuid", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *CertificationHandlerSuite) TestHandleCorrect() {
	r, mockService := newTestHandler(s.T())
	progressID := id.NewPathProgressID()
	finalScore := 72
	mockService.EXPECT().Correct(gomock.Any(), progressID, &finalScore, "two answers misgraded").
		Return(&models.PathProgress{
			ID:               progressID,
			PathID:           "path-crane-operator",
			CandidateID:      id.NewSubjectID(),
			Status:           models.StatusHabilitationActive,
			CorrectorComment: "two answers misgraded",
		}, nil)

	body, _ := json.Marshal(map[string]any{"final_score": 72, "comment": "two answers misgraded"})
	req := httptest.NewRequest(http.MethodPost, "/certifications/"+progressID.String()+"/evaluation/correct", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "two answers misgraded", resp["corrector_comment"])
}
