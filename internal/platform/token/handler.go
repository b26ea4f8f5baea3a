package token

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "certrail/pkg/domain-errors"
	"certrail/pkg/platform/httputil"
)

const defaultTokenTTL = time.Hour

// Handler exposes the client-credentials exchange. It mounts outside the
// auth boundary since it is how callers obtain their first token.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the token route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/token", h.handleExchange)
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (h *Handler) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ClientID == "" || req.ClientSecret == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "client_id and client_secret are required"))
		return
	}

	signed, err := h.service.Exchange(req.ClientID, req.ClientSecret, defaultTokenTTL)
	if err != nil {
		h.logger.Warn("token exchange failed", "client_id", req.ClientID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(defaultTokenTTL.Seconds()),
	})
}
