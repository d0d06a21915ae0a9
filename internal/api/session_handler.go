package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yashagency/storefront-client/internal/domain"
	"github.com/yashagency/storefront-client/internal/session"
)

type SessionHandler struct {
	manager *session.Manager
}

func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponseDTO struct {
	State session.State `json:"state"`
	User  *domain.User  `json:"user,omitempty"`
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "email and password are required")
		return
	}

	user, err := h.manager.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, session.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts, wait and retry")
		return
	case errors.Is(err, session.ErrLoginFailed):
		respondError(w, http.StatusUnauthorized, "login_failed", "invalid email or password")
		return
	case err != nil:
		respondError(w, http.StatusServiceUnavailable, "storefront_unreachable", "could not reach the storefront")
		return
	}

	respondJSON(w, http.StatusOK, SessionResponseDTO{State: h.manager.State(), User: user})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.manager.Logout(r.Context())
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, SessionResponseDTO{
		State: h.manager.State(),
		User:  h.manager.User(),
	})
}
