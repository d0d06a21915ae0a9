package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yashagency/storefront-client/internal/store"
)

// ConsentHandler persists the cookie-consent choice so UI surfaces show the
// banner only once per profile.
type ConsentHandler struct {
	st store.Store
}

func NewConsentHandler(st store.Store) *ConsentHandler {
	return &ConsentHandler{st: st}
}

type ConsentDTO struct {
	CookieConsent string `json:"cookieConsent"`
}

func (h *ConsentHandler) GetConsent(w http.ResponseWriter, r *http.Request) {
	value, err := h.st.Get(r.Context(), store.KeyCookieConsent)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, "store_error", "could not read consent")
		return
	}
	respondJSON(w, http.StatusOK, ConsentDTO{CookieConsent: string(value)})
}

func (h *ConsentHandler) SetConsent(w http.ResponseWriter, r *http.Request) {
	var req ConsentDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.CookieConsent == "" {
		respondError(w, http.StatusBadRequest, "invalid_consent", "cookieConsent is required")
		return
	}

	if err := h.st.Set(r.Context(), store.KeyCookieConsent, []byte(req.CookieConsent)); err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", "could not persist consent")
		return
	}
	respondJSON(w, http.StatusOK, req)
}
