package api

import (
	"net/http"

	"github.com/yashagency/storefront-client/internal/catalog"
	"github.com/yashagency/storefront-client/internal/domain"
	"github.com/yashagency/storefront-client/internal/notify"
)

type CatalogHandler struct {
	service *catalog.Service
}

func NewCatalogHandler(service *catalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "could not fetch products")
		return
	}
	respondJSON(w, http.StatusOK, map[string][]domain.Product{"products": products})
}

// Invalidate drops the cached catalog after an admin mutation.
func (h *CatalogHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "cache_error", "could not invalidate catalog cache")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type NotificationsHandler struct {
	poller *notify.Poller
}

func NewNotificationsHandler(poller *notify.Poller) *NotificationsHandler {
	return &NotificationsHandler{poller: poller}
}

func (h *NotificationsHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]domain.Notification{
		"notifications": h.poller.Notifications(),
	})
}
