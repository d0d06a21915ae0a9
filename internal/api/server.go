package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups everything the local API exposes to UI surfaces. The UI
// never touches storage or the remote API directly; it funnels through the
// sync core via these routes.
type Handlers struct {
	Cart          *CartHandler
	Session       *SessionHandler
	Catalog       *CatalogHandler
	Notifications *NotificationsHandler
	Consent       *ConsentHandler
}

func NewRouter(h Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.Session.GetSession)
			r.Post("/login", h.Session.Login)
			r.Post("/logout", h.Session.Logout)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{productID}", h.Cart.UpdateQuantity)
			r.Delete("/items/{productID}", h.Cart.RemoveItem)
			r.Delete("/", h.Cart.Clear)
			r.Post("/sync", h.Cart.Sync)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Catalog.GetProducts)
			r.Post("/invalidate", h.Catalog.Invalidate)
		})
		r.Get("/notifications", h.Notifications.GetNotifications)
		r.Route("/consent", func(r chi.Router) {
			r.Get("/", h.Consent.GetConsent)
			r.Put("/", h.Consent.SetConsent)
		})
	})

	return r
}
