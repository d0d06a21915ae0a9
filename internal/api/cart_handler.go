package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yashagency/storefront-client/internal/cart"
	"github.com/yashagency/storefront-client/internal/domain"
)

type CartHandler struct {
	engine *cart.Engine
}

func NewCartHandler(engine *cart.Engine) *CartHandler {
	return &CartHandler{engine: engine}
}

type AddItemRequestDTO struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     float64         `json:"price"`
	Variant   *domain.Variant `json:"selectedVariant,omitempty"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int             `json:"quantity"`
	Variant  *domain.Variant `json:"selectedVariant,omitempty"`
}

type CartResponseDTO struct {
	Cart []domain.CartItem `json:"cart"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: h.engine.Items()})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productId is required")
		return
	}

	h.engine.AddItem(r.Context(), domain.Product{
		ID:    req.ProductID,
		Name:  req.Name,
		Price: req.Price,
	}, req.Variant)

	respondJSON(w, http.StatusCreated, CartResponseDTO{Cart: h.engine.Items()})
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productID is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// quantity <= 0 removes the item
	h.engine.UpdateQuantity(r.Context(), productID, req.Variant, req.Quantity)
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: h.engine.Items()})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "productID is required")
		return
	}

	variant := variantFromQuery(r)
	h.engine.RemoveItem(r.Context(), productID, variant)
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: h.engine.Items()})
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.engine.Clear(r.Context())
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: h.engine.Items()})
}

// Sync replaces the local cart with the server's copy on explicit refresh.
func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	h.engine.Pull(r.Context())
	respondJSON(w, http.StatusOK, CartResponseDTO{Cart: h.engine.Items()})
}

func variantFromQuery(r *http.Request) *domain.Variant {
	size := r.URL.Query().Get("size")
	color := r.URL.Query().Get("color")
	if size == "" && color == "" {
		return nil
	}
	return &domain.Variant{Size: size, Color: color}
}
