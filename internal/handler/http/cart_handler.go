package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/product-management/internal/auth"
	"github.com/vasiliy-maslov/product-management/internal/cart"
)

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{service: service, validate: newValidator()}
}

func (h *CartHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.Group(func(r chi.Router) {
		r.Use(authn.Require(auth.CapCart))
		r.Get("/cart", h.handleGet)
		r.Delete("/cart", h.handleClear)
		r.Post("/cart/items", h.handleAddItem)
		r.Put("/cart/items/{id}", h.handleUpdateItem)
		r.Delete("/cart/items/{id}", h.handleRemoveItem)
	})
}

func (h *CartHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetCart(r.Context(), caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Cart retrieved", view)
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	view, err := h.service.AddItem(r.Context(), caller(r).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Item added to cart", view)
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	view, err := h.service.UpdateItem(r.Context(), caller(r).UserID, itemID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Cart item updated", view)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.service.RemoveItem(r.Context(), caller(r).UserID, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Item removed from cart", view)
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), caller(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Cart cleared", nil)
}
