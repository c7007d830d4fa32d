package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/product-management/internal/auth"
	"github.com/vasiliy-maslov/product-management/internal/order"
)

type CheckoutRequest struct {
	AddressID uuid.UUID `json:"address_id" validate:"required"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING CONFIRMED SHIPPED DELIVERED CANCELLED"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{service: service, validate: newValidator()}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.With(authn.Require(auth.CapPlaceOrder)).Post("/orders/checkout", h.handleCheckout)

	router.Group(func(r chi.Router) {
		r.Use(authn.Require(auth.CapOwnOrders))
		r.Get("/orders", h.handleListOwn)
		r.Get("/orders/{id}", h.handleGet)
	})

	router.Group(func(r chi.Router) {
		r.Use(authn.Require(auth.CapOrderAdmin))
		r.Get("/orders/all", h.handleListAll)
		r.Put("/orders/{id}/status", h.handleUpdateStatus)
	})
}

func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	placed, err := h.service.PlaceOrder(r.Context(), caller(r).UserID, req.AddressID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Order placed successfully", placed)
}

func (h *OrderHandler) handleListOwn(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.GetUserOrders(r.Context(), caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Orders retrieved", orders)
}

func (h *OrderHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.service.GetOrderByID(r.Context(), id, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Order retrieved", o)
}

func (h *OrderHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.GetAllOrders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Orders retrieved", orders)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	updated, err := h.service.UpdateOrderStatus(r.Context(), id, order.OrderStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Order status updated", updated)
}
