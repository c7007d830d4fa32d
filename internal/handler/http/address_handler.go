package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/product-management/internal/address"
	"github.com/vasiliy-maslov/product-management/internal/auth"
)

type AddressRequest struct {
	Street  string `json:"street" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"required,max=100"`
	ZipCode string `json:"zip_code" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

func (req AddressRequest) toAddress() *address.Address {
	return &address.Address{
		Street:  req.Street,
		City:    req.City,
		State:   req.State,
		ZipCode: req.ZipCode,
		Country: req.Country,
	}
}

type AddressHandler struct {
	service  address.Service
	validate *validator.Validate
}

func NewAddressHandler(service address.Service) *AddressHandler {
	return &AddressHandler{service: service, validate: newValidator()}
}

func (h *AddressHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.Group(func(r chi.Router) {
		r.Use(authn.Require(auth.CapAddressBook))
		r.Get("/addresses", h.handleList)
		r.Post("/addresses", h.handleCreate)
		r.Get("/addresses/{id}", h.handleGet)
		r.Put("/addresses/{id}", h.handleUpdate)
		r.Delete("/addresses/{id}", h.handleDelete)
	})
}

func (h *AddressHandler) handleList(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.service.List(r.Context(), caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Addresses retrieved", addresses)
}

func (h *AddressHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	created, err := h.service.Add(r.Context(), caller(r).UserID, req.toAddress())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusCreated, "Address created successfully", created)
}

func (h *AddressHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.service.GetOwned(r.Context(), id, caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Address retrieved", a)
}

func (h *AddressHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AddressRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	updated, err := h.service.Update(r.Context(), id, caller(r).UserID, req.toAddress())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Address updated successfully", updated)
}

func (h *AddressHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, caller(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "Address deleted successfully", nil)
}
