package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/product-management/internal/auth"
	"github.com/vasiliy-maslov/product-management/internal/user"
)

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER ADMIN SUPER_ADMIN"`
}

// UserHandler serves account administration.
type UserHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewUserHandler(service user.Service) *UserHandler {
	return &UserHandler{service: service, validate: newValidator()}
}

func (h *UserHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.Group(func(r chi.Router) {
		r.Use(authn.Require(auth.CapUserAdmin))
		r.Get("/users", h.handleListUsers)
		r.Get("/users/{id}", h.handleGetUserByID)
		r.Put("/users/{id}/role", h.handleUpdateRole)
		r.Delete("/users/{id}", h.handleDeleteUser)
	})
}

func (h *UserHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]UserResponse, 0, len(users))
	for i := range users {
		response = append(response, toUserResponse(&users[i]))
	}
	respondWithData(w, http.StatusOK, "Users retrieved", response)
}

func (h *UserHandler) handleGetUserByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	foundUser, err := h.service.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "User retrieved", toUserResponse(foundUser))
}

func (h *UserHandler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	updated, err := h.service.UpdateRole(r.Context(), userID, user.Role(req.Role))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "User role updated", toUserResponse(updated))
}

func (h *UserHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "User deleted successfully", nil)
}
