package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/auth"
	"github.com/vasiliy-maslov/product-management/internal/user"
)

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	Email     string `json:"email" validate:"required,max=255,email"`
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Enabled   bool      `json:"enabled"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func toUserResponse(u *user.User) UserResponse {
	roles := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		roles = append(roles, role.String())
	}
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Enabled:   u.Enabled,
		Roles:     roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type AuthHandler struct {
	service  user.Service
	tokens   *auth.TokenIssuer
	validate *validator.Validate
}

func NewAuthHandler(service user.Service, tokens *auth.TokenIssuer) *AuthHandler {
	return &AuthHandler{
		service:  service,
		tokens:   tokens,
		validate: newValidator(),
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router, authn *auth.Authenticator) {
	router.Post("/auth/register", h.handleRegister)
	router.Post("/auth/login", h.handleLogin)
	router.With(authn.Require(auth.CapProfile)).Get("/auth/me", h.handleMe)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.service.Register(r.Context(), user.Registration{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondWithData(w, http.StatusCreated, "User registered successfully", toUserResponse(created))
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(u)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("Failed to issue token")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithData(w, http.StatusOK, "Login successful", TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      toUserResponse(u),
	})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetByID(r.Context(), caller(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithData(w, http.StatusOK, "User profile retrieved", toUserResponse(u))
}
