package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
	"github.com/vasiliy-maslov/product-management/internal/auth"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload Response) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Failed to marshal JSON response","data":null}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondWithData(w http.ResponseWriter, code int, message string, data any) {
	respondWithJSON(w, code, Response{Success: true, Message: message, Data: data})
}

// respondWithError отправляет JSON ошибку
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, Response{Success: false, Message: message})
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInsufficientInventory):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error to a response. Internal failures never
// leak their detail to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", requestID(r)).
			Str("path", r.URL.Path).
			Msg("Request failed")
		respondWithError(w, code, "Internal server error")
		return
	}

	log.Warn().Err(err).
		Str("request_id", requestID(r)).
		Str("path", r.URL.Path).
		Int("status", code).
		Msg("Request rejected")
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	respondWithError(w, code, apperr.Message(err, http.StatusText(code)))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			details[field] = "is required"
		case "email":
			details[field] = "must be a valid email address"
		case "min":
			details[field] = fmt.Sprintf("must be at least %s", fe.Param())
		case "max":
			details[field] = fmt.Sprintf("must be at most %s", fe.Param())
		case "gt":
			details[field] = fmt.Sprintf("must be greater than %s", fe.Param())
		case "gte":
			details[field] = fmt.Sprintf("must be greater than or equal to %s", fe.Param())
		case "oneof":
			details[field] = fmt.Sprintf("must be one of: %s", fe.Param())
		default:
			details[field] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		}
	}
	return details
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the handler may
// continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload: %v", err))
		return false
	}

	err := v.Struct(dst)
	if err == nil {
		return true
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Message: "Validation failed",
			Data:    formatValidationErrors(validationErrors),
		})
		return false
	}

	log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
	respondWithError(w, http.StatusInternalServerError, "Internal validation error")
	return false
}

// pathID parses a UUID URL parameter, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	param := chi.URLParam(r, name)
	id, err := uuid.FromString(param)
	if err != nil {
		log.Warn().Err(err).Str(name, param).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s parameter", name))
		return uuid.Nil, false
	}
	return id, true
}

// caller returns the authenticated principal. Routes that use it are
// always behind Require, so a nil principal is a wiring bug.
func caller(r *http.Request) *auth.Principal {
	p := auth.FromContext(r.Context())
	if p == nil {
		panic("handler: route requires an authenticated caller")
	}
	return p
}
