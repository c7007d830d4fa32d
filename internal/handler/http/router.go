package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/address"
	"github.com/vasiliy-maslov/product-management/internal/auth"
	"github.com/vasiliy-maslov/product-management/internal/cart"
	"github.com/vasiliy-maslov/product-management/internal/catalog"
	"github.com/vasiliy-maslov/product-management/internal/order"
	"github.com/vasiliy-maslov/product-management/internal/user"
)

// Pinger reports database liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Users     user.Service
	Catalog   catalog.Service
	Carts     cart.Service
	Orders    order.Service
	Addresses address.Service
	Tokens    *auth.TokenIssuer
	DB        Pinger
}

// NewAuthenticator builds the auth middleware that answers in the API envelope.
func NewAuthenticator(users auth.Users, tokens *auth.TokenIssuer) *auth.Authenticator {
	return auth.NewAuthenticator(users, tokens, writeError)
}

func NewRouter(s Services) *chi.Mux {
	authn := NewAuthenticator(s.Users, s.Tokens)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Resource not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	NewHealthHandler(s.DB).RegisterRoutes(router)

	router.Route("/api", func(r chi.Router) {
		r.Use(authn.Authenticate)

		NewAuthHandler(s.Users, s.Tokens).RegisterRoutes(r, authn)
		NewCategoryHandler(s.Catalog).RegisterRoutes(r, authn)
		NewProductHandler(s.Catalog).RegisterRoutes(r, authn)
		NewCartHandler(s.Carts).RegisterRoutes(r, authn)
		NewOrderHandler(s.Orders).RegisterRoutes(r, authn)
		NewAddressHandler(s.Addresses).RegisterRoutes(r, authn)
		NewUserHandler(s.Users).RegisterRoutes(r, authn)
	})

	return router
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// requestLogger пишет одну строку zerolog на каждый запрос
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			event := log.Info()
			if ww.Status() >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("request_id", requestID(r)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		}()

		next.ServeHTTP(ww, r)
	})
}
