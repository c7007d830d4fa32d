package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
	"github.com/vasiliy-maslov/product-management/internal/user"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   uuid.UUID
	Username string
	Roles    []user.Role
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the caller, or nil for anonymous requests.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}

// Users is the identity lookup the middleware needs.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	Authenticate(ctx context.Context, username, password string) (*user.User, error)
}

// ErrorWriter renders an error response in the API envelope.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

type Authenticator struct {
	users    Users
	tokens   *TokenIssuer
	writeErr ErrorWriter
}

func NewAuthenticator(users Users, tokens *TokenIssuer, writeErr ErrorWriter) *Authenticator {
	return &Authenticator{users: users, tokens: tokens, writeErr: writeErr}
}

// Authenticate resolves the caller from a Bearer token or HTTP Basic
// credentials. Anonymous requests pass through; Require rejects them later.
// The user is reloaded on every request so role changes apply at once.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		u, err := a.resolve(r, header)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}

		p := &Principal{UserID: u.ID, Username: u.Username, Roles: u.Roles}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

func (a *Authenticator) resolve(r *http.Request, header string) (*user.User, error) {
	scheme, credentials, _ := strings.Cut(header, " ")

	switch strings.ToLower(scheme) {
	case "bearer":
		id, _, err := a.tokens.Parse(strings.TrimSpace(credentials))
		if err != nil {
			log.Warn().Err(err).Msg("auth: rejected bearer token")
			return nil, apperr.Unauthenticated("Invalid or expired token")
		}
		u, err := a.users.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.Unauthenticated("Invalid or expired token")
			}
			return nil, err
		}
		if !u.Enabled {
			return nil, apperr.Unauthenticated("Account is disabled")
		}
		return u, nil

	case "basic":
		username, password, ok := r.BasicAuth()
		if !ok {
			return nil, apperr.Unauthenticated("Malformed basic credentials")
		}
		return a.users.Authenticate(r.Context(), username, password)

	default:
		return nil, apperr.Unauthenticated("Unsupported authorization scheme")
	}
}

// Require admits only callers whose roles grant the capability.
func (a *Authenticator) Require(c Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := FromContext(r.Context())
			if p == nil {
				a.writeErr(w, r, apperr.Unauthenticated("Authentication required"))
				return
			}
			if !Allowed(c, p.Roles) {
				log.Warn().
					Stringer("user_id", p.UserID).
					Str("capability", string(c)).
					Msg("auth: access denied")
				a.writeErr(w, r, apperr.Forbidden("Access denied"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
