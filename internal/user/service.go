package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
	"github.com/vasiliy-maslov/product-management/internal/db"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// CartProvisioner creates the empty cart every new account starts with.
type CartProvisioner interface {
	Provision(ctx context.Context, userID uuid.UUID) error
}

const invalidCredentials = "Invalid username or password"

type Service interface {
	Register(ctx context.Context, reg Registration) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// CreateWithRoles is used by bootstrap to create privileged accounts.
	CreateWithRoles(ctx context.Context, reg Registration, roles ...Role) (*User, error)
	// EnsureRoles makes sure every known role exists in storage.
	EnsureRoles(ctx context.Context) error
}

type service struct {
	repo   Repository
	hasher PasswordHasher
	carts  CartProvisioner
	tx     db.Transactor
}

func NewService(repo Repository, hasher PasswordHasher, carts CartProvisioner, tx db.Transactor) Service {
	return &service{repo: repo, hasher: hasher, carts: carts, tx: tx}
}

func (s *service) Register(ctx context.Context, reg Registration) (*User, error) {
	return s.CreateWithRoles(ctx, reg, RoleUser)
}

func (s *service) CreateWithRoles(ctx context.Context, reg Registration, roles ...Role) (*User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Username == "" || reg.Password == "" || reg.Email == "" {
		return nil, apperr.InvalidOperation("Username, email and password are required")
	}
	for _, role := range roles {
		if !role.Valid() {
			return nil, apperr.InvalidOperation("Unknown role: %s", role)
		}
	}

	taken, err := s.repo.ExistsByUsername(ctx, reg.Username)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to check username availability")
		return nil, fmt.Errorf("service: failed to register user: %w", err)
	}
	if taken {
		log.Warn().Str("username", reg.Username).Msg("service: username already taken")
		return nil, apperr.Duplicate("Username is already taken")
	}

	taken, err = s.repo.ExistsByEmail(ctx, reg.Email)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to check email availability")
		return nil, fmt.Errorf("service: failed to register user: %w", err)
	}
	if taken {
		log.Warn().Str("email", reg.Email).Msg("service: email already in use")
		return nil, apperr.Duplicate("Email is already in use")
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: internal error hashing password: %w", err)
	}

	u := &User{
		Username:  reg.Username,
		Password:  hash,
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Enabled:   true,
		Roles:     roles,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		if err := s.repo.SetRoles(ctx, u.ID, roles); err != nil {
			return err
		}
		return s.carts.Provision(ctx, u.ID)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameExists):
			return nil, apperr.Duplicate("Username is already taken")
		case errors.Is(err, ErrEmailExists):
			return nil, apperr.Duplicate("Email is already in use")
		}
		log.Error().Err(err).Str("username", reg.Username).Msg("service: failed to create user")
		return nil, fmt.Errorf("service: failed to register user: %w", err)
	}

	log.Info().Stringer("user_id", u.ID).Str("username", u.Username).Msg("service: user registered")
	return u, nil
}

func (s *service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Str("username", username).Msg("service: login attempt for unknown user")
			return nil, apperr.Unauthenticated(invalidCredentials)
		}
		log.Error().Err(err).Msg("service: failed to load user for authentication")
		return nil, fmt.Errorf("service: failed to authenticate: %w", err)
	}

	if err := s.hasher.Compare(u.Password, password); err != nil {
		log.Warn().Str("username", username).Msg("service: wrong password")
		return nil, apperr.Unauthenticated(invalidCredentials)
	}
	if !u.Enabled {
		log.Warn().Str("username", username).Msg("service: login attempt for disabled account")
		return nil, apperr.Unauthenticated(invalidCredentials)
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Stringer("user_id", id).Msg("service: user not found")
			return nil, apperr.NotFound("User not found with id: %s", id)
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get user by id")
		return nil, fmt.Errorf("service: failed to get user by id '%s': %w", id, err)
	}
	return u, nil
}

func (s *service) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("User not found with username: %s", username)
		}
		log.Error().Err(err).Str("username", username).Msg("service: failed to get user by username")
		return nil, fmt.Errorf("service: failed to get user by username '%s': %w", username, err)
	}
	return u, nil
}

func (s *service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list users")
		return nil, fmt.Errorf("service: failed to list users: %w", err)
	}
	return users, nil
}

func (s *service) UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	if !role.Valid() {
		return nil, apperr.InvalidOperation("Unknown role: %s", role)
	}

	var updated *User
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.repo.SetRoles(ctx, id, []Role{role}); err != nil {
			return err
		}
		var err error
		updated, err = s.GetByID(ctx, id)
		return err
	})
	if err != nil {
		if apperr.IsBusiness(err) {
			return nil, err
		}
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("User not found with id: %s", id)
		}
		log.Error().Err(err).Stringer("user_id", id).Stringer("role", role).Msg("service: failed to update user role")
		return nil, fmt.Errorf("service: failed to update user role: %w", err)
	}

	log.Info().Stringer("user_id", id).Stringer("role", role).Msg("service: user role updated")
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("User not found with id: %s", id)
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("service: failed to delete user by id '%s': %w", id, err)
	}

	log.Info().Stringer("user_id", id).Msg("service: user deleted")
	return nil
}

func (s *service) EnsureRoles(ctx context.Context) error {
	roles := []Role{RoleUser, RoleAdmin, RoleSuperAdmin}
	if err := s.repo.EnsureRoles(ctx, roles); err != nil {
		log.Error().Err(err).Msg("service: failed to ensure roles")
		return fmt.Errorf("service: failed to ensure roles: %w", err)
	}
	return nil
}
