package address

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
)

type Service interface {
	Add(ctx context.Context, userID uuid.UUID, a *Address) (*Address, error)
	List(ctx context.Context, userID uuid.UUID) ([]Address, error)
	// GetOwned returns the address only if it belongs to userID.
	GetOwned(ctx context.Context, addressID, userID uuid.UUID) (*Address, error)
	Update(ctx context.Context, addressID, userID uuid.UUID, a *Address) (*Address, error)
	Delete(ctx context.Context, addressID, userID uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, a *Address) (*Address, error) {
	a.ID = uuid.Nil
	a.UserID = userID

	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("User not found with id: %s", userID)
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to create address")
		return nil, fmt.Errorf("service: failed to add address: %w", err)
	}

	log.Info().Stringer("user_id", userID).Stringer("address_id", a.ID).Msg("service: address added")
	return a, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to list addresses")
		return nil, fmt.Errorf("service: failed to list addresses: %w", err)
	}
	return addresses, nil
}

func (s *service) GetOwned(ctx context.Context, addressID, userID uuid.UUID) (*Address, error) {
	a, err := s.repo.GetByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			log.Warn().Stringer("address_id", addressID).Msg("service: address not found")
			return nil, apperr.NotFound("Address not found with id: %s", addressID)
		}
		log.Error().Err(err).Stringer("address_id", addressID).Msg("service: failed to fetch address")
		return nil, fmt.Errorf("service: failed to fetch address: %w", err)
	}

	if a.UserID != userID {
		log.Warn().Stringer("address_id", addressID).Stringer("user_id", userID).Msg("service: address belongs to another user")
		return nil, apperr.NotFound("Address not found with id: %s", addressID)
	}
	return a, nil
}

func (s *service) Update(ctx context.Context, addressID, userID uuid.UUID, in *Address) (*Address, error) {
	a, err := s.GetOwned(ctx, addressID, userID)
	if err != nil {
		return nil, err
	}

	a.Street = in.Street
	a.City = in.City
	a.State = in.State
	a.ZipCode = in.ZipCode
	a.Country = in.Country

	if err := s.repo.Update(ctx, a); err != nil {
		if errors.Is(err, ErrAddressNotFound) {
			return nil, apperr.NotFound("Address not found with id: %s", addressID)
		}
		log.Error().Err(err).Stringer("address_id", addressID).Msg("service: failed to update address")
		return nil, fmt.Errorf("service: failed to update address: %w", err)
	}

	log.Info().Stringer("address_id", addressID).Msg("service: address updated")
	return a, nil
}

func (s *service) Delete(ctx context.Context, addressID, userID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, addressID, userID); err != nil {
		return err
	}

	err := s.repo.Delete(ctx, addressID)
	switch {
	case err == nil:
		log.Info().Stringer("address_id", addressID).Msg("service: address deleted")
		return nil
	case errors.Is(err, ErrAddressNotFound):
		return apperr.NotFound("Address not found with id: %s", addressID)
	case errors.Is(err, ErrAddressInUse):
		log.Warn().Stringer("address_id", addressID).Msg("service: address is used by orders")
		return apperr.Conflict("Cannot delete an address that is used by orders")
	default:
		log.Error().Err(err).Stringer("address_id", addressID).Msg("service: failed to delete address")
		return fmt.Errorf("service: failed to delete address: %w", err)
	}
}
