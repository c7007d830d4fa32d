package address

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/product-management/internal/db"
)

var (
	ErrAddressNotFound = errors.New("address not found")
	ErrAddressInUse    = errors.New("address is referenced by orders")
	ErrUserNotFound    = errors.New("user not found")
)

type Repository interface {
	Create(ctx context.Context, a *Address) error
	GetByID(ctx context.Context, id uuid.UUID) (*Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Address, error)
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *db.Postgres
}

func NewRepository(pg *db.Postgres) Repository {
	return &postgresRepository{db: pg}
}

func (r *postgresRepository) Create(ctx context.Context, a *Address) error {
	if a.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate address ID: %w", err)
		}
		a.ID = id
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO addresses (id, user_id, street, city, state, zip_code, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Conn(ctx).Exec(ctx, query,
		a.ID, a.UserID, a.Street, a.City, a.State, a.ZipCode, a.Country, now, now,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("repository: failed to insert address: %w", err)
	}

	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Address, error) {
	query := `
		SELECT id, user_id, street, city, state, zip_code, country, created_at, updated_at
		FROM addresses
		WHERE id = $1
	`

	var a Address
	err := r.db.Conn(ctx).QueryRow(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Street, &a.City, &a.State, &a.ZipCode, &a.Country, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("repository: failed to select address by id %s: %w", id, err)
	}
	return &a, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	query := `
		SELECT id, user_id, street, city, state, zip_code, country, created_at, updated_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query addresses for user %s: %w", userID, err)
	}
	defer rows.Close()

	addresses := make([]Address, 0)
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Street, &a.City, &a.State, &a.ZipCode, &a.Country, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating addresses: %w", err)
	}
	return addresses, nil
}

func (r *postgresRepository) Update(ctx context.Context, a *Address) error {
	now := time.Now().UTC()
	query := `
		UPDATE addresses
		SET street = $1, city = $2, state = $3, zip_code = $4, country = $5, updated_at = $6
		WHERE id = $7
	`

	cmdTag, err := r.db.Conn(ctx).Exec(ctx, query, a.Street, a.City, a.State, a.ZipCode, a.Country, now, a.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update address %s: %w", a.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAddressNotFound
	}

	a.UpdatedAt = now
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrAddressInUse
		}
		return fmt.Errorf("repository: failed to delete address %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrAddressNotFound
	}
	return nil
}
