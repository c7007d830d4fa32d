package cart

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
	ErrCartNotFound = errors.New("cart not found")
	ErrCartExists   = errors.New("cart already exists for user")
	ErrUserNotFound = errors.New("user not found")
	ErrItemNotFound = errors.New("cart item not found")
	ErrItemExists   = errors.New("product already in cart")
)

type Repository interface {
	Create(ctx context.Context, cart *Cart) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Cart, error)

	GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error)
	FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*Item, error)
	AddItem(ctx context.Context, item *Item) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	ClearItems(ctx context.Context, cartID uuid.UUID) error
	ListLines(ctx context.Context, cartID uuid.UUID) ([]Line, error)
}

type postgresRepository struct {
	db *db.Postgres
}

func NewRepository(pg *db.Postgres) Repository {
	return &postgresRepository{db: pg}
}

func (r *postgresRepository) Create(ctx context.Context, cart *Cart) error {
	if cart.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate cart ID: %w", err)
		}
		cart.ID = id
	}

	// ON CONFLICT keeps an enclosing transaction usable when another
	// request created the cart first.
	now := time.Now().UTC()
	tag, err := r.db.Conn(ctx).Exec(ctx,
		`INSERT INTO carts (id, user_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO NOTHING`,
		cart.ID, cart.UserID, now,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("repository: failed to insert cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCartExists
	}

	cart.CreatedAt = now
	return nil
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	var c Cart
	err := r.db.Conn(ctx).QueryRow(ctx,
		`SELECT id, user_id, created_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart for user %s: %w", userID, err)
	}
	return &c, nil
}

func (r *postgresRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE id = $1
	`
	return r.scanItem(r.db.Conn(ctx).QueryRow(ctx, query, itemID))
}

func (r *postgresRepository) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*Item, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`
	return r.scanItem(r.db.Conn(ctx).QueryRow(ctx, query, cartID, productID))
}

func (r *postgresRepository) scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart item: %w", err)
	}
	return &it, nil
}

func (r *postgresRepository) AddItem(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate cart item ID: %w", err)
		}
		item.ID = id
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Conn(ctx).Exec(ctx, query, item.ID, item.CartID, item.ProductID, item.Quantity, now, now)
	if err != nil {
		if db.IsUniqueViolation(err, "cart_items_cart_id_product_id_key") {
			return ErrItemExists
		}
		return fmt.Errorf("repository: failed to insert cart item: %w", err)
	}

	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (r *postgresRepository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	cmdTag, err := r.db.Conn(ctx).Exec(ctx,
		`UPDATE cart_items SET quantity = $1, updated_at = $2 WHERE id = $3`,
		quantity, time.Now().UTC(), itemID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update cart item %s: %w", itemID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	cmdTag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", itemID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *postgresRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	if _, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("repository: failed to clear cart %s: %w", cartID, err)
	}
	return nil
}

func (r *postgresRepository) ListLines(ctx context.Context, cartID uuid.UUID) ([]Line, error) {
	query := `
		SELECT ci.id, ci.product_id, p.name, p.price, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := r.db.Conn(ctx).Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart lines: %w", err)
	}
	defer rows.Close()

	lines := make([]Line, 0)
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ItemID, &l.ProductID, &l.ProductName, &l.Price, &l.Quantity); err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart lines: %w", err)
	}

	return lines, nil
}
