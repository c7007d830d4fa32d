package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/db"
)

var (
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryNameExists = errors.New("category name already exists")
	ErrCategoryInUse      = errors.New("category is referenced by products")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductInUse       = errors.New("product is referenced by orders")
	ErrInventoryNotFound  = errors.New("inventory not found")
	ErrStockExhausted     = errors.New("inventory would become negative")
)

type Repository interface {
	CreateCategory(ctx context.Context, category *Category) error
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	CategoryNameTaken(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, product *Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreateInventory(ctx context.Context, inventory *Inventory) error
	GetInventory(ctx context.Context, productID uuid.UUID) (*Inventory, error)
	LockInventory(ctx context.Context, productID uuid.UUID) (*Inventory, error)
	SetInventory(ctx context.Context, productID uuid.UUID, quantity int) error
	DecrementInventory(ctx context.Context, productID uuid.UUID, n int) (int, error)
}

type postgresRepository struct {
	db *db.Postgres
}

func NewRepository(pg *db.Postgres) Repository {
	return &postgresRepository{db: pg}
}

func (r *postgresRepository) CreateCategory(ctx context.Context, category *Category) error {
	if category.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate category ID: %w", err)
		}
		category.ID = id
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO categories (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Conn(ctx).Exec(ctx, query, category.ID, category.Name, category.Description, now, now)
	if err != nil {
		if db.IsUniqueViolation(err, "categories_name_key") {
			return ErrCategoryNameExists
		}
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}

	category.CreatedAt = now
	category.UpdatedAt = now
	return nil
}

func (r *postgresRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		WHERE id = $1
	`

	var c Category
	err := r.db.Conn(ctx).QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category by id %s: %w", id, err)
	}

	return &c, nil
}

func (r *postgresRepository) CategoryNameTaken(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM categories WHERE name = $1 AND id <> $2)`

	var exists bool
	if err := r.db.Conn(ctx).QueryRow(ctx, query, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("repository: failed to check category name: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		ORDER BY name
	`

	categories := make([]Category, 0)
	if err := r.db.SQLX().SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("repository: failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) UpdateCategory(ctx context.Context, category *Category) error {
	now := time.Now().UTC()
	query := `
		UPDATE categories
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`

	cmdTag, err := r.db.Conn(ctx).Exec(ctx, query, category.Name, category.Description, now, category.ID)
	if err != nil {
		if db.IsUniqueViolation(err, "categories_name_key") {
			return ErrCategoryNameExists
		}
		return fmt.Errorf("repository: failed to update category %s: %w", category.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}

	category.UpdatedAt = now
	return nil
}

func (r *postgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCategoryInUse
		}
		return fmt.Errorf("repository: failed to delete category %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *postgresRepository) CreateProduct(ctx context.Context, product *Product) error {
	if product.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		product.ID = id
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO products (id, name, description, price, enabled, category_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Conn(ctx).Exec(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Enabled,
		product.CategoryID,
		now,
		now,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}

	product.CreatedAt = now
	product.UpdatedAt = now
	return nil
}

const selectProduct = `
	SELECT p.id, p.name, p.description, p.price, p.enabled, p.category_id,
	       c.name AS category_name, COALESCE(i.quantity, 0) AS inventory_quantity,
	       p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN inventory i ON i.product_id = p.id
`

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := r.db.Conn(ctx).QueryRow(ctx, selectProduct+` WHERE p.id = $1`, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Enabled,
		&p.CategoryID,
		&p.CategoryName,
		&p.InventoryQuantity,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.IncludeDisabled {
		conds = append(conds, "p.enabled = TRUE")
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}

	query := selectProduct
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.created_at DESC"

	products := make([]Product, 0)
	if err := r.db.SQLX().SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("repository: failed to list products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, product *Product) error {
	now := time.Now().UTC()
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, enabled = $4, category_id = $5, updated_at = $6
		WHERE id = $7
	`

	cmdTag, err := r.db.Conn(ctx).Exec(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.Enabled,
		product.CategoryID,
		now,
		product.ID,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("repository: failed to update product %s: %w", product.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	product.UpdatedAt = now
	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrProductInUse
		}
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) CreateInventory(ctx context.Context, inventory *Inventory) error {
	if inventory.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate inventory ID: %w", err)
		}
		inventory.ID = id
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO inventory (id, product_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Conn(ctx).Exec(ctx, query, inventory.ID, inventory.ProductID, inventory.Quantity, now); err != nil {
		return fmt.Errorf("repository: failed to insert inventory for product %s: %w", inventory.ProductID, err)
	}

	inventory.UpdatedAt = now
	return nil
}

func (r *postgresRepository) GetInventory(ctx context.Context, productID uuid.UUID) (*Inventory, error) {
	return r.selectInventory(ctx, productID, false)
}

// LockInventory reads the inventory row with FOR UPDATE. Outside a
// transaction the lock is released immediately, so callers use RunInTx.
func (r *postgresRepository) LockInventory(ctx context.Context, productID uuid.UUID) (*Inventory, error) {
	if !db.InTx(ctx) {
		log.Warn().Stringer("product_id", productID).Msg("repository: LockInventory called outside of a transaction")
	}
	return r.selectInventory(ctx, productID, true)
}

func (r *postgresRepository) selectInventory(ctx context.Context, productID uuid.UUID, forUpdate bool) (*Inventory, error) {
	query := `
		SELECT id, product_id, quantity, updated_at
		FROM inventory
		WHERE product_id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var inv Inventory
	err := r.db.Conn(ctx).QueryRow(ctx, query, productID).Scan(&inv.ID, &inv.ProductID, &inv.Quantity, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select inventory for product %s: %w", productID, err)
	}

	return &inv, nil
}

func (r *postgresRepository) SetInventory(ctx context.Context, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE inventory
		SET quantity = $1, updated_at = $2
		WHERE product_id = $3
	`

	cmdTag, err := r.db.Conn(ctx).Exec(ctx, query, quantity, time.Now().UTC(), productID)
	if err != nil {
		if db.IsCheckViolation(err, "inventory_quantity_check") {
			return ErrStockExhausted
		}
		return fmt.Errorf("repository: failed to update inventory for product %s: %w", productID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrInventoryNotFound
	}
	return nil
}

// DecrementInventory subtracts n and returns the remaining quantity. The
// update is guarded so the row is never driven below zero.
func (r *postgresRepository) DecrementInventory(ctx context.Context, productID uuid.UUID, n int) (int, error) {
	query := `
		UPDATE inventory
		SET quantity = quantity - $1, updated_at = $2
		WHERE product_id = $3 AND quantity >= $1
		RETURNING quantity
	`

	var remaining int
	err := r.db.Conn(ctx).QueryRow(ctx, query, n, time.Now().UTC(), productID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// строка есть, но остатка не хватает, или строки нет вовсе
			if _, getErr := r.selectInventory(ctx, productID, false); getErr != nil {
				return 0, getErr
			}
			return 0, ErrStockExhausted
		}
		if db.IsCheckViolation(err, "inventory_quantity_check") {
			return 0, ErrStockExhausted
		}
		return 0, fmt.Errorf("repository: failed to decrement inventory for product %s: %w", productID, err)
	}

	return remaining, nil
}
