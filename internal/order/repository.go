package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/product-management/internal/address"
	"github.com/vasiliy-maslov/product-management/internal/db"
)

var ErrOrderNotFound = errors.New("order not found")

type Repository interface {
	// CreateOrder inserts the order header; items are added one by one.
	CreateOrder(ctx context.Context, order *Order) error
	AddItem(ctx context.Context, item *OrderItem) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error
}

type postgresRepository struct {
	db *db.Postgres
}

func NewRepository(pg *db.Postgres) Repository {
	return &postgresRepository{db: pg}
}

func (r *postgresRepository) CreateOrder(ctx context.Context, o *Order) error {
	if o.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", err)
		}
		o.ID = id
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO orders (id, user_id, address_id, total_amount, status, order_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Conn(ctx).Exec(ctx, query,
		o.ID,
		o.UserID,
		o.AddressID,
		o.TotalAmount,
		string(o.Status),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	o.OrderDate = now
	o.UpdatedAt = now
	return nil
}

func (r *postgresRepository) AddItem(ctx context.Context, item *OrderItem) error {
	if item.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}
		item.ID = id
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Conn(ctx).Exec(ctx, query, item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order item for order %s: %w", item.OrderID, err)
	}
	return nil
}

const selectOrder = `
	SELECT o.id, o.user_id, o.address_id, o.status, o.total_amount, o.order_date, o.updated_at,
	       a.id, a.user_id, a.street, a.city, a.state, a.zip_code, a.country, a.created_at, a.updated_at
	FROM orders o
	JOIN addresses a ON a.id = o.address_id
`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o    Order
		addr address.Address
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.AddressID,
		&o.Status,
		&o.TotalAmount,
		&o.OrderDate,
		&o.UpdatedAt,
		&addr.ID,
		&addr.UserID,
		&addr.Street,
		&addr.City,
		&addr.State,
		&addr.ZipCode,
		&addr.Country,
		&addr.CreatedAt,
		&addr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Address = &addr
	return &o, nil
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.Conn(ctx).QueryRow(ctx, selectOrder+` WHERE o.id = $1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	orders := []Order{*o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *postgresRepository) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return r.list(ctx, selectOrder+` WHERE o.user_id = $1 ORDER BY o.order_date DESC`, userID)
}

func (r *postgresRepository) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, selectOrder+` ORDER BY o.order_date DESC`)
}

func (r *postgresRepository) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of all given orders with one query.
func (r *postgresRepository) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID.String())
		index[orders[i].ID] = i
		orders[i].OrderItems = make([]OrderItem, 0)
	}

	query := `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.price
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1::uuid[])
		ORDER BY oi.product_id
	`
	rows, err := r.db.Conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		item.Subtotal = item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		i := index[item.OrderID]
		orders[i].OrderItems = append(orders[i].OrderItems, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: error iterating order items: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := r.db.Conn(ctx).Exec(ctx, query, string(newStatus), time.Now().UTC(), orderID)
	if err != nil {
		return fmt.Errorf("repository: failed to update status for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
