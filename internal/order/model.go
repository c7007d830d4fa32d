package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/product-management/internal/address"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

func (os OrderStatus) String() string {
	return string(os)
}

func (os OrderStatus) Valid() bool {
	_, ok := allowedTransitions[os]
	return ok
}

type OrderItem struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"` // цена на момент покупки
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user_id"`
	AddressID   uuid.UUID        `json:"address_id"`
	Address     *address.Address `json:"address,omitempty"`
	Status      OrderStatus      `json:"status"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	OrderItems  []OrderItem      `json:"items"`
	OrderDate   time.Time        `json:"order_date"`
	UpdatedAt   time.Time        `json:"updated_at"`
}
