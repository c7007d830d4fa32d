package cart

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Item struct {
	ID        uuid.UUID `json:"id"`
	CartID    uuid.UUID `json:"cart_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Line is a cart item joined with the current product name and price.
type Line struct {
	ItemID      uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type View struct {
	CartID     uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Items      []Line          `json:"items"`
	TotalItems int             `json:"total_items"`
	Total      decimal.Decimal `json:"total"`
}

func newView(c *Cart, lines []Line) *View {
	v := &View{CartID: c.ID, UserID: c.UserID, Items: lines, Total: decimal.Zero}
	for i := range v.Items {
		line := &v.Items[i]
		line.Subtotal = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		v.Total = v.Total.Add(line.Subtotal)
		v.TotalItems += line.Quantity
	}
	return v
}
