package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
)

type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Product struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Description       string          `json:"description" db:"description"`
	Price             decimal.Decimal `json:"price" db:"price"`
	Enabled           bool            `json:"enabled" db:"enabled"`
	CategoryID        uuid.UUID       `json:"category_id" db:"category_id"`
	CategoryName      string          `json:"category_name" db:"category_name"`           // только для чтения, JOIN categories
	InventoryQuantity int             `json:"inventory_quantity" db:"inventory_quantity"` // только для чтения, JOIN inventory
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

type Inventory struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Column limits of the products table: name VARCHAR(200), price NUMERIC(10,2).
const (
	MaxProductNameLength = 200
	PriceScale           = 2
)

var MaxPrice = decimal.RequireFromString("99999999.99")

// ValidatePrice reports whether the price can be stored without rounding.
func ValidatePrice(price decimal.Decimal) error {
	switch {
	case !price.IsPositive():
		return apperr.InvalidOperation("Price must be greater than zero")
	case !price.Equal(price.Truncate(PriceScale)):
		return apperr.InvalidOperation("Price must have at most %d decimal places", PriceScale)
	case price.GreaterThan(MaxPrice):
		return apperr.InvalidOperation("Price must not exceed %s", MaxPrice.StringFixed(PriceScale))
	}
	return nil
}

// NewProduct is the input for product creation.
type NewProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  uuid.UUID
	Quantity    int
}

// ProductPatch is a partial update: nil fields are left unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	CategoryID  *uuid.UUID
	Enabled     *bool
	Quantity    *int
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID      *uuid.UUID
	IncludeDisabled bool
}
