package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
	"github.com/vasiliy-maslov/product-management/internal/catalog"
)

// ProductCatalog is the part of the catalog the cart validates against.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id uuid.UUID, includeDisabled bool) (*catalog.Product, error)
}

type Service interface {
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*Cart, error)
	// Provision creates the empty cart of a new account.
	Provision(ctx context.Context, userID uuid.UUID) error
	GetCart(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	// Validate checks that the cart is non-empty and that every line is
	// purchasable against live inventory.
	Validate(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     Repository
	products ProductCatalog
}

func NewService(repo Repository, products ProductCatalog) Service {
	return &service{repo: repo, products: products}
}

func (s *service) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	c, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch cart")
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}

	c = &Cart{UserID: userID}
	err = s.repo.Create(ctx, c)
	switch {
	case err == nil:
		log.Info().Stringer("user_id", userID).Stringer("cart_id", c.ID).Msg("service: cart created")
		return c, nil
	case errors.Is(err, ErrCartExists):
		// параллельный запрос успел создать корзину
		return s.repo.GetByUserID(ctx, userID)
	case errors.Is(err, ErrUserNotFound):
		log.Warn().Stringer("user_id", userID).Msg("service: cart requested for unknown user")
		return nil, apperr.NotFound("User not found with id: %s", userID)
	default:
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to create cart")
		return nil, fmt.Errorf("service: failed to create cart: %w", err)
	}
}

func (s *service) Provision(ctx context.Context, userID uuid.UUID) error {
	_, err := s.GetOrCreateCart(ctx, userID)
	return err
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*View, error) {
	c, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.ListLines(ctx, c.ID)
	if err != nil {
		log.Error().Err(err).Stringer("cart_id", c.ID).Msg("service: failed to list cart lines")
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}

	return newView(c, lines), nil
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, apperr.InvalidOperation("Quantity must be greater than zero")
	}

	product, err := s.purchasable(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItemByProduct(ctx, c.ID, productID)
	if err != nil && !errors.Is(err, ErrItemNotFound) {
		log.Error().Err(err).Stringer("cart_id", c.ID).Msg("service: failed to look up cart item")
		return nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	merged := quantity
	if existing != nil {
		merged += existing.Quantity
	}
	if merged > product.InventoryQuantity {
		log.Warn().
			Stringer("product_id", productID).
			Int("available", product.InventoryQuantity).
			Int("requested", merged).
			Msg("service: add to cart exceeds inventory")
		return nil, apperr.InsufficientInventory("", product.InventoryQuantity, merged)
	}

	if existing != nil {
		err = s.repo.UpdateItemQuantity(ctx, existing.ID, merged)
	} else {
		err = s.repo.AddItem(ctx, &Item{CartID: c.ID, ProductID: productID, Quantity: quantity})
	}
	if err != nil {
		if errors.Is(err, ErrItemExists) {
			return nil, apperr.Conflict("Cart was modified concurrently, please retry")
		}
		log.Error().Err(err).Stringer("cart_id", c.ID).Stringer("product_id", productID).Msg("service: failed to save cart item")
		return nil, fmt.Errorf("service: failed to add cart item: %w", err)
	}

	log.Info().Stringer("user_id", userID).Stringer("product_id", productID).Int("quantity", merged).Msg("service: cart item saved")
	return s.GetCart(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*View, error) {
	if quantity <= 0 {
		return nil, apperr.InvalidOperation("Quantity must be greater than zero")
	}

	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.purchasable(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > product.InventoryQuantity {
		log.Warn().
			Stringer("product_id", item.ProductID).
			Int("available", product.InventoryQuantity).
			Int("requested", quantity).
			Msg("service: cart update exceeds inventory")
		return nil, apperr.InsufficientInventory("", product.InventoryQuantity, quantity)
	}

	if err := s.repo.UpdateItemQuantity(ctx, itemID, quantity); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperr.NotFound("Cart item not found with id: %s", itemID)
		}
		log.Error().Err(err).Stringer("item_id", itemID).Msg("service: failed to update cart item")
		return nil, fmt.Errorf("service: failed to update cart item: %w", err)
	}

	return s.GetCart(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*View, error) {
	if _, err := s.ownedItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, apperr.NotFound("Cart item not found with id: %s", itemID)
		}
		log.Error().Err(err).Stringer("item_id", itemID).Msg("service: failed to delete cart item")
		return nil, fmt.Errorf("service: failed to remove cart item: %w", err)
	}

	log.Info().Stringer("user_id", userID).Stringer("item_id", itemID).Msg("service: cart item removed")
	return s.GetCart(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	c, err := s.GetOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.repo.ClearItems(ctx, c.ID); err != nil {
		log.Error().Err(err).Stringer("cart_id", c.ID).Msg("service: failed to clear cart")
		return fmt.Errorf("service: failed to clear cart: %w", err)
	}

	log.Info().Stringer("user_id", userID).Msg("service: cart cleared")
	return nil
}

func (s *service) Validate(ctx context.Context, userID uuid.UUID) error {
	view, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	if len(view.Items) == 0 {
		return apperr.InvalidOperation("Cart is empty")
	}

	for _, line := range view.Items {
		product, err := s.products.GetProduct(ctx, line.ProductID, true)
		if err != nil {
			return err
		}
		if !product.Enabled {
			return apperr.InvalidOperation("Product is not available: %s", product.Name)
		}
		if line.Quantity > product.InventoryQuantity {
			log.Warn().
				Stringer("product_id", product.ID).
				Int("available", product.InventoryQuantity).
				Int("requested", line.Quantity).
				Msg("service: cart validation failed on inventory")
			return apperr.InsufficientInventory(product.Name, product.InventoryQuantity, line.Quantity)
		}
	}
	return nil
}

// ownedItem returns the item only when it belongs to the user's cart.
// Items of other users are reported as not found.
func (s *service) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*Item, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			log.Warn().Stringer("item_id", itemID).Msg("service: cart item not found")
			return nil, apperr.NotFound("Cart item not found with id: %s", itemID)
		}
		log.Error().Err(err).Stringer("item_id", itemID).Msg("service: failed to fetch cart item")
		return nil, fmt.Errorf("service: failed to fetch cart item: %w", err)
	}

	c, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch cart")
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}
	if c == nil || c.ID != item.CartID {
		log.Warn().Stringer("item_id", itemID).Stringer("user_id", userID).Msg("service: cart item belongs to another user")
		return nil, apperr.NotFound("Cart item not found with id: %s", itemID)
	}
	return item, nil
}

func (s *service) purchasable(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	product, err := s.products.GetProduct(ctx, productID, true)
	if err != nil {
		return nil, err
	}
	if !product.Enabled {
		log.Warn().Stringer("product_id", productID).Msg("service: product is disabled")
		return nil, apperr.InvalidOperation("Product is not available: %s", product.Name)
	}
	return product, nil
}
