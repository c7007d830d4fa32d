package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
	"github.com/vasiliy-maslov/product-management/internal/db"
)

type Service interface {
	CreateCategory(ctx context.Context, name, description string) (*Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, input NewProduct) (*Product, error)
	// GetProduct hides disabled products unless includeDisabled is set.
	GetProduct(ctx context.Context, id uuid.UUID, includeDisabled bool) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	GetInventory(ctx context.Context, productID uuid.UUID) (int, error)
	SetInventory(ctx context.Context, productID uuid.UUID, quantity int) error
	// LockInventory must run inside a transaction; the row stays locked
	// until it ends.
	LockInventory(ctx context.Context, productID uuid.UUID) (int, error)
	DecrementInventory(ctx context.Context, productID uuid.UUID, n int) error
}

type service struct {
	repo Repository
	tx   db.Transactor
}

func NewService(repo Repository, tx db.Transactor) Service {
	return &service{repo: repo, tx: tx}
}

func (s *service) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidOperation("Category name must not be empty")
	}

	taken, err := s.repo.CategoryNameTaken(ctx, name, uuid.Nil)
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("service: failed to check category name")
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}
	if taken {
		log.Warn().Str("name", name).Msg("service: category name already exists")
		return nil, apperr.Duplicate("Category already exists with name: %s", name)
	}

	category := &Category{Name: name, Description: description}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, ErrCategoryNameExists) {
			return nil, apperr.Duplicate("Category already exists with name: %s", name)
		}
		log.Error().Err(err).Str("name", name).Msg("service: failed to create category in repository")
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}

	log.Info().Stringer("category_id", category.ID).Str("name", name).Msg("service: category created")
	return category, nil
}

func (s *service) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	category, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			log.Warn().Stringer("category_id", id).Msg("service: category not found")
			return nil, apperr.NotFound("Category not found with id: %s", id)
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to fetch category")
		return nil, fmt.Errorf("service: failed to fetch category: %w", err)
	}
	return category, nil
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidOperation("Category name must not be empty")
	}

	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if category.Name != name {
		taken, err := s.repo.CategoryNameTaken(ctx, name, id)
		if err != nil {
			log.Error().Err(err).Str("name", name).Msg("service: failed to check category name")
			return nil, fmt.Errorf("service: failed to update category: %w", err)
		}
		if taken {
			log.Warn().Str("name", name).Stringer("category_id", id).Msg("service: category rename collides with existing name")
			return nil, apperr.Duplicate("Category already exists with name: %s", name)
		}
	}

	category.Name = name
	category.Description = description
	if err := s.repo.UpdateCategory(ctx, category); err != nil {
		switch {
		case errors.Is(err, ErrCategoryNameExists):
			return nil, apperr.Duplicate("Category already exists with name: %s", name)
		case errors.Is(err, ErrCategoryNotFound):
			return nil, apperr.NotFound("Category not found with id: %s", id)
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to update category in repository")
		return nil, fmt.Errorf("service: failed to update category: %w", err)
	}

	log.Info().Stringer("category_id", id).Msg("service: category updated")
	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteCategory(ctx, id)
	switch {
	case err == nil:
		log.Info().Stringer("category_id", id).Msg("service: category deleted")
		return nil
	case errors.Is(err, ErrCategoryNotFound):
		log.Warn().Stringer("category_id", id).Msg("service: category not found for delete")
		return apperr.NotFound("Category not found with id: %s", id)
	case errors.Is(err, ErrCategoryInUse):
		log.Warn().Stringer("category_id", id).Msg("service: category still has products")
		return apperr.Conflict("Cannot delete category with existing products")
	default:
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to delete category")
		return fmt.Errorf("service: failed to delete category: %w", err)
	}
}

func (s *service) CreateProduct(ctx context.Context, input NewProduct) (*Product, error) {
	name, err := productName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := ValidatePrice(input.Price); err != nil {
		return nil, err
	}
	if input.Quantity < 0 {
		return nil, apperr.InvalidOperation("Inventory quantity must not be negative")
	}

	product := &Product{
		Name:        name,
		Description: input.Description,
		Price:       input.Price,
		Enabled:     true,
		CategoryID:  input.CategoryID,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		category, err := s.GetCategory(ctx, input.CategoryID)
		if err != nil {
			return err
		}
		product.CategoryName = category.Name

		if err := s.repo.CreateProduct(ctx, product); err != nil {
			if errors.Is(err, ErrCategoryNotFound) {
				return apperr.NotFound("Category not found with id: %s", input.CategoryID)
			}
			return err
		}

		inventory := &Inventory{ProductID: product.ID, Quantity: input.Quantity}
		if err := s.repo.CreateInventory(ctx, inventory); err != nil {
			return err
		}
		product.InventoryQuantity = inventory.Quantity
		return nil
	})
	if err != nil {
		if apperr.IsBusiness(err) {
			return nil, err
		}
		log.Error().Err(err).Str("name", name).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", product.ID).Str("name", name).Int("quantity", input.Quantity).Msg("service: product created")
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID, includeDisabled bool) (*Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			log.Warn().Stringer("product_id", id).Msg("service: product not found")
			return nil, apperr.NotFound("Product not found with id: %s", id)
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch product")
		return nil, fmt.Errorf("service: failed to fetch product: %w", err)
	}

	if !product.Enabled && !includeDisabled {
		log.Warn().Stringer("product_id", id).Msg("service: disabled product requested")
		return nil, apperr.NotFound("Product not found with id: %s", id)
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	if filter.CategoryID != nil {
		if _, err := s.GetCategory(ctx, *filter.CategoryID); err != nil {
			return nil, err
		}
	}

	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}
	return products, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error) {
	var product *Product

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.GetProduct(ctx, id, true)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name, err := productName(*patch.Name)
			if err != nil {
				return err
			}
			product.Name = name
		}
		if patch.Description != nil {
			product.Description = *patch.Description
		}
		if patch.Price != nil {
			if err := ValidatePrice(*patch.Price); err != nil {
				return err
			}
			product.Price = *patch.Price
		}
		if patch.Enabled != nil {
			product.Enabled = *patch.Enabled
		}
		if patch.CategoryID != nil && *patch.CategoryID != product.CategoryID {
			category, err := s.GetCategory(ctx, *patch.CategoryID)
			if err != nil {
				return err
			}
			product.CategoryID = category.ID
			product.CategoryName = category.Name
		}

		if err := s.repo.UpdateProduct(ctx, product); err != nil {
			switch {
			case errors.Is(err, ErrProductNotFound):
				return apperr.NotFound("Product not found with id: %s", id)
			case errors.Is(err, ErrCategoryNotFound):
				return apperr.NotFound("Category not found with id: %s", product.CategoryID)
			}
			return err
		}

		if patch.Quantity != nil {
			if err := s.SetInventory(ctx, id, *patch.Quantity); err != nil {
				return err
			}
			product.InventoryQuantity = *patch.Quantity
		}
		return nil
	})
	if err != nil {
		if apperr.IsBusiness(err) {
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	log.Info().Stringer("product_id", id).Msg("service: product updated")
	return product, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteProduct(ctx, id)
	switch {
	case err == nil:
		log.Info().Stringer("product_id", id).Msg("service: product deleted")
		return nil
	case errors.Is(err, ErrProductNotFound):
		log.Warn().Stringer("product_id", id).Msg("service: product not found for delete")
		return apperr.NotFound("Product not found with id: %s", id)
	case errors.Is(err, ErrProductInUse):
		log.Warn().Stringer("product_id", id).Msg("service: product referenced by orders")
		return apperr.Conflict("Cannot delete product that has been ordered; disable it instead")
	default:
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}
}

func (s *service) GetInventory(ctx context.Context, productID uuid.UUID) (int, error) {
	inv, err := s.repo.GetInventory(ctx, productID)
	if err != nil {
		return 0, s.inventoryError(err, productID)
	}
	return inv.Quantity, nil
}

func (s *service) SetInventory(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return apperr.InvalidOperation("Inventory quantity must not be negative")
	}
	if err := s.repo.SetInventory(ctx, productID, quantity); err != nil {
		return s.inventoryError(err, productID)
	}
	log.Info().Stringer("product_id", productID).Int("quantity", quantity).Msg("service: inventory set")
	return nil
}

func (s *service) LockInventory(ctx context.Context, productID uuid.UUID) (int, error) {
	inv, err := s.repo.LockInventory(ctx, productID)
	if err != nil {
		return 0, s.inventoryError(err, productID)
	}
	return inv.Quantity, nil
}

func (s *service) DecrementInventory(ctx context.Context, productID uuid.UUID, n int) error {
	if n <= 0 {
		return apperr.InvalidOperation("Quantity must be greater than zero")
	}

	remaining, err := s.repo.DecrementInventory(ctx, productID, n)
	if err != nil {
		if errors.Is(err, ErrStockExhausted) {
			available, getErr := s.GetInventory(ctx, productID)
			if getErr != nil {
				return getErr
			}
			log.Warn().Stringer("product_id", productID).Int("available", available).Int("requested", n).Msg("service: decrement refused, not enough stock")
			return apperr.InsufficientInventory("", available, n)
		}
		return s.inventoryError(err, productID)
	}

	log.Debug().Stringer("product_id", productID).Int("decrement", n).Int("remaining", remaining).Msg("service: inventory decremented")
	return nil
}

func productName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", apperr.InvalidOperation("Product name must not be empty")
	case utf8.RuneCountInString(name) > MaxProductNameLength:
		return "", apperr.InvalidOperation("Product name must be at most %d characters", MaxProductNameLength)
	}
	return name, nil
}

func (s *service) inventoryError(err error, productID uuid.UUID) error {
	switch {
	case errors.Is(err, ErrInventoryNotFound):
		log.Warn().Stringer("product_id", productID).Msg("service: inventory not found")
		return apperr.NotFound("Inventory not found for product: %s", productID)
	case errors.Is(err, ErrStockExhausted):
		return apperr.InvalidOperation("Inventory quantity must not be negative")
	}
	log.Error().Err(err).Stringer("product_id", productID).Msg("service: inventory operation failed")
	return fmt.Errorf("service: inventory operation failed: %w", err)
}
