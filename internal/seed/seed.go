// Package seed bootstraps a fresh database: role rows, the default
// privileged accounts and an optional starter catalog.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
	"github.com/vasiliy-maslov/product-management/internal/catalog"
	"github.com/vasiliy-maslov/product-management/internal/user"
	"gopkg.in/yaml.v3"
)

type File struct {
	Accounts   []Account  `yaml:"accounts"`
	Categories []Category `yaml:"categories"`
}

type Account struct {
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	Email     string   `yaml:"email"`
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	Roles     []string `yaml:"roles"`
}

type Category struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Products    []Product `yaml:"products"`
}

type Product struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Price is kept as text so that YAML floats never round it.
	Price    string `yaml:"price"`
	Quantity int    `yaml:"quantity"`
}

// Defaults are the accounts created when no seed file exists.
func Defaults() *File {
	return &File{
		Accounts: []Account{
			{
				Username:  "admin",
				Password:  "admin123",
				Email:     "admin@example.com",
				FirstName: "Admin",
				LastName:  "User",
				Roles:     []string{user.RoleAdmin.String()},
			},
			{
				Username:  "superadmin",
				Password:  "superadmin123",
				Email:     "superadmin@example.com",
				FirstName: "Super",
				LastName:  "Admin",
				Roles:     []string{user.RoleSuperAdmin.String()},
			},
		},
	}
}

// Load reads a seed file. A missing file yields Defaults.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", path).Msg("seed: file not found, using default accounts")
			return Defaults(), nil
		}
		return nil, fmt.Errorf("seed: failed to read %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: failed to parse %s: %w", path, err)
	}
	return &f, nil
}

type Accounts interface {
	EnsureRoles(ctx context.Context) error
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	CreateWithRoles(ctx context.Context, reg user.Registration, roles ...user.Role) (*user.User, error)
}

type Catalog interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*catalog.Category, error)
	ListProducts(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error)
	CreateProduct(ctx context.Context, input catalog.NewProduct) (*catalog.Product, error)
}

type Seeder struct {
	accounts Accounts
	catalog  Catalog
}

func New(accounts Accounts, catalog Catalog) *Seeder {
	return &Seeder{accounts: accounts, catalog: catalog}
}

// Run is idempotent: existing accounts, categories and products are left
// untouched.
func (s *Seeder) Run(ctx context.Context, f *File) error {
	if err := s.accounts.EnsureRoles(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	for _, acc := range f.Accounts {
		if err := s.ensureAccount(ctx, acc); err != nil {
			return err
		}
	}

	if len(f.Categories) == 0 {
		return nil
	}

	existing, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("seed: failed to list categories: %w", err)
	}
	byName := make(map[string]uuid.UUID, len(existing))
	for _, c := range existing {
		byName[c.Name] = c.ID
	}

	for _, c := range f.Categories {
		id, ok := byName[c.Name]
		if !ok {
			created, err := s.catalog.CreateCategory(ctx, c.Name, c.Description)
			if err != nil {
				return fmt.Errorf("seed: failed to create category %q: %w", c.Name, err)
			}
			id = created.ID
			log.Info().Str("category", c.Name).Msg("seed: category created")
		}
		if err := s.ensureProducts(ctx, id, c.Products); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) ensureAccount(ctx context.Context, acc Account) error {
	_, err := s.accounts.GetByUsername(ctx, acc.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("seed: failed to look up %q: %w", acc.Username, err)
	}

	roles := make([]user.Role, 0, len(acc.Roles))
	for _, name := range acc.Roles {
		role, err := user.ParseRole(name)
		if err != nil {
			return fmt.Errorf("seed: account %q: %w", acc.Username, err)
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		roles = append(roles, user.RoleUser)
	}

	_, err = s.accounts.CreateWithRoles(ctx, user.Registration{
		Username:  acc.Username,
		Password:  acc.Password,
		Email:     acc.Email,
		FirstName: acc.FirstName,
		LastName:  acc.LastName,
	}, roles...)
	if err != nil {
		return fmt.Errorf("seed: failed to create account %q: %w", acc.Username, err)
	}

	log.Info().Str("username", acc.Username).Strs("roles", acc.Roles).Msg("seed: default account created")
	return nil
}

func (s *Seeder) ensureProducts(ctx context.Context, categoryID uuid.UUID, products []Product) error {
	if len(products) == 0 {
		return nil
	}

	existing, err := s.catalog.ListProducts(ctx, catalog.ProductFilter{CategoryID: &categoryID, IncludeDisabled: true})
	if err != nil {
		return fmt.Errorf("seed: failed to list products: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, p := range existing {
		have[p.Name] = true
	}

	for _, p := range products {
		if have[p.Name] {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return fmt.Errorf("seed: product %q has invalid price %q: %w", p.Name, p.Price, err)
		}
		if _, err := s.catalog.CreateProduct(ctx, catalog.NewProduct{
			Name:        p.Name,
			Description: p.Description,
			Price:       price,
			CategoryID:  categoryID,
			Quantity:    p.Quantity,
		}); err != nil {
			return fmt.Errorf("seed: failed to create product %q: %w", p.Name, err)
		}
		log.Info().Str("product", p.Name).Int("quantity", p.Quantity).Msg("seed: product created")
	}
	return nil
}
