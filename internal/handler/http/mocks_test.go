package http_test

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/vasiliy-maslov/product-management/internal/address"
	"github.com/vasiliy-maslov/product-management/internal/cart"
	"github.com/vasiliy-maslov/product-management/internal/catalog"
	"github.com/vasiliy-maslov/product-management/internal/order"
	"github.com/vasiliy-maslov/product-management/internal/user"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, reg user.Registration) (*user.User, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]user.User), args.Error(1)
}

func (m *MockUserService) UpdateRole(ctx context.Context, id uuid.UUID, role user.Role) (*user.User, error) {
	args := m.Called(ctx, id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserService) CreateWithRoles(ctx context.Context, reg user.Registration, roles ...user.Role) (*user.User, error) {
	args := m.Called(ctx, reg, roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) EnsureRoles(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateCategory(ctx context.Context, name, description string) (*catalog.Category, error) {
	args := m.Called(ctx, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCatalogService) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Category), args.Error(1)
}

func (m *MockCatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, name, description string) (*catalog.Category, error) {
	args := m.Called(ctx, id, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, input catalog.NewProduct) (*catalog.Product, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id uuid.UUID, includeDisabled bool) (*catalog.Product, error) {
	args := m.Called(ctx, id, includeDisabled)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, patch catalog.ProductPatch) (*catalog.Product, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) GetInventory(ctx context.Context, productID uuid.UUID) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

func (m *MockCatalogService) SetInventory(ctx context.Context, productID uuid.UUID, quantity int) error {
	return m.Called(ctx, productID, quantity).Error(0)
}

func (m *MockCatalogService) LockInventory(ctx context.Context, productID uuid.UUID) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

func (m *MockCatalogService) DecrementInventory(ctx context.Context, productID uuid.UUID, n int) error {
	return m.Called(ctx, productID, n).Error(0)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) Provision(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockCartService) GetCart(ctx context.Context, userID uuid.UUID) (*cart.View, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.View), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.View, error) {
	args := m.Called(ctx, userID, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.View), args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*cart.View, error) {
	args := m.Called(ctx, userID, itemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.View), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*cart.View, error) {
	args := m.Called(ctx, userID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.View), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockCartService) Validate(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, userID, addressID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, userID, addressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrderByID(ctx context.Context, orderID, userID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, orderID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) GetAllOrders(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status order.OrderStatus) (*order.Order, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockAddressService struct {
	mock.Mock
}

func (m *MockAddressService) Add(ctx context.Context, userID uuid.UUID, a *address.Address) (*address.Address, error) {
	args := m.Called(ctx, userID, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*address.Address), args.Error(1)
}

func (m *MockAddressService) List(ctx context.Context, userID uuid.UUID) ([]address.Address, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]address.Address), args.Error(1)
}

func (m *MockAddressService) GetOwned(ctx context.Context, addressID, userID uuid.UUID) (*address.Address, error) {
	args := m.Called(ctx, addressID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*address.Address), args.Error(1)
}

func (m *MockAddressService) Update(ctx context.Context, addressID, userID uuid.UUID, a *address.Address) (*address.Address, error) {
	args := m.Called(ctx, addressID, userID, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*address.Address), args.Error(1)
}

func (m *MockAddressService) Delete(ctx context.Context, addressID, userID uuid.UUID) error {
	return m.Called(ctx, addressID, userID).Error(0)
}

type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
