package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/product-management/internal/address"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
	"github.com/vasiliy-maslov/product-management/internal/auth"
	"github.com/vasiliy-maslov/product-management/internal/cart"
	"github.com/vasiliy-maslov/product-management/internal/catalog"
	"github.com/vasiliy-maslov/product-management/internal/config"
	apihttp "github.com/vasiliy-maslov/product-management/internal/handler/http"
	"github.com/vasiliy-maslov/product-management/internal/order"
	"github.com/vasiliy-maslov/product-management/internal/user"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	users     *MockUserService
	catalog   *MockCatalogService
	carts     *MockCartService
	orders    *MockOrderService
	addresses *MockAddressService
	db        *MockPinger
	tokens    *auth.TokenIssuer
	router    http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     new(MockUserService),
		catalog:   new(MockCatalogService),
		carts:     new(MockCartService),
		orders:    new(MockOrderService),
		addresses: new(MockAddressService),
		db:        new(MockPinger),
		tokens: auth.NewTokenIssuer(config.AuthConfig{
			JWTSecret: "handler-test-secret",
			TokenTTL:  time.Hour,
			Issuer:    "handler-test",
		}),
	}
	f.router = apihttp.NewRouter(apihttp.Services{
		Users:     f.users,
		Catalog:   f.catalog,
		Carts:     f.carts,
		Orders:    f.orders,
		Addresses: f.addresses,
		Tokens:    f.tokens,
		DB:        f.db,
	})
	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.catalog.AssertExpectations(t)
		f.carts.AssertExpectations(t)
		f.orders.AssertExpectations(t)
		f.addresses.AssertExpectations(t)
	})
	return f
}

// signIn выдает токен пользователю с указанными ролями
func (f *fixture) signIn(t *testing.T, roles ...user.Role) (*user.User, string) {
	t.Helper()
	u := &user.User{
		ID:       uuid.Must(uuid.NewV4()),
		Username: "user_" + uuid.Must(uuid.NewV4()).String()[:8],
		Email:    "someone@example.com",
		Enabled:  true,
		Roles:    roles,
	}
	token, _, err := f.tokens.Issue(u)
	require.NoError(t, err)
	f.users.On("GetByID", mock.Anything, u.ID).Return(u, nil).Maybe()
	return u, token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env), "Failed to decode response body")
	return env
}

func TestAuthHandler_Register_Success(t *testing.T) {
	f := newFixture(t)

	reg := user.Registration{
		Username:  "alice",
		Password:  "password123",
		Email:     "alice@example.com",
		FirstName: "Alice",
	}
	created := &user.User{
		ID:        uuid.Must(uuid.NewV4()),
		Username:  reg.Username,
		Password:  "hashed_password_from_service",
		Email:     reg.Email,
		FirstName: reg.FirstName,
		Enabled:   true,
		Roles:     []user.Role{user.RoleUser},
		CreatedAt: time.Now().Truncate(time.Second),
		UpdatedAt: time.Now().Truncate(time.Second),
	}
	f.users.On("Register", mock.Anything, reg).Return(created, nil).Once()

	rr := f.do(t, http.MethodPost, "/api/auth/register", "", apihttp.RegisterRequest{
		Username:  reg.Username,
		Password:  reg.Password,
		Email:     reg.Email,
		FirstName: reg.FirstName,
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	env := decode(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "User registered successfully", env.Message)
	assert.NotContains(t, string(env.Data), "hashed_password_from_service")

	var got apihttp.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	want := apihttp.UserResponse{
		ID:        created.ID,
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		Enabled:   true,
		Roles:     []string{"USER"},
		CreatedAt: created.CreatedAt,
		UpdatedAt: created.UpdatedAt,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Register response mismatch (-want +got):\n%s", diff)
	}
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	f := newFixture(t)

	f.users.On("Register", mock.Anything, mock.AnythingOfType("user.Registration")).
		Return(nil, apperr.Duplicate("Username is already taken: %s", "alice")).
		Once()

	rr := f.do(t, http.MethodPost, "/api/auth/register", "", apihttp.RegisterRequest{
		Username: "alice",
		Password: "password123",
		Email:    "alice@example.com",
	})
	require.Equal(t, http.StatusConflict, rr.Code)

	env := decode(t, rr)
	assert.False(t, env.Success)
	assert.Equal(t, "Username is already taken: alice", env.Message)
}

func TestAuthHandler_Register_InvalidJSON(t *testing.T) {
	f := newFixture(t)

	invalidJSON := `{"username": "alice", "email": "alice@example.com" "password": "pass}`

	rr := f.do(t, http.MethodPost, "/api/auth/register", "", invalidJSON)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	env := decode(t, rr)
	assert.Contains(t, env.Message, "Invalid request payload")
	f.users.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestAuthHandler_Register_ValidationError(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/api/auth/register", "", apihttp.RegisterRequest{
		Username: "al",
		Password: "123",
		Email:    "incorrect-email",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	env := decode(t, rr)
	assert.False(t, env.Success)
	assert.Equal(t, "Validation failed", env.Message)

	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "password")
	assert.Equal(t, "must be a valid email address", details["email"])
	f.users.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestAuthHandler_Register_EmailLongerThanColumn(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/api/auth/register", "", apihttp.RegisterRequest{
		Username: "long_mail",
		Password: "password123",
		Email:    strings.Repeat("a", 250) + "@example.com",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	env := decode(t, rr)
	assert.Equal(t, "Validation failed", env.Message)
	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Equal(t, "must be at most 255", details["email"])
	f.users.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestAuthHandler_Login(t *testing.T) {
	f := newFixture(t)

	u := &user.User{ID: uuid.Must(uuid.NewV4()), Username: "alice", Enabled: true, Roles: []user.Role{user.RoleUser}}
	f.users.On("Authenticate", mock.Anything, "alice", "password123").Return(u, nil).Once()
	f.users.On("Authenticate", mock.Anything, "alice", "wrong").
		Return(nil, apperr.Unauthenticated("Invalid username or password")).Once()

	rr := f.do(t, http.MethodPost, "/api/auth/login", "", apihttp.LoginRequest{Username: "alice", Password: "password123"})
	require.Equal(t, http.StatusOK, rr.Code)

	var token apihttp.TokenResponse
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &token))
	assert.Equal(t, "Bearer", token.TokenType)

	id, claims, err := f.tokens.Parse(token.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, []string{"USER"}, claims.Roles)

	rr = f.do(t, http.MethodPost, "/api/auth/login", "", apihttp.LoginRequest{Username: "alice", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid username or password", decode(t, rr).Message)
}

func TestAuthHandler_Me(t *testing.T) {
	f := newFixture(t)
	u, token := f.signIn(t, user.RoleAdmin)

	rr := f.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got apihttp.UserResponse
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, []string{"ADMIN"}, got.Roles)

	rr = f.do(t, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_CapabilityTable(t *testing.T) {
	tests := []struct {
		name       string
		roles      []user.Role
		method     string
		path       string
		wantStatus int
	}{
		{name: "anonymous_cart", method: http.MethodGet, path: "/api/cart", wantStatus: http.StatusUnauthorized},
		{name: "anonymous_category_write", method: http.MethodPost, path: "/api/categories", wantStatus: http.StatusUnauthorized},
		{name: "user_category_write", roles: []user.Role{user.RoleUser}, method: http.MethodPost, path: "/api/categories", wantStatus: http.StatusForbidden},
		{name: "admin_category_write", roles: []user.Role{user.RoleAdmin}, method: http.MethodDelete, path: "/api/categories/" + uuid.Must(uuid.NewV4()).String(), wantStatus: http.StatusForbidden},
		{name: "user_product_write", roles: []user.Role{user.RoleUser}, method: http.MethodPost, path: "/api/products", wantStatus: http.StatusForbidden},
		{name: "admin_cart", roles: []user.Role{user.RoleAdmin}, method: http.MethodGet, path: "/api/cart", wantStatus: http.StatusForbidden},
		{name: "user_all_orders", roles: []user.Role{user.RoleUser}, method: http.MethodGet, path: "/api/orders/all", wantStatus: http.StatusForbidden},
		{name: "admin_user_admin", roles: []user.Role{user.RoleAdmin}, method: http.MethodGet, path: "/api/users", wantStatus: http.StatusForbidden},
		{name: "super_admin_addresses", roles: []user.Role{user.RoleSuperAdmin}, method: http.MethodGet, path: "/api/addresses", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			token := ""
			if tt.roles != nil {
				_, token = f.signIn(t, tt.roles...)
			}

			rr := f.do(t, tt.method, tt.path, token, nil)
			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())

			env := decode(t, rr)
			assert.False(t, env.Success)
			if tt.wantStatus == http.StatusForbidden {
				assert.Equal(t, "Access denied", env.Message)
			}
		})
	}
}

func TestRouter_InvalidToken(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/api/products", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid or expired token", decode(t, rr).Message)
	f.catalog.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything)
}

func TestProductHandler_DisabledVisibility(t *testing.T) {
	f := newFixture(t)
	_, adminToken := f.signIn(t, user.RoleAdmin)
	_, userToken := f.signIn(t, user.RoleUser)

	id := uuid.Must(uuid.NewV4())
	p := &catalog.Product{ID: id, Name: "Phone", Price: decimal.RequireFromString("199.99")}

	f.catalog.On("GetProduct", mock.Anything, id, false).Return(nil, apperr.NotFound("Product not found with id: %s", id)).Twice()
	f.catalog.On("GetProduct", mock.Anything, id, true).Return(p, nil).Once()

	rr := f.do(t, http.MethodGet, "/api/products/"+id.String(), "", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/products/"+id.String(), userToken, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, http.MethodGet, "/api/products/"+id.String(), adminToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestProductHandler_ListByCategory(t *testing.T) {
	f := newFixture(t)

	categoryID := uuid.Must(uuid.NewV4())
	products := []catalog.Product{{ID: uuid.Must(uuid.NewV4()), Name: "Phone", CategoryID: categoryID}}
	f.catalog.On("ListProducts", mock.Anything, catalog.ProductFilter{CategoryID: &categoryID}).Return(products, nil).Once()

	rr := f.do(t, http.MethodGet, "/api/products/category/"+categoryID.String(), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got []catalog.Product
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Phone", got[0].Name)
}

func TestProductHandler_Create(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, user.RoleAdmin)

	categoryID := uuid.Must(uuid.NewV4())
	created := &catalog.Product{ID: uuid.Must(uuid.NewV4()), Name: "Phone", CategoryID: categoryID, Enabled: true, InventoryQuantity: 5}

	f.catalog.On("CreateProduct", mock.Anything, mock.MatchedBy(func(in catalog.NewProduct) bool {
		return in.Name == "Phone" &&
			in.Price.Equal(decimal.RequireFromString("199.99")) &&
			in.CategoryID == categoryID &&
			in.Quantity == 5
	})).Return(created, nil).Once()

	body := `{"name":"Phone","price":"199.99","category_id":"` + categoryID.String() + `","quantity":5}`
	rr := f.do(t, http.MethodPost, "/api/products", token, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Product created successfully", decode(t, rr).Message)
}

func TestProductHandler_Create_ValidationFailures(t *testing.T) {
	categoryID := uuid.Must(uuid.NewV4()).String()

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "missing_price",
			body:      `{"name":"Phone","category_id":"` + categoryID + `","quantity":5}`,
			wantField: "price",
		},
		{
			name:      "name_longer_than_column",
			body:      `{"name":"` + strings.Repeat("n", 201) + `","price":"1.00","category_id":"` + categoryID + `"}`,
			wantField: "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, token := f.signIn(t, user.RoleAdmin)

			rr := f.do(t, http.MethodPost, "/api/products", token, tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

			env := decode(t, rr)
			assert.Equal(t, "Validation failed", env.Message)
			var details map[string]string
			require.NoError(t, json.Unmarshal(env.Data, &details))
			assert.Contains(t, details, tt.wantField)
			f.catalog.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
		})
	}
}

func TestProductHandler_Create_UnstorablePrice(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, user.RoleAdmin)

	categoryID := uuid.Must(uuid.NewV4())
	f.catalog.On("CreateProduct", mock.Anything, mock.MatchedBy(func(in catalog.NewProduct) bool {
		return in.Price.Equal(decimal.RequireFromString("19.999"))
	})).Return(nil, apperr.InvalidOperation("Price must have at most 2 decimal places")).Once()

	body := `{"name":"Phone","price":"19.999","category_id":"` + categoryID.String() + `"}`
	rr := f.do(t, http.MethodPost, "/api/products", token, body)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	assert.Equal(t, "Price must have at most 2 decimal places", decode(t, rr).Message)
}

func TestProductHandler_PartialUpdate(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, user.RoleSuperAdmin)

	id := uuid.Must(uuid.NewV4())
	f.catalog.On("UpdateProduct", mock.Anything, id, mock.MatchedBy(func(p catalog.ProductPatch) bool {
		return p.Enabled != nil && !*p.Enabled &&
			p.Name == nil && p.Price == nil && p.Quantity == nil && p.CategoryID == nil
	})).Return(&catalog.Product{ID: id, Enabled: false}, nil).Once()

	rr := f.do(t, http.MethodPut, "/api/products/"+id.String(), token, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestCategoryHandler_DeleteInUse(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, user.RoleSuperAdmin)

	id := uuid.Must(uuid.NewV4())
	f.catalog.On("DeleteCategory", mock.Anything, id).
		Return(apperr.Conflict("Category has products and cannot be deleted")).Once()

	rr := f.do(t, http.MethodDelete, "/api/categories/"+id.String(), token, nil)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Category has products and cannot be deleted", decode(t, rr).Message)
}

func TestCartHandler_AddItem(t *testing.T) {
	f := newFixture(t)
	u, token := f.signIn(t, user.RoleUser)

	productID := uuid.Must(uuid.NewV4())
	view := &cart.View{
		CartID:     uuid.Must(uuid.NewV4()),
		UserID:     u.ID,
		Items:      []cart.Line{{ItemID: uuid.Must(uuid.NewV4()), ProductID: productID, Quantity: 2, Price: decimal.NewFromInt(10), Subtotal: decimal.NewFromInt(20)}},
		TotalItems: 2,
		Total:      decimal.NewFromInt(20),
	}
	f.carts.On("AddItem", mock.Anything, u.ID, productID, 2).Return(view, nil).Once()
	f.carts.On("AddItem", mock.Anything, u.ID, productID, 3).
		Return(nil, apperr.InsufficientInventory("", 2, 3)).Once()

	rr := f.do(t, http.MethodPost, "/api/cart/items", token, apihttp.AddCartItemRequest{ProductID: productID, Quantity: 2})
	require.Equal(t, http.StatusOK, rr.Code)

	var got cart.View
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	assert.True(t, got.Total.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 2, got.TotalItems)

	rr = f.do(t, http.MethodPost, "/api/cart/items", token, apihttp.AddCartItemRequest{ProductID: productID, Quantity: 3})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Insufficient inventory. Available: 2, Requested: 3", decode(t, rr).Message)
}

func TestCartHandler_RejectsNonPositiveQuantity(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, user.RoleUser)

	rr := f.do(t, http.MethodPut, "/api/cart/items/"+uuid.Must(uuid.NewV4()).String(), token, `{"quantity":0}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Validation failed", decode(t, rr).Message)
	f.carts.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartHandler_RemoveForeignItem(t *testing.T) {
	f := newFixture(t)
	u, token := f.signIn(t, user.RoleUser)

	itemID := uuid.Must(uuid.NewV4())
	f.carts.On("RemoveItem", mock.Anything, u.ID, itemID).
		Return(nil, apperr.NotFound("Cart item not found with id: %s", itemID)).Once()

	rr := f.do(t, http.MethodDelete, "/api/cart/items/"+itemID.String(), token, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOrderHandler_Checkout(t *testing.T) {
	f := newFixture(t)
	u, token := f.signIn(t, user.RoleUser)

	addressID := uuid.Must(uuid.NewV4())
	placed := &order.Order{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      u.ID,
		AddressID:   addressID,
		Status:      order.StatusConfirmed,
		TotalAmount: decimal.RequireFromString("30.00"),
	}
	f.orders.On("PlaceOrder", mock.Anything, u.ID, addressID).Return(placed, nil).Once()

	rr := f.do(t, http.MethodPost, "/api/orders/checkout", token, apihttp.CheckoutRequest{AddressID: addressID})
	require.Equal(t, http.StatusCreated, rr.Code)

	var got order.Order
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	assert.Equal(t, placed.ID, got.ID)
	assert.Equal(t, order.StatusConfirmed, got.Status)
	assert.True(t, got.TotalAmount.Equal(placed.TotalAmount))
}

func TestOrderHandler_CheckoutFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "empty_cart",
			err:         apperr.InvalidOperation("Cart is empty"),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Cart is empty",
		},
		{
			name:        "foreign_address",
			err:         apperr.NotFound("Address not found"),
			wantStatus:  http.StatusNotFound,
			wantMessage: "Address not found",
		},
		{
			name:        "stock_changed",
			err:         apperr.InsufficientInventory("Phone", 1, 2),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Insufficient inventory for product 'Phone'. Available: 1, Requested: 2",
		},
		{
			name:        "internal",
			err:         errors.New("service: failed to place order: connection reset"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u, token := f.signIn(t, user.RoleUser)
			addressID := uuid.Must(uuid.NewV4())
			f.orders.On("PlaceOrder", mock.Anything, u.ID, addressID).Return(nil, tt.err).Once()

			rr := f.do(t, http.MethodPost, "/api/orders/checkout", token, apihttp.CheckoutRequest{AddressID: addressID})
			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantMessage, decode(t, rr).Message)
		})
	}
}

func TestOrderHandler_AllOrdersRouteIsNotAnID(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, user.RoleSuperAdmin)

	f.orders.On("GetAllOrders", mock.Anything).Return([]order.Order{}, nil).Once()

	rr := f.do(t, http.MethodGet, "/api/orders/all", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, user.RoleSuperAdmin)

	id := uuid.Must(uuid.NewV4())
	f.orders.On("UpdateOrderStatus", mock.Anything, id, order.StatusShipped).
		Return(&order.Order{ID: id, Status: order.StatusShipped}, nil).Once()
	f.orders.On("UpdateOrderStatus", mock.Anything, id, order.StatusPending).
		Return(nil, apperr.InvalidOperation("Cannot change order status from SHIPPED to PENDING")).Once()

	rr := f.do(t, http.MethodPut, "/api/orders/"+id.String()+"/status", token, apihttp.UpdateOrderStatusRequest{Status: "SHIPPED"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodPut, "/api/orders/"+id.String()+"/status", token, apihttp.UpdateOrderStatusRequest{Status: "PENDING"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Cannot change order status from SHIPPED to PENDING", decode(t, rr).Message)

	rr = f.do(t, http.MethodPut, "/api/orders/"+id.String()+"/status", token, apihttp.UpdateOrderStatusRequest{Status: "LOST"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Validation failed", decode(t, rr).Message)
}

func TestAddressHandler_CreateAndForeignLookup(t *testing.T) {
	f := newFixture(t)
	u, token := f.signIn(t, user.RoleUser)

	req := apihttp.AddressRequest{Street: "Main 1", City: "Riga", State: "-", ZipCode: "1010", Country: "LV"}
	f.addresses.On("Add", mock.Anything, u.ID, mock.MatchedBy(func(a *address.Address) bool {
		return a.Street == "Main 1" && a.City == "Riga" && a.Country == "LV"
	})).Return(&address.Address{ID: uuid.Must(uuid.NewV4()), UserID: u.ID, Street: "Main 1"}, nil).Once()

	rr := f.do(t, http.MethodPost, "/api/addresses", token, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	foreign := uuid.Must(uuid.NewV4())
	f.addresses.On("GetOwned", mock.Anything, foreign, u.ID).Return(nil, apperr.NotFound("Address not found")).Once()

	rr = f.do(t, http.MethodGet, "/api/addresses/"+foreign.String(), token, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUserHandler_UpdateRole(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, user.RoleSuperAdmin)

	target := &user.User{ID: uuid.Must(uuid.NewV4()), Username: "bob", Enabled: true, Roles: []user.Role{user.RoleAdmin}}
	f.users.On("UpdateRole", mock.Anything, target.ID, user.RoleAdmin).Return(target, nil).Once()

	rr := f.do(t, http.MethodPut, "/api/users/"+target.ID.String()+"/role", token, apihttp.UpdateRoleRequest{Role: "ADMIN"})
	require.Equal(t, http.StatusOK, rr.Code)

	var got apihttp.UserResponse
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &got))
	assert.Equal(t, []string{"ADMIN"}, got.Roles)
}

func TestUserHandler_InvalidID(t *testing.T) {
	f := newFixture(t)
	_, token := f.signIn(t, user.RoleSuperAdmin)

	rr := f.do(t, http.MethodGet, "/api/users/not-a-uuid", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid id parameter", decode(t, rr).Message)
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(t)

	f.db.On("Ping", mock.Anything).Return(nil).Once()
	rr := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode(t, rr).Success)

	f.db.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()
	rr = f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.False(t, decode(t, rr).Success)
}
