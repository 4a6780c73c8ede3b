package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/middleware"
	"clothes-shop/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Stub services record the arguments they receive and return canned results

type stubUserService struct {
	registerInput service.RegisterInput
	registerErr   error
	loginErr      error
	resetEmail    string
	resetToken    string
	resetPassword string
	resetErr      error
	profileInput  service.ProfileInput
	user          *domain.User
}

func (s *stubUserService) Register(ctx context.Context, input service.RegisterInput) (*domain.User, error) {
	s.registerInput = input
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &domain.User{
		ID:       uuid.New(),
		Username: input.Username,
		Email:    input.Email,
		FullName: input.FullName,
		Phone:    input.Phone,
		Address:  input.Address,
		Role:     domain.RoleUser,
	}, nil
}

func (s *stubUserService) Login(ctx context.Context, username, password string) (string, string, *domain.User, error) {
	if s.loginErr != nil {
		return "", "", nil, s.loginErr
	}
	return "access", "refresh", &domain.User{ID: uuid.New(), Username: username, Role: domain.RoleUser}, nil
}

func (s *stubUserService) Logout(ctx context.Context, refreshToken string) error {
	return nil
}

func (s *stubUserService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	return "access", nil
}

func (s *stubUserService) ValidateToken(tokenString string) (*service.Claims, error) {
	return nil, service.ErrInvalidToken
}

func (s *stubUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if s.user == nil {
		return nil, domain.NewError(domain.KindNotFound, "user not found")
	}
	return s.user, nil
}

func (s *stubUserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input service.ProfileInput) (*domain.User, error) {
	s.profileInput = input
	return &domain.User{ID: userID, Email: input.Email, FullName: input.FullName, Phone: input.Phone, Address: input.Address}, nil
}

func (s *stubUserService) RequestPasswordReset(ctx context.Context, email string) error {
	s.resetEmail = email
	return nil
}

func (s *stubUserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	s.resetToken = token
	s.resetPassword = newPassword
	return s.resetErr
}

type stubCartService struct {
	identity  domain.Identity
	productID uuid.UUID
	quantity  int
	calls     int
	err       error
}

func (s *stubCartService) record(identity domain.Identity, productID uuid.UUID, quantity int) {
	s.calls++
	s.identity = identity
	s.productID = productID
	s.quantity = quantity
}

func (s *stubCartService) GetCart(ctx context.Context, identity domain.Identity) (*domain.Cart, error) {
	s.record(identity, uuid.Nil, 0)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Cart{ID: uuid.New(), UserID: identity.UserID, Lines: []domain.CartLine{}}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, identity domain.Identity, productID uuid.UUID, quantity int) (*service.CartItemResult, error) {
	s.record(identity, productID, quantity)
	if s.err != nil {
		return nil, s.err
	}
	return &service.CartItemResult{ProductName: "Denim Jacket", Quantity: quantity}, nil
}

func (s *stubCartService) SetItemQuantity(ctx context.Context, identity domain.Identity, productID uuid.UUID, quantity int) (*service.CartItemResult, error) {
	s.record(identity, productID, quantity)
	if s.err != nil {
		return nil, s.err
	}
	return &service.CartItemResult{ProductName: "Denim Jacket", Quantity: quantity, TotalProductTypes: 1}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, identity domain.Identity, productID uuid.UUID) (*domain.Cart, error) {
	s.record(identity, productID, 0)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Cart{ID: uuid.New(), UserID: identity.UserID, Lines: []domain.CartLine{}}, nil
}

type stubOrderService struct {
	identity  domain.Identity
	input     service.PlaceOrderInput
	orderID   uuid.UUID
	productID uuid.UUID
	rating    int
	status    domain.OrderStatus
	calls     int
	orders    []*domain.Order
	err       error
}

func (s *stubOrderService) order(identity domain.Identity, id uuid.UUID, status domain.OrderStatus) *domain.Order {
	return &domain.Order{ID: id, UserID: identity.UserID, TrackingCode: "0123456789", Status: status}
}

func (s *stubOrderService) PlaceOrder(ctx context.Context, identity domain.Identity, input service.PlaceOrderInput) (*domain.Order, error) {
	s.calls++
	s.identity = identity
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return s.order(identity, uuid.New(), domain.OrderStatusPending), nil
}

func (s *stubOrderService) CancelOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (*domain.Order, error) {
	s.calls++
	s.identity = identity
	s.orderID = orderID
	if s.err != nil {
		return nil, s.err
	}
	return s.order(identity, orderID, domain.OrderStatusCancelled), nil
}

func (s *stubOrderService) RateProduct(ctx context.Context, identity domain.Identity, orderID, productID uuid.UUID, rating int) (*domain.OrderLine, error) {
	s.calls++
	s.identity = identity
	s.orderID = orderID
	s.productID = productID
	s.rating = rating
	if s.err != nil {
		return nil, s.err
	}
	return &domain.OrderLine{OrderID: orderID, ProductID: productID, Rating: &rating}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, identity domain.Identity) ([]*domain.Order, error) {
	s.calls++
	s.identity = identity
	return s.orders, s.err
}

func (s *stubOrderService) GetOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (*domain.Order, error) {
	s.calls++
	s.identity = identity
	s.orderID = orderID
	if s.err != nil {
		return nil, s.err
	}
	return s.order(identity, orderID, domain.OrderStatusPending), nil
}

func (s *stubOrderService) AdvanceStatus(ctx context.Context, identity domain.Identity, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	s.calls++
	s.identity = identity
	s.orderID = orderID
	s.status = next
	if s.err != nil {
		return nil, s.err
	}
	return s.order(identity, orderID, next), nil
}

type stubCatalogService struct {
	filter       service.ProductFilter
	query        string
	productInput service.ProductInput
	products     []*domain.Product
	calls        int
	err          error
}

func (s *stubCatalogService) page(page, pageSize int) *service.ProductPage {
	return &service.ProductPage{Products: s.products, Total: len(s.products), Page: page, PageSize: pageSize}
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter service.ProductFilter) (*service.ProductPage, error) {
	s.calls++
	s.filter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.page(filter.Page, filter.PageSize), nil
}

func (s *stubCatalogService) SearchProducts(ctx context.Context, query string, page, pageSize int) (*service.ProductPage, error) {
	s.calls++
	s.query = query
	if s.err != nil {
		return nil, s.err
	}
	return s.page(page, pageSize), nil
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: id, Name: "Wool Scarf", Price: 120000}, nil
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, identity domain.Identity, input service.ProductInput) (*domain.Product, error) {
	s.calls++
	s.productInput = input
	if s.err != nil {
		return nil, s.err
	}
	product := &domain.Product{ID: uuid.New(), Name: input.Name, Price: input.Price, CategoryID: input.CategoryID, Stock: 10}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	return product, nil
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, identity domain.Identity, id uuid.UUID, input service.ProductInput) (*domain.Product, error) {
	s.calls++
	s.productInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Product{ID: id, Name: input.Name, Price: input.Price}, nil
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, identity domain.Identity, id uuid.UUID) error {
	s.calls++
	return s.err
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	s.calls++
	return []*domain.Category{}, s.err
}

func (s *stubCatalogService) CreateCategory(ctx context.Context, identity domain.Identity, name, description string) (*domain.Category, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Category{ID: uuid.New(), Name: name, Description: description}, nil
}

func (s *stubCatalogService) UpdateCategory(ctx context.Context, identity domain.Identity, id uuid.UUID, name, description string) (*domain.Category, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Category{ID: id, Name: name, Description: description}, nil
}

func (s *stubCatalogService) DeleteCategory(ctx context.Context, identity domain.Identity, id uuid.UUID) error {
	s.calls++
	return s.err
}

func (s *stubCatalogService) ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	s.calls++
	return []*domain.PaymentMethod{{ID: uuid.New(), Name: domain.PaymentMethodCOD}}, s.err
}

type stubPolicyService struct {
	locked *bool
	err    error
}

func (s *stubPolicyService) GetSettings(ctx context.Context, identity domain.Identity) (*domain.AdminSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.AdminSettings{}, nil
}

func (s *stubPolicyService) SetEditLock(ctx context.Context, identity domain.Identity, locked bool) (*domain.AdminSettings, error) {
	s.locked = &locked
	if s.err != nil {
		return nil, s.err
	}
	return &domain.AdminSettings{EditLocked: locked, UpdatedBy: &identity.UserID}, nil
}

// withIdentity stands in for AuthMiddleware
func withIdentity(identity domain.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func passThrough(next http.Handler) http.Handler {
	return next
}

func customer() domain.Identity {
	return domain.Identity{UserID: uuid.New(), Role: domain.RoleUser}
}

func admin() domain.Identity {
	return domain.Identity{UserID: uuid.New(), Role: domain.RoleAdmin}
}

func doRequest(t *testing.T, router chi.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponse {
	t.Helper()
	var response middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}
