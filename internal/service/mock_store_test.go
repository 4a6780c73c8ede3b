package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/repository"

	"github.com/google/uuid"
)

// mockState holds every table of the in-memory store
type mockState struct {
	users          map[uuid.UUID]*domain.User
	tokens         map[string]*domain.RefreshToken
	categories     map[uuid.UUID]*domain.Category
	products       map[uuid.UUID]*domain.Product
	paymentMethods map[uuid.UUID]*domain.PaymentMethod
	carts          map[uuid.UUID]*domain.Cart // keyed by user id
	cartLines      map[uuid.UUID]*domain.CartLine
	orders         map[uuid.UUID]*domain.Order
	orderLines     map[uuid.UUID]*domain.OrderLine
	settings       domain.AdminSettings
}

func newMockState() *mockState {
	return &mockState{
		users:          make(map[uuid.UUID]*domain.User),
		tokens:         make(map[string]*domain.RefreshToken),
		categories:     make(map[uuid.UUID]*domain.Category),
		products:       make(map[uuid.UUID]*domain.Product),
		paymentMethods: make(map[uuid.UUID]*domain.PaymentMethod),
		carts:          make(map[uuid.UUID]*domain.Cart),
		cartLines:      make(map[uuid.UUID]*domain.CartLine),
		orders:         make(map[uuid.UUID]*domain.Order),
		orderLines:     make(map[uuid.UUID]*domain.OrderLine),
	}
}

func (st *mockState) clone() *mockState {
	c := newMockState()
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range st.tokens {
		t := *v
		c.tokens[k] = &t
	}
	for k, v := range st.categories {
		cat := *v
		c.categories[k] = &cat
	}
	for k, v := range st.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range st.paymentMethods {
		pm := *v
		c.paymentMethods[k] = &pm
	}
	for k, v := range st.carts {
		cart := *v
		cart.Lines = nil
		c.carts[k] = &cart
	}
	for k, v := range st.cartLines {
		line := *v
		c.cartLines[k] = &line
	}
	for k, v := range st.orders {
		order := *v
		order.Lines = nil
		c.orders[k] = &order
	}
	for k, v := range st.orderLines {
		line := *v
		c.orderLines[k] = &line
	}
	c.settings = st.settings
	return c
}

// mockStore is an in-memory repository.Store. Transactions are serialized
// and a failed transaction restores the snapshot taken when it began.
type mockStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state *mockState

	commits   int
	rollbacks int
}

func newMockStore() *mockStore {
	return &mockStore{state: newMockState()}
}

func (m *mockStore) Repos() repository.Repositories {
	return repository.Repositories{
		Users:          &mockUserRepository{m},
		RefreshTokens:  &mockRefreshTokenRepository{m},
		Categories:     &mockCategoryRepository{m},
		Products:       &mockProductRepository{m},
		PaymentMethods: &mockPaymentMethodRepository{m},
		Carts:          &mockCartRepository{m},
		Orders:         &mockOrderRepository{m},
		Settings:       &mockSettingsRepository{m},
	}
}

func (m *mockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	if err := fn(ctx, m.Repos()); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.rollbacks++
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

// view runs fn against the current state under the store lock
func (m *mockStore) view(fn func(st *mockState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.state)
}

// Seeding helpers used by the tests

func (m *mockStore) seedUser(role domain.Role, superuser bool) *domain.User {
	id := uuid.New()
	user := &domain.User{
		ID:          id,
		Username:    "user-" + id.String()[:8],
		Email:       id.String()[:8] + "@example.com",
		FullName:    "Nguyen Van A",
		Phone:       "0900000000",
		Address:     "1 Le Loi, District 1",
		Role:        role,
		IsSuperuser: superuser,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.view(func(st *mockState) {
		u := *user
		st.users[id] = &u
	})
	return user
}

func (m *mockStore) seedProduct(name string, price int64, stock int) *domain.Product {
	product := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.view(func(st *mockState) {
		p := *product
		st.products[product.ID] = &p
	})
	return product
}

func (m *mockStore) seedPaymentMethod(name string) *domain.PaymentMethod {
	method := &domain.PaymentMethod{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	m.view(func(st *mockState) {
		pm := *method
		st.paymentMethods[method.ID] = &pm
	})
	return method
}

func (m *mockStore) product(id uuid.UUID) domain.Product {
	var p domain.Product
	m.view(func(st *mockState) { p = *st.products[id] })
	return p
}

func (m *mockStore) orderCount() int {
	var n int
	m.view(func(st *mockState) { n = len(st.orders) })
	return n
}

func (m *mockStore) cartLineCount() int {
	var n int
	m.view(func(st *mockState) { n = len(st.cartLines) })
	return n
}

type mockUserRepository struct{ s *mockStore }

func (r *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.state.users {
		if existing.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
		if existing.Username == user.Username {
			return repository.ErrUsernameAlreadyExists
		}
	}
	u := *user
	r.s.state.users[user.ID] = &u
	return nil
}

func (r *mockUserRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.state.users {
		if match(user) {
			u := *user
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username })
}

func (r *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *mockUserRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.state.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for _, existing := range r.s.state.users {
		if existing.ID != user.ID && existing.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	stored.Email = user.Email
	stored.FullName = user.FullName
	stored.Phone = user.Phone
	stored.Address = user.Address
	stored.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.state.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	stored.PasswordHash = passwordHash
	stored.UpdatedAt = time.Now()
	return nil
}

type mockRefreshTokenRepository struct{ s *mockStore }

func (r *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := *token
	r.s.state.tokens[token.Token] = &t
	return nil
}

func (r *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	refreshToken, exists := r.s.state.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	t := *refreshToken
	return &t, nil
}

func (r *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	refreshToken, exists := r.s.state.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (r *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, token := range r.s.state.tokens {
		if token.UserID == userID && !token.Revoked {
			token.Revoked = true
			n++
		}
	}
	return n, nil
}

type mockCategoryRepository struct{ s *mockStore }

func (r *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.state.categories {
		if existing.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	c := *category
	r.s.state.categories[category.ID] = &c
	return nil
}

func (r *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.state.categories[category.ID]
	if !ok {
		return repository.ErrCategoryNotFound
	}
	for _, existing := range r.s.state.categories {
		if existing.ID != category.ID && existing.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	stored.Name = category.Name
	stored.Description = category.Description
	return nil
}

func (r *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	delete(r.s.state.categories, id)
	for _, product := range r.s.state.products {
		if product.CategoryID != nil && *product.CategoryID == id {
			product.CategoryID = nil
		}
	}
	return nil
}

func (r *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	categories := []*domain.Category{}
	for _, category := range r.s.state.categories {
		c := *category
		categories = append(categories, &c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (r *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category, ok := r.s.state.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	c := *category
	return &c, nil
}

type mockProductRepository struct{ s *mockStore }

func (r *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if product.CategoryID != nil {
		if _, ok := r.s.state.categories[*product.CategoryID]; !ok {
			return repository.ErrCategoryNotFound
		}
	}
	p := *product
	r.s.state.products[product.ID] = &p
	return nil
}

func (r *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	if product.CategoryID != nil {
		if _, ok := r.s.state.categories[*product.CategoryID]; !ok {
			return repository.ErrCategoryNotFound
		}
	}
	p := *product
	r.s.state.products[product.ID] = &p
	return nil
}

func (r *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.s.state.products, id)
	for lineID, line := range r.s.state.cartLines {
		if line.ProductID == id {
			delete(r.s.state.cartLines, lineID)
		}
	}
	return nil
}

func (r *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.state.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	p := *product
	return &p, nil
}

func (r *mockProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *mockProductRepository) List(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return r.page(page, pageSize, sortBy, sortOrder, func(p *domain.Product) bool {
		return categoryID == nil || (p.CategoryID != nil && *p.CategoryID == *categoryID)
	})
}

func (r *mockProductRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	query = strings.ToLower(query)
	return r.page(page, pageSize, "name", repository.SortOrderAsc, func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query)
	})
}

func (r *mockProductRepository) page(page, pageSize int, sortBy string, sortOrder repository.SortOrder, match func(*domain.Product) bool) ([]*domain.Product, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := []*domain.Product{}
	for _, product := range r.s.state.products {
		if match(product) {
			p := *product
			matched = append(matched, &p)
		}
	}

	less := func(a, b *domain.Product) bool {
		switch sortBy {
		case "name":
			return a.Name < b.Name
		case "price":
			return a.Price < b.Price
		case "stock":
			return a.Stock < b.Stock
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if sortOrder == repository.SortOrderAsc {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *mockProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.state.products[id]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	if product.Stock < quantity {
		return 0, repository.ErrStockExhausted
	}
	product.Stock -= quantity
	return product.Stock, nil
}

func (r *mockProductRepository) UpdateRating(ctx context.Context, id uuid.UUID, rating *float64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	product, ok := r.s.state.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	product.Rating = rating
	return nil
}

type mockPaymentMethodRepository struct{ s *mockStore }

func (r *mockPaymentMethodRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	method, ok := r.s.state.paymentMethods[id]
	if !ok {
		return nil, repository.ErrPaymentMethodNotFound
	}
	pm := *method
	return &pm, nil
}

func (r *mockPaymentMethodRepository) List(ctx context.Context) ([]*domain.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	methods := []*domain.PaymentMethod{}
	for _, method := range r.s.state.paymentMethods {
		pm := *method
		methods = append(methods, &pm)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].Name < methods[j].Name })
	return methods, nil
}

type mockCartRepository struct{ s *mockStore }

func (r *mockCartRepository) Ensure(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.users[userID]; !ok {
		return repository.ErrUserNotFound
	}
	if _, ok := r.s.state.carts[userID]; ok {
		return nil
	}
	now := time.Now()
	r.s.state.carts[userID] = &domain.Cart{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (r *mockCartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cart, ok := r.s.state.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	c := *cart
	return &c, nil
}

func (r *mockCartRepository) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.FindByUserID(ctx, userID)
}

func (r *mockCartRepository) UpdateTotals(ctx context.Context, cart *domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, stored := range r.s.state.carts {
		if stored.ID == cart.ID {
			stored.Quantity = cart.Quantity
			stored.TotalValue = cart.TotalValue
			stored.UpdatedAt = time.Now()
			cart.UpdatedAt = stored.UpdatedAt
			return nil
		}
	}
	return repository.ErrCartNotFound
}

func (r *mockCartRepository) ListLines(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lines := []domain.CartLine{}
	for _, line := range r.s.state.cartLines {
		if line.CartID != cartID {
			continue
		}
		l := *line
		if product, ok := r.s.state.products[line.ProductID]; ok {
			l.ProductName = product.Name
			l.UnitPrice = product.Price
		}
		lines = append(lines, l)
	}
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].CreatedAt.Before(lines[j].CreatedAt)
		}
		return lines[i].ID.String() < lines[j].ID.String()
	})
	return lines, nil
}

func (r *mockCartRepository) FindLine(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, line := range r.s.state.cartLines {
		if line.CartID == cartID && line.ProductID == productID {
			l := *line
			if product, ok := r.s.state.products[productID]; ok {
				l.ProductName = product.Name
				l.UnitPrice = product.Price
			}
			return &l, nil
		}
	}
	return nil, repository.ErrCartLineNotFound
}

func (r *mockCartRepository) CreateLine(ctx context.Context, line *domain.CartLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.products[line.ProductID]; !ok {
		return repository.ErrProductNotFound
	}
	for _, existing := range r.s.state.cartLines {
		if existing.CartID == line.CartID && existing.ProductID == line.ProductID {
			return repository.ErrCartLineExists
		}
	}
	l := *line
	r.s.state.cartLines[line.ID] = &l
	return nil
}

func (r *mockCartRepository) UpdateLine(ctx context.Context, line *domain.CartLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.state.cartLines[line.ID]
	if !ok {
		return repository.ErrCartLineNotFound
	}
	stored.Quantity = line.Quantity
	stored.Price = line.Price
	stored.UpdatedAt = line.UpdatedAt
	return nil
}

func (r *mockCartRepository) DeleteLine(ctx context.Context, cartID, productID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, line := range r.s.state.cartLines {
		if line.CartID == cartID && line.ProductID == productID {
			delete(r.s.state.cartLines, id)
			return nil
		}
	}
	return repository.ErrCartLineNotFound
}

func (r *mockCartRepository) DeleteLines(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	var n int64
	for id, line := range r.s.state.cartLines {
		if line.CartID == cartID && wanted[line.ProductID] {
			delete(r.s.state.cartLines, id)
			n++
		}
	}
	return n, nil
}

type mockOrderRepository struct{ s *mockStore }

func (r *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.state.orders {
		if existing.TrackingCode == order.TrackingCode {
			return repository.ErrTrackingCodeTaken
		}
	}
	if _, ok := r.s.state.paymentMethods[order.PaymentMethodID]; !ok {
		return repository.ErrPaymentMethodNotFound
	}
	o := *order
	o.Lines = nil
	r.s.state.orders[order.ID] = &o
	return nil
}

func (r *mockOrderRepository) CreateLine(ctx context.Context, line *domain.OrderLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.state.orders[line.OrderID]; !ok {
		return repository.ErrOrderNotFound
	}
	for _, existing := range r.s.state.orderLines {
		if existing.OrderID == line.OrderID && existing.ProductID == line.ProductID {
			return repository.ErrOrderLineExists
		}
	}
	l := *line
	r.s.state.orderLines[line.ID] = &l
	return nil
}

// withLines copies an order and attaches its lines. Callers hold the lock.
func (r *mockOrderRepository) withLines(order *domain.Order) *domain.Order {
	o := *order
	o.Lines = []domain.OrderLine{}
	for _, line := range r.s.state.orderLines {
		if line.OrderID == order.ID {
			o.Lines = append(o.Lines, *line)
		}
	}
	sort.Slice(o.Lines, func(i, j int) bool { return o.Lines[i].ID.String() < o.Lines[j].ID.String() })
	return &o
}

func (r *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.state.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return r.withLines(order), nil
}

func (r *mockOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	orders := []*domain.Order{}
	for _, order := range r.s.state.orders {
		if order.UserID == userID {
			orders = append(orders, r.withLines(order))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (r *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.state.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}

func (r *mockOrderRepository) FindLineForUpdate(ctx context.Context, orderID, productID uuid.UUID) (*domain.OrderLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, line := range r.s.state.orderLines {
		if line.OrderID == orderID && line.ProductID == productID {
			l := *line
			return &l, nil
		}
	}
	return nil, repository.ErrOrderLineNotFound
}

func (r *mockOrderRepository) SetLineRating(ctx context.Context, lineID uuid.UUID, rating int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	line, ok := r.s.state.orderLines[lineID]
	if !ok || line.Rating != nil {
		return repository.ErrAlreadyRated
	}
	line.Rating = &rating
	return nil
}

func (r *mockOrderRepository) ListProductRatings(ctx context.Context, productID uuid.UUID) ([]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ratings := []int{}
	for _, line := range r.s.state.orderLines {
		if line.ProductID == productID && line.Rating != nil {
			ratings = append(ratings, *line.Rating)
		}
	}
	return ratings, nil
}

type mockSettingsRepository struct{ s *mockStore }

func (r *mockSettingsRepository) Get(ctx context.Context) (*domain.AdminSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	settings := r.s.state.settings
	return &settings, nil
}

func (r *mockSettingsRepository) Update(ctx context.Context, settings *domain.AdminSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.state.settings = *settings
	return nil
}
