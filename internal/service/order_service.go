package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MaxTrackingCodeAttempts bounds how often a colliding tracking code is
// regenerated before placement gives up
const MaxTrackingCodeAttempts = 5

var ErrTrackingCodeExhausted = errors.New("could not allocate a unique tracking code")

// OrderItem is one requested product of a placement
type OrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// PlaceOrderInput is the request of the placement workflow
type PlaceOrderInput struct {
	Source          domain.PurchaseSource
	PaymentMethodID uuid.UUID
	Items           []OrderItem
	Recipient       domain.Recipient
}

// OrderService defines the interface for order business logic
type OrderService interface {
	// PlaceOrder validates the request, reserves stock, records the order and
	// clears purchased cart lines, all in one transaction.
	PlaceOrder(ctx context.Context, identity domain.Identity, input PlaceOrderInput) (*domain.Order, error)
	CancelOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (*domain.Order, error)
	RateProduct(ctx context.Context, identity domain.Identity, orderID, productID uuid.UUID, rating int) (*domain.OrderLine, error)
	ListOrders(ctx context.Context, identity domain.Identity) ([]*domain.Order, error)
	GetOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (*domain.Order, error)
	AdvanceStatus(ctx context.Context, identity domain.Identity, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
}

type orderService struct {
	store        repository.Store
	logger       *zap.Logger
	trackingCode func() (string, error)
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(store repository.Store, logger *zap.Logger) OrderService {
	return &orderService{
		store:        store,
		logger:       logger,
		trackingCode: domain.NewTrackingCode,
	}
}

func (s *orderService) PlaceOrder(ctx context.Context, identity domain.Identity, input PlaceOrderInput) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder")
	span.SetAttributes(
		attribute.String("order.source", string(input.Source)),
		attribute.Int("order.items", len(input.Items)),
	)
	defer func() { endSpan(span, err) }()

	if err := identity.RequireCustomer(); err != nil {
		return nil, err
	}
	if !input.Source.Valid() {
		return nil, domain.Errorf(domain.KindValidation, "invalid purchase source %q", input.Source)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = s.placeOrder(ctx, repos, identity, input)
		return err
	})
	if err != nil {
		s.logger.Info("Order placement rejected",
			zap.String("user_id", identity.UserID.String()),
			zap.String("source", string(input.Source)),
			zap.Error(err),
		)
		return nil, err
	}

	span.SetAttributes(attribute.String("order.tracking_code", order.TrackingCode))
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("tracking_code", order.TrackingCode),
		zap.String("user_id", identity.UserID.String()),
		zap.Int64("total", order.Total),
	)

	return order, nil
}

// placeOrder runs inside the placement transaction. Any error it returns
// rolls back every stock decrement and row written before it.
func (s *orderService) placeOrder(ctx context.Context, repos repository.Repositories, identity domain.Identity, input PlaceOrderInput) (*domain.Order, error) {
	if _, err := repos.PaymentMethods.FindByID(ctx, input.PaymentMethodID); err != nil {
		return nil, err
	}
	if err := validateItems(input); err != nil {
		return nil, err
	}

	var cart *domain.Cart
	if input.Source == domain.SourceCart {
		var err error
		if cart, err = lockCart(ctx, repos, identity.UserID); err != nil {
			return nil, err
		}
	}

	products, err := lockProducts(ctx, repos, input.Items)
	if err != nil {
		return nil, err
	}

	// Checks run in request order so the first offending item is reported.
	for _, item := range input.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, repository.ErrProductNotFound
		}
		if product.Stock < item.Quantity {
			return nil, insufficientStock(product)
		}
		if cart != nil {
			if _, err := repos.Carts.FindLine(ctx, cart.ID, item.ProductID); err != nil {
				return nil, err
			}
		}
	}

	for _, item := range input.Items {
		if _, err := repos.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	user, err := repos.Users.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	recipient := input.Recipient.WithDefaults(user)

	now := time.Now()
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          user.ID,
		Status:          domain.OrderStatusPending,
		RecipientName:   recipient.Name,
		RecipientPhone:  recipient.Phone,
		RecipientAddr:   recipient.Address,
		PaymentMethodID: input.PaymentMethodID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, item := range input.Items {
		product := products[item.ProductID]
		order.Lines = append(order.Lines, domain.OrderLine{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			Total:       domain.LinePrice(product.Price, item.Quantity),
			CreatedAt:   now,
		})
	}
	order.Total = domain.OrderTotal(order.Lines)

	if err := s.createWithTrackingCode(ctx, repos, order); err != nil {
		return nil, err
	}
	for i := range order.Lines {
		if err := repos.Orders.CreateLine(ctx, &order.Lines[i]); err != nil {
			return nil, err
		}
	}

	if cart != nil {
		purchased := make([]uuid.UUID, len(input.Items))
		for i, item := range input.Items {
			purchased[i] = item.ProductID
		}
		if _, err := repos.Carts.DeleteLines(ctx, cart.ID, purchased); err != nil {
			return nil, err
		}
		if err := refreshCart(ctx, repos, cart); err != nil {
			return nil, err
		}
	}

	return order, nil
}

func validateItems(input PlaceOrderInput) error {
	if len(input.Items) == 0 {
		return domain.NewError(domain.KindValidation, "no products selected")
	}
	if input.Source == domain.SourceDetail && len(input.Items) != 1 {
		return domain.NewError(domain.KindValidation, "a direct purchase takes exactly one product")
	}

	seen := make(map[uuid.UUID]struct{}, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return domain.NewError(domain.KindValidation, "quantity must be at least 1")
		}
		if _, dup := seen[item.ProductID]; dup {
			return domain.Errorf(domain.KindValidation, "product %s listed more than once", item.ProductID)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// lockProducts locks every requested product in ascending id order so that
// concurrent placements always acquire row locks in the same sequence.
// Missing products are left out of the result.
func lockProducts(ctx context.Context, repos repository.Repositories, items []OrderItem) (map[uuid.UUID]*domain.Product, error) {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	products := make(map[uuid.UUID]*domain.Product, len(ids))
	for _, id := range ids {
		product, err := repos.Products.FindByIDForUpdate(ctx, id)
		if errors.Is(err, repository.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		products[id] = product
	}
	return products, nil
}

func (s *orderService) createWithTrackingCode(ctx context.Context, repos repository.Repositories, order *domain.Order) error {
	for attempt := 1; attempt <= MaxTrackingCodeAttempts; attempt++ {
		code, err := s.trackingCode()
		if err != nil {
			return fmt.Errorf("failed to generate tracking code: %w", err)
		}
		order.TrackingCode = code

		err = repos.Orders.Create(ctx, order)
		if errors.Is(err, repository.ErrTrackingCodeTaken) {
			s.logger.Warn("Tracking code collision", zap.Int("attempt", attempt))
			continue
		}
		return err
	}
	return ErrTrackingCodeExhausted
}

// CancelOrder moves a pending order of the caller to cancelled. Reserved
// stock is not returned.
func (s *orderService) CancelOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CancelOrder")
	span.SetAttributes(attribute.String("order.id", orderID.String()))
	defer func() { endSpan(span, err) }()

	if !identity.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthenticated, "authentication required")
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		order, err = repos.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != identity.UserID {
			return domain.NewError(domain.KindForbidden, "order belongs to another user")
		}
		if order.Status != domain.OrderStatusPending {
			return domain.Errorf(domain.KindInvalidTransition, "cannot cancel an order that is %s", order.Status)
		}

		if err := repos.Orders.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
			return err
		}
		order.Status = domain.OrderStatusCancelled
		order.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", identity.UserID.String()),
	)

	return order, nil
}

// RateProduct stores a one-time rating on a line of a completed order and
// refreshes the product's mean rating
func (s *orderService) RateProduct(ctx context.Context, identity domain.Identity, orderID, productID uuid.UUID, rating int) (line *domain.OrderLine, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.RateProduct")
	span.SetAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("product.id", productID.String()),
	)
	defer func() { endSpan(span, err) }()

	if !identity.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthenticated, "authentication required")
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		order, err := repos.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != identity.UserID {
			return domain.NewError(domain.KindForbidden, "order belongs to another user")
		}
		if order.Status != domain.OrderStatusCompleted {
			return domain.NewError(domain.KindInvalidTransition, "only completed orders can be rated")
		}

		line, err = repos.Orders.FindLineForUpdate(ctx, orderID, productID)
		if err != nil {
			return err
		}
		if line.Rating != nil {
			return repository.ErrAlreadyRated
		}
		if !domain.ValidRating(rating) {
			return domain.Errorf(domain.KindValidation, "rating must be between %d and %d", domain.MinRating, domain.MaxRating)
		}

		if err := repos.Orders.SetLineRating(ctx, line.ID, rating); err != nil {
			return err
		}
		line.Rating = &rating

		if _, err := repos.Products.FindByIDForUpdate(ctx, productID); err != nil {
			return err
		}
		ratings, err := repos.Orders.ListProductRatings(ctx, productID)
		if err != nil {
			return err
		}
		return repos.Products.UpdateRating(ctx, productID, domain.MeanRating(ratings))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product rated",
		zap.String("order_id", orderID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("rating", rating),
	)

	return line, nil
}

// ListOrders returns the caller's orders, newest first
func (s *orderService) ListOrders(ctx context.Context, identity domain.Identity) ([]*domain.Order, error) {
	if !identity.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthenticated, "authentication required")
	}

	orders, err := s.store.Repos().Orders.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns an order to its owner or to an admin
func (s *orderService) GetOrder(ctx context.Context, identity domain.Identity, orderID uuid.UUID) (*domain.Order, error) {
	if !identity.Authenticated() {
		return nil, domain.NewError(domain.KindUnauthenticated, "authentication required")
	}

	order, err := s.store.Repos().Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != identity.UserID && !identity.IsAdmin() {
		return nil, domain.NewError(domain.KindForbidden, "order belongs to another user")
	}
	return order, nil
}

// AdvanceStatus moves an order along its lifecycle on behalf of an admin
func (s *orderService) AdvanceStatus(ctx context.Context, identity domain.Identity, orderID uuid.UUID, next domain.OrderStatus) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.AdvanceStatus")
	span.SetAttributes(attribute.String("order.id", orderID.String()), attribute.String("order.next_status", string(next)))
	defer func() { endSpan(span, err) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := authorizeEdit(ctx, repos, identity); err != nil {
			return err
		}
		if !next.Valid() {
			return domain.Errorf(domain.KindValidation, "unknown order status %q", next)
		}

		var err error
		order, err = repos.Orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return domain.Errorf(domain.KindInvalidTransition, "cannot move order from %s to %s", order.Status, next)
		}

		if err := repos.Orders.UpdateStatus(ctx, order.ID, next); err != nil {
			return err
		}
		order.Status = next
		order.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(next)),
		zap.String("admin_id", identity.UserID.String()),
	)

	return order, nil
}
