package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clothes-shop/internal/domain"
	"clothes-shop/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CartItemResult describes a cart line after a mutation
type CartItemResult struct {
	ProductName       string `json:"product_name"`
	Quantity          int    `json:"quantity"`
	TotalProductTypes int    `json:"total_product_types"`
}

// CartService defines the interface for cart business logic
type CartService interface {
	GetCart(ctx context.Context, identity domain.Identity) (*domain.Cart, error)
	// AddItem puts quantity units of a product in the cart. A new line gets
	// exactly quantity; an existing line is increased by quantity. The stock
	// check compares against the requested quantity in both cases.
	AddItem(ctx context.Context, identity domain.Identity, productID uuid.UUID, quantity int) (*CartItemResult, error)
	// SetItemQuantity overwrites the quantity of an existing line. Zero
	// removes the line.
	SetItemQuantity(ctx context.Context, identity domain.Identity, productID uuid.UUID, quantity int) (*CartItemResult, error)
	RemoveItem(ctx context.Context, identity domain.Identity, productID uuid.UUID) (*domain.Cart, error)
}

type cartService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(store repository.Store, logger *zap.Logger) CartService {
	return &cartService{store: store, logger: logger}
}

// GetCart returns the caller's cart with its lines and live totals
func (s *cartService) GetCart(ctx context.Context, identity domain.Identity) (*domain.Cart, error) {
	if err := identity.RequireCustomer(); err != nil {
		return nil, err
	}

	var cart *domain.Cart
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Carts.Ensure(ctx, identity.UserID); err != nil {
			return err
		}

		var err error
		cart, err = repos.Carts.FindByUserID(ctx, identity.UserID)
		if err != nil {
			return err
		}

		lines, err := repos.Carts.ListLines(ctx, cart.ID)
		if err != nil {
			return err
		}
		domain.RecomputeCart(cart, lines)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, identity domain.Identity, productID uuid.UUID, quantity int) (result *CartItemResult, err error) {
	ctx, span := tracer.Start(ctx, "CartService.AddItem")
	span.SetAttributes(attribute.String("product.id", productID.String()), attribute.Int("quantity", quantity))
	defer func() { endSpan(span, err) }()

	if err := identity.RequireCustomer(); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, domain.NewError(domain.KindValidation, "quantity must be at least 1")
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		cart, err := lockCart(ctx, repos, identity.UserID)
		if err != nil {
			return err
		}

		product, err := repos.Products.FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if product.Stock < quantity {
			return insufficientStock(product)
		}

		now := time.Now()
		line, err := repos.Carts.FindLine(ctx, cart.ID, productID)
		switch {
		case errors.Is(err, repository.ErrCartLineNotFound):
			line = &domain.CartLine{
				ID:        uuid.New(),
				CartID:    cart.ID,
				ProductID: product.ID,
				Quantity:  quantity,
				Price:     domain.LinePrice(product.Price, quantity),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := repos.Carts.CreateLine(ctx, line); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			line.Quantity += quantity
			line.Price = domain.LinePrice(product.Price, line.Quantity)
			line.UpdatedAt = now
			if err := repos.Carts.UpdateLine(ctx, line); err != nil {
				return err
			}
		}

		if err := refreshCart(ctx, repos, cart); err != nil {
			return err
		}

		result = &CartItemResult{
			ProductName:       product.Name,
			Quantity:          line.Quantity,
			TotalProductTypes: cart.Quantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cart item added",
		zap.String("user_id", identity.UserID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("line_quantity", result.Quantity),
	)

	return result, nil
}

func (s *cartService) SetItemQuantity(ctx context.Context, identity domain.Identity, productID uuid.UUID, quantity int) (result *CartItemResult, err error) {
	ctx, span := tracer.Start(ctx, "CartService.SetItemQuantity")
	span.SetAttributes(attribute.String("product.id", productID.String()), attribute.Int("quantity", quantity))
	defer func() { endSpan(span, err) }()

	if err := identity.RequireCustomer(); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, domain.NewError(domain.KindValidation, "quantity must not be negative")
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		cart, err := lockCart(ctx, repos, identity.UserID)
		if err != nil {
			return err
		}

		line, err := repos.Carts.FindLine(ctx, cart.ID, productID)
		if err != nil {
			return err
		}

		if quantity == 0 {
			if err := repos.Carts.DeleteLine(ctx, cart.ID, productID); err != nil {
				return err
			}
		} else {
			line.Quantity = quantity
			line.Price = domain.LinePrice(line.UnitPrice, quantity)
			line.UpdatedAt = time.Now()
			if err := repos.Carts.UpdateLine(ctx, line); err != nil {
				return err
			}
		}

		if err := refreshCart(ctx, repos, cart); err != nil {
			return err
		}

		result = &CartItemResult{
			ProductName:       line.ProductName,
			Quantity:          quantity,
			TotalProductTypes: cart.Quantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *cartService) RemoveItem(ctx context.Context, identity domain.Identity, productID uuid.UUID) (cart *domain.Cart, err error) {
	ctx, span := tracer.Start(ctx, "CartService.RemoveItem")
	span.SetAttributes(attribute.String("product.id", productID.String()))
	defer func() { endSpan(span, err) }()

	if err := identity.RequireCustomer(); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		cart, err = lockCart(ctx, repos, identity.UserID)
		if err != nil {
			return err
		}

		if err := repos.Carts.DeleteLine(ctx, cart.ID, productID); err != nil {
			return err
		}

		return refreshCart(ctx, repos, cart)
	})
	if err != nil {
		return nil, err
	}

	return cart, nil
}

// lockCart returns the user's cart, creating it on first use, and holds its
// row lock for the rest of the transaction
func lockCart(ctx context.Context, repos repository.Repositories, userID uuid.UUID) (*domain.Cart, error) {
	if err := repos.Carts.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	cart, err := repos.Carts.FindByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}

	return cart, nil
}

// refreshCart re-derives the cart aggregates from its current lines and
// persists them with a single write
func refreshCart(ctx context.Context, repos repository.Repositories, cart *domain.Cart) error {
	lines, err := repos.Carts.ListLines(ctx, cart.ID)
	if err != nil {
		return err
	}

	domain.RecomputeCart(cart, lines)
	return repos.Carts.UpdateTotals(ctx, cart)
}

func insufficientStock(product *domain.Product) error {
	return domain.Errorf(domain.KindInsufficientStock,
		"insufficient stock for %s: %d available", product.Name, product.Stock)
}
