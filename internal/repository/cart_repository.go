package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clothes-shop/internal/database"
	"clothes-shop/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartNotFound     = domain.NewError(domain.KindNotFound, "cart not found")
	ErrCartLineNotFound = domain.NewError(domain.KindNotFound, "product is not in the cart")
	ErrCartLineExists   = domain.NewError(domain.KindConflict, "product is already in the cart")
)

// CartRepository defines the interface for cart and cart line data access
type CartRepository interface {
	// Ensure creates the user's cart if it does not exist yet.
	Ensure(ctx context.Context, userID uuid.UUID) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	// FindByUserIDForUpdate reads the cart and locks its row so that cart
	// mutations of one user are applied one at a time.
	FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	UpdateTotals(ctx context.Context, cart *domain.Cart) error

	ListLines(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error)
	FindLine(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartLine, error)
	CreateLine(ctx context.Context, line *domain.CartLine) error
	UpdateLine(ctx context.Context, line *domain.CartLine) error
	DeleteLine(ctx context.Context, cartID, productID uuid.UUID) error
	DeleteLines(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) (int64, error)
}

type cartRepository struct {
	db DBTX
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db DBTX) CartRepository {
	return &cartRepository{db: db}
}

// Ensure inserts an empty cart for userID unless one exists
func (r *cartRepository) Ensure(ctx context.Context, userID uuid.UUID) error {
	query := `
		INSERT INTO carts (id, user_id, quantity, total_value, created_at, updated_at)
		VALUES ($1, $2, 0, 0, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, uuid.New(), userID, time.Now())
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}

	return nil
}

// FindByUserID retrieves a user's cart without its lines
func (r *cartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.findByUser(ctx, userID, "")
}

// FindByUserIDForUpdate retrieves a user's cart and locks its row
func (r *cartRepository) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return r.findByUser(ctx, userID, "FOR UPDATE")
}

func (r *cartRepository) findByUser(ctx context.Context, userID uuid.UUID, lock string) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, quantity, total_value, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	` + lock

	cart := &domain.Cart{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.Quantity,
		&cart.TotalValue,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}

	return cart, nil
}

// UpdateTotals persists the derived quantity and total value of a cart
func (r *cartRepository) UpdateTotals(ctx context.Context, cart *domain.Cart) error {
	query := `
		UPDATE carts
		SET quantity = $2, total_value = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query, cart.ID, cart.Quantity, cart.TotalValue).Scan(&cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartNotFound
		}
		return fmt.Errorf("failed to update cart totals: %w", err)
	}

	return nil
}

// ListLines returns the lines of a cart joined with the live product name and
// price, oldest first
func (r *cartRepository) ListLines(ctx context.Context, cartID uuid.UUID) ([]domain.CartLine, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.price,
		       ci.quantity, ci.price, ci.created_at, ci.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, *line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// FindLine returns the line of cartID holding productID
func (r *cartRepository) FindLine(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartLine, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.price,
		       ci.quantity, ci.price, ci.created_at, ci.updated_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1 AND ci.product_id = $2
	`

	line, err := scanCartLine(r.db.QueryRowContext(ctx, query, cartID, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartLineNotFound
		}
		return nil, fmt.Errorf("failed to find cart line: %w", err)
	}

	return line, nil
}

func scanCartLine(row rowScanner) (*domain.CartLine, error) {
	line := &domain.CartLine{}
	err := row.Scan(
		&line.ID,
		&line.CartID,
		&line.ProductID,
		&line.ProductName,
		&line.UnitPrice,
		&line.Quantity,
		&line.Price,
		&line.CreatedAt,
		&line.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return line, nil
}

// CreateLine inserts a new cart line
func (r *cartRepository) CreateLine(ctx context.Context, line *domain.CartLine) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		line.ID,
		line.CartID,
		line.ProductID,
		line.Quantity,
		line.Price,
		line.CreatedAt,
		line.UpdatedAt,
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "uq_cart_items_cart_product"):
			return ErrCartLineExists
		case database.IsForeignKeyViolation(err):
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create cart line: %w", err)
	}

	return nil
}

// UpdateLine overwrites the quantity and price of a cart line
func (r *cartRepository) UpdateLine(ctx context.Context, line *domain.CartLine) error {
	query := `
		UPDATE cart_items
		SET quantity = $3, price = $4, updated_at = $5
		WHERE cart_id = $1 AND product_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, line.CartID, line.ProductID, line.Quantity, line.Price, line.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}

	return expectOneRow(result, ErrCartLineNotFound)
}

// DeleteLine removes the line of cartID holding productID
func (r *cartRepository) DeleteLine(ctx context.Context, cartID, productID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	result, err := r.db.ExecContext(ctx, query, cartID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}

	return expectOneRow(result, ErrCartLineNotFound)
}

// DeleteLines removes every line of cartID whose product is in productIDs and
// returns how many were removed
func (r *cartRepository) DeleteLines(ctx context.Context, cartID uuid.UUID, productIDs []uuid.UUID) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = id.String()
	}

	query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = ANY($2::uuid[])`

	result, err := r.db.ExecContext(ctx, query, cartID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cart lines: %w", err)
	}

	return result.RowsAffected()
}
