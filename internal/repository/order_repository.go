package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clothes-shop/internal/database"
	"clothes-shop/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = domain.NewError(domain.KindNotFound, "order not found")
	ErrOrderLineNotFound = domain.NewError(domain.KindNotFound, "product is not part of this order")
	ErrOrderLineExists   = domain.NewError(domain.KindConflict, "product already listed in this order")
	ErrAlreadyRated      = domain.NewError(domain.KindConflict, "product has already been rated for this order")

	// ErrTrackingCodeTaken signals that a generated tracking code collided
	// with an existing order; the caller should generate another one.
	ErrTrackingCodeTaken = errors.New("tracking code already in use")
)

// OrderRepository defines the interface for order and order line data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	CreateLine(ctx context.Context, line *domain.OrderLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// FindByIDForUpdate reads the order with its lines and locks the order row.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error

	FindLineForUpdate(ctx context.Context, orderID, productID uuid.UUID) (*domain.OrderLine, error)
	SetLineRating(ctx context.Context, lineID uuid.UUID, rating int) error
	ListProductRatings(ctx context.Context, productID uuid.UUID) ([]int, error)
}

type orderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `id, user_id, tracking_code, status, total, recipient_name, recipient_phone, recipient_address, payment_method_id, created_at, updated_at`

const orderLineColumns = `id, order_id, product_id, product_name, quantity, total, rating, created_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.TrackingCode,
		&order.Status,
		&order.Total,
		&order.RecipientName,
		&order.RecipientPhone,
		&order.RecipientAddr,
		&order.PaymentMethodID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func scanOrderLine(row rowScanner) (*domain.OrderLine, error) {
	line := &domain.OrderLine{}
	err := row.Scan(
		&line.ID,
		&line.OrderID,
		&line.ProductID,
		&line.ProductName,
		&line.Quantity,
		&line.Total,
		&line.Rating,
		&line.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Create inserts an order. A tracking code collision inserts nothing and
// returns ErrTrackingCodeTaken without aborting the transaction.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tracking_code) DO NOTHING
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.UserID,
		order.TrackingCode,
		order.Status,
		order.Total,
		order.RecipientName,
		order.RecipientPhone,
		order.RecipientAddr,
		order.PaymentMethodID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrPaymentMethodNotFound
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return expectOneRow(result, ErrTrackingCodeTaken)
}

// CreateLine inserts an order line
func (r *orderRepository) CreateLine(ctx context.Context, line *domain.OrderLine) error {
	query := `
		INSERT INTO order_items (` + orderLineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		line.ID,
		line.OrderID,
		line.ProductID,
		line.ProductName,
		line.Quantity,
		line.Total,
		line.Rating,
		line.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, "uq_order_items_order_product") {
			return ErrOrderLineExists
		}
		return fmt.Errorf("failed to create order line: %w", err)
	}

	return nil
}

// FindByID retrieves an order with its lines
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findByID(ctx, id, "")
}

// FindByIDForUpdate retrieves an order with its lines and locks the order row
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findByID(ctx, id, "FOR UPDATE")
}

func (r *orderRepository) findByID(ctx context.Context, id uuid.UUID, lock string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 ` + lock

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	lines, err := r.listLines(ctx, `WHERE order_id = $1`, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

// ListByUser returns a user's orders with their lines, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	byID := map[uuid.UUID]*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order.Lines = []domain.OrderLine{}
		orders = append(orders, order)
		byID[order.ID] = order
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.listLines(ctx, `WHERE order_id IN (SELECT id FROM orders WHERE user_id = $1)`, userID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if order, ok := byID[line.OrderID]; ok {
			order.Lines = append(order.Lines, line)
		}
	}

	return orders, nil
}

func (r *orderRepository) listLines(ctx context.Context, where string, arg interface{}) ([]domain.OrderLine, error) {
	query := `SELECT ` + orderLineColumns + ` FROM order_items ` + where + ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list order lines: %w", err)
	}
	defer rows.Close()

	lines := []domain.OrderLine{}
	for rows.Next() {
		line, err := scanOrderLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, *line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return lines, nil
}

// UpdateStatus sets the status of an order
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return expectOneRow(result, ErrOrderNotFound)
}

// FindLineForUpdate returns the line of orderID for productID and locks it
func (r *orderRepository) FindLineForUpdate(ctx context.Context, orderID, productID uuid.UUID) (*domain.OrderLine, error) {
	query := `
		SELECT ` + orderLineColumns + `
		FROM order_items
		WHERE order_id = $1 AND product_id = $2
		FOR UPDATE
	`

	line, err := scanOrderLine(r.db.QueryRowContext(ctx, query, orderID, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderLineNotFound
		}
		return nil, fmt.Errorf("failed to find order line: %w", err)
	}

	return line, nil
}

// SetLineRating stores a rating on a line that has none yet. A line that is
// already rated is left unchanged and ErrAlreadyRated is returned.
func (r *orderRepository) SetLineRating(ctx context.Context, lineID uuid.UUID, rating int) error {
	query := `UPDATE order_items SET rating = $2 WHERE id = $1 AND rating IS NULL`

	result, err := r.db.ExecContext(ctx, query, lineID, rating)
	if err != nil {
		return fmt.Errorf("failed to set order line rating: %w", err)
	}

	return expectOneRow(result, ErrAlreadyRated)
}

// ListProductRatings returns every rating given to productID across all orders
func (r *orderRepository) ListProductRatings(ctx context.Context, productID uuid.UUID) ([]int, error) {
	query := `SELECT rating FROM order_items WHERE product_id = $1 AND rating IS NOT NULL`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product ratings: %w", err)
	}
	defer rows.Close()

	ratings := []int{}
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}

	return ratings, nil
}
