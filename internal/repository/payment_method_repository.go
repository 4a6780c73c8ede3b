package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clothes-shop/internal/domain"

	"github.com/google/uuid"
)

var ErrPaymentMethodNotFound = domain.NewError(domain.KindValidation, "unknown payment method")

// PaymentMethodRepository defines the interface for payment method data access
type PaymentMethodRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error)
	List(ctx context.Context) ([]*domain.PaymentMethod, error)
}

type paymentMethodRepository struct {
	db DBTX
}

// NewPaymentMethodRepository creates a new instance of PaymentMethodRepository
func NewPaymentMethodRepository(db DBTX) PaymentMethodRepository {
	return &paymentMethodRepository{db: db}
}

// FindByID returns the payment method with the given id. An unknown id is a
// client input error, not a missing resource.
func (r *paymentMethodRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	query := `SELECT id, name, created_at FROM payment_methods WHERE id = $1`

	method := &domain.PaymentMethod{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&method.ID, &method.Name, &method.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("failed to find payment method: %w", err)
	}

	return method, nil
}

// List returns all payment methods
func (r *paymentMethodRepository) List(ctx context.Context) ([]*domain.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM payment_methods ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	methods := []*domain.PaymentMethod{}
	for rows.Next() {
		method := &domain.PaymentMethod{}
		if err := rows.Scan(&method.ID, &method.Name, &method.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, method)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment methods: %w", err)
	}

	return methods, nil
}
