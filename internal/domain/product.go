package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductStatus is derived from the stock level
type ProductStatus string

const (
	ProductStatusInStock    ProductStatus = "in_stock"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

// Product represents a product in the catalog. Price is in the smallest
// currency unit.
type Product struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Price       int64      `json:"price" db:"price"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty" db:"category_id"`
	ImageURL    string     `json:"image_url" db:"image_url"`
	Stock       int        `json:"stock" db:"stock"`
	Rating      *float64   `json:"rating,omitempty" db:"rating"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Status reports whether the product can currently be bought
func (p *Product) Status() ProductStatus {
	if p.Stock > 0 {
		return ProductStatusInStock
	}
	return ProductStatusOutOfStock
}

// Validate checks the catalog invariants of a product
func (p *Product) Validate() error {
	if p.Name == "" {
		return NewError(KindValidation, "product name is required")
	}
	if p.Price < 0 {
		return NewError(KindValidation, "product price must not be negative")
	}
	if p.Stock < 0 {
		return NewError(KindValidation, "product stock must not be negative")
	}
	return nil
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Payment method names accepted at checkout
const (
	PaymentMethodCOD   = "COD"
	PaymentMethodQRPay = "QRPay"
)

// PaymentMethod is a way of paying for an order
type PaymentMethod struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ValidPaymentMethodName reports whether name is a supported payment method
func ValidPaymentMethodName(name string) bool {
	return name == PaymentMethodCOD || name == PaymentMethodQRPay
}

// MeanRating returns the arithmetic mean of ratings, or nil when there are none
func MeanRating(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return &mean
}
