package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle stage of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusShipping},
	OrderStatusShipping:  {OrderStatusCompleted},
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusShipping,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are possible
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next directly follows s
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PurchaseSource tells the placement workflow where the items come from
type PurchaseSource string

const (
	SourceCart   PurchaseSource = "cart"
	SourceDetail PurchaseSource = "detail"
)

// Valid reports whether s is a recognized purchase source
func (s PurchaseSource) Valid() bool {
	return s == SourceCart || s == SourceDetail
}

// Recipient is the delivery contact of an order
type Recipient struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// WithDefaults fills empty recipient fields from the user's profile
func (r Recipient) WithDefaults(user *User) Recipient {
	if r.Name == "" {
		r.Name = user.DisplayName()
	}
	if r.Phone == "" {
		r.Phone = user.Phone
	}
	if r.Address == "" {
		r.Address = user.Address
	}
	return r
}

// Order represents a placed order. Total is the sum of the line totals at
// placement time and is never recomputed.
type Order struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	UserID          uuid.UUID   `json:"user_id" db:"user_id"`
	TrackingCode    string      `json:"tracking_code" db:"tracking_code"`
	Status          OrderStatus `json:"status" db:"status"`
	Total           int64       `json:"total" db:"total"`
	RecipientName   string      `json:"recipient_name" db:"recipient_name"`
	RecipientPhone  string      `json:"recipient_phone" db:"recipient_phone"`
	RecipientAddr   string      `json:"recipient_address" db:"recipient_address"`
	PaymentMethodID uuid.UUID   `json:"payment_method_id" db:"payment_method_id"`
	Lines           []OrderLine `json:"lines"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderLine is one purchased product. Total is frozen at placement.
type OrderLine struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderID     uuid.UUID `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	Quantity    int       `json:"quantity" db:"quantity"`
	Total       int64     `json:"total" db:"total"`
	Rating      *int      `json:"rating,omitempty" db:"rating"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// OrderTotal sums the frozen totals of lines
func OrderTotal(lines []OrderLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.Total
	}
	return total
}

// Rating bounds
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is an accepted rating value
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
