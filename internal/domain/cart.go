package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single shopping cart of a customer. Quantity counts distinct
// product lines and TotalValue sums their prices; both are derived.
type Cart struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	Quantity   int        `json:"quantity" db:"quantity"`
	TotalValue int64      `json:"total_value" db:"total_value"`
	Lines      []CartLine `json:"lines"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// CartLine is one product inside a cart. UnitPrice is the live product price
// and is not persisted on the line.
type CartLine struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CartID      uuid.UUID `json:"cart_id" db:"cart_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"-"`
	UnitPrice   int64     `json:"unit_price" db:"-"`
	Quantity    int       `json:"quantity" db:"quantity"`
	Price       int64     `json:"price" db:"price"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// LinePrice is the price of quantity units at unitPrice
func LinePrice(unitPrice int64, quantity int) int64 {
	return unitPrice * int64(quantity)
}

// CartTotals derives the cart aggregates from its lines
func CartTotals(lines []CartLine) (quantity int, total int64) {
	for _, line := range lines {
		total += LinePrice(line.UnitPrice, line.Quantity)
	}
	return len(lines), total
}

// RecomputeCart replaces the cart's lines and re-derives its aggregates
func RecomputeCart(cart *Cart, lines []CartLine) {
	cart.Lines = lines
	cart.Quantity, cart.TotalValue = CartTotals(lines)
}

// FindLine returns the line holding productID, if any
func (c *Cart) FindLine(productID uuid.UUID) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}
