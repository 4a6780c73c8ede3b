package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of an account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a customer or staff account
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Phone        string    `json:"phone" db:"phone"`
	Address      string    `json:"address" db:"address"`
	Role         Role      `json:"role" db:"role"`
	IsSuperuser  bool      `json:"is_superuser" db:"is_superuser"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName is the name used when an order has no explicit recipient
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// RefreshToken represents a long-lived token used to mint access tokens
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}

// Identity is the authenticated caller of a workflow
type Identity struct {
	UserID    uuid.UUID
	Role      Role
	Superuser bool
}

// Authenticated reports whether the identity carries a user
func (i Identity) Authenticated() bool {
	return i.UserID != uuid.Nil
}

// IsAdmin reports whether the identity has the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// RequireCustomer fails unless the identity is an authenticated customer.
// Staff accounts do not own carts and cannot place orders.
func (i Identity) RequireCustomer() error {
	if !i.Authenticated() {
		return NewError(KindUnauthenticated, "authentication required")
	}
	if i.Role != RoleUser {
		return NewError(KindForbidden, "only customer accounts may perform this action")
	}
	return nil
}

// RequireAdmin fails unless the identity is an authenticated admin
func (i Identity) RequireAdmin() error {
	if !i.Authenticated() {
		return NewError(KindUnauthenticated, "authentication required")
	}
	if !i.IsAdmin() {
		return NewError(KindForbidden, "insufficient permissions")
	}
	return nil
}
