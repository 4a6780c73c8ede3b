package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminSettings is the persisted configuration record consulted by the edit
// policy. There is exactly one row.
type AdminSettings struct {
	EditLocked bool       `json:"edit_locked" db:"edit_locked"`
	UpdatedBy  *uuid.UUID `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// EditPolicy decides whether a caller may change catalog and order records
type EditPolicy struct {
	Settings AdminSettings
}

// CanEdit reports whether the identity may edit. Admins may edit unless
// editing is locked, in which case only superusers may.
func (p EditPolicy) CanEdit(id Identity) bool {
	if !id.IsAdmin() {
		return false
	}
	if p.Settings.EditLocked {
		return id.Superuser
	}
	return true
}

// Authorize returns a typed error when the identity may not edit
func (p EditPolicy) Authorize(id Identity) error {
	if !id.Authenticated() {
		return NewError(KindUnauthenticated, "authentication required")
	}
	if !p.CanEdit(id) {
		if id.IsAdmin() {
			return NewError(KindForbidden, "editing is locked to superusers")
		}
		return NewError(KindForbidden, "insufficient permissions")
	}
	return nil
}

// AuthorizeDelete returns a typed error unless the identity is a superuser.
// Deleting catalog records is never delegated to regular admins.
func (p EditPolicy) AuthorizeDelete(id Identity) error {
	if !id.Authenticated() {
		return NewError(KindUnauthenticated, "authentication required")
	}
	if !id.IsAdmin() || !id.Superuser {
		return NewError(KindForbidden, "only superusers may delete records")
	}
	return nil
}
