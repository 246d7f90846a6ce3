package treasury

import (
	"github.com/google/uuid"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/domain/shared"
)

// Role is the caller's role as supplied by the authentication layer
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTreasurer Role = "treasurer"
	RoleChurch    Role = "church"
)

// IsValid reports whether the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTreasurer, RoleChurch:
		return true
	}
	return false
}

// SecurityContext is the caller's authenticated identity, role and church
// scope. It is an immutable value threaded explicitly into every data-access
// call; nothing in this package reads identity from ambient state.
//
// The context is trusted as given. Deciding who may call an operation is the
// authorization layer's job, not this core's.
type SecurityContext struct {
	userID   uuid.UUID
	role     Role
	churchID *uuid.UUID
}

// NewSecurityContext creates a SecurityContext for a caller scoped to a church.
// churchID may be nil for national-level callers (admin, treasurer).
func NewSecurityContext(userID uuid.UUID, role Role, churchID *uuid.UUID) (SecurityContext, error) {
	if userID == uuid.Nil {
		return SecurityContext{}, shared.NewValidationError("userId", "user ID is required")
	}
	if !role.IsValid() {
		return SecurityContext{}, shared.NewValidationError("role", "unknown role "+string(role))
	}
	sc := SecurityContext{userID: userID, role: role}
	if churchID != nil && *churchID != uuid.Nil {
		id := *churchID
		sc.churchID = &id
	}
	return sc, nil
}

// UserID returns the caller's user ID
func (sc SecurityContext) UserID() uuid.UUID {
	return sc.userID
}

// Role returns the caller's role
func (sc SecurityContext) Role() Role {
	return sc.role
}

// ChurchID returns the caller's church scope, or nil for national callers
func (sc SecurityContext) ChurchID() *uuid.UUID {
	if sc.churchID == nil {
		return nil
	}
	id := *sc.churchID
	return &id
}

// ChurchScope returns the church scope as a string, empty when unscoped.
// Used when registering the context as database session settings.
func (sc SecurityContext) ChurchScope() string {
	if sc.churchID == nil {
		return ""
	}
	return sc.churchID.String()
}
