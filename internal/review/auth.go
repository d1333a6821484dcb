package review

import (
	"github.com/google/uuid"

	"github.com/athenaeum/author-request-service/internal/domain"
)

// Actor is the authenticated principal performing an operation, extracted
// from the verified access token by the HTTP layer.
type Actor struct {
	ID   uuid.UUID
	Role domain.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// RequireAdmin allows only admins through.
// Returns domain.ErrForbidden otherwise.
func RequireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return domain.NewForbiddenError("admin role required")
	}
	return nil
}

// RequireOwnerOrAdmin allows the resource owner and admins through.
// Returns domain.ErrForbidden otherwise.
func RequireOwnerOrAdmin(actor Actor, ownerID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.ID != uuid.Nil && actor.ID == ownerID {
		return nil
	}
	return domain.NewForbiddenError("not the request owner")
}
