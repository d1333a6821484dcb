package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/athenaeum/author-request-service/internal/domain"
)

// UserRepository handles platform account persistence and role promotion.
type UserRepository interface {
	// Get retrieves a user by ID.
	// Returns domain.ErrNotFound if no matching user exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	// Returns domain.ErrNotFound if no matching user exists.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// PromoteToAuthor promotes a user from the user role to the author role.
	// The promotion is idempotent: a user that already holds the author or
	// admin role is left unchanged and no error is returned.
	// Returns domain.ErrNotFound if the user does not exist.
	PromoteToAuthor(ctx context.Context, id uuid.UUID) error

	// ListAdminEmails returns the email addresses of all admin users, used
	// for broadcasting new-submission notifications.
	ListAdminEmails(ctx context.Context) ([]string, error)
}
