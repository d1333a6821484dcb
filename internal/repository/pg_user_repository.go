package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/athenaeum/author-request-service/internal/domain"
)

// Compile-time interface verification.
var _ UserRepository = (*PgUserRepository)(nil)

// PgUserRepository is a PostgreSQL implementation of UserRepository.
type PgUserRepository struct {
	db DBTX
}

// NewPgUserRepository creates a new PostgreSQL user repository.
func NewPgUserRepository(db DBTX) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, role, created_at, updated_at`

// Get retrieves a user by ID.
func (r *PgUserRepository) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	var user domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("user", id.String())
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetByEmail retrieves a user by email address.
func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	var user domain.User
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("user", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// PromoteToAuthor promotes a user from the user role to the author role.
// The role filter keeps the promotion idempotent and never demotes admins;
// when no row changes the user is fetched once to distinguish "already
// promoted" from "does not exist".
func (r *PgUserRepository) PromoteToAuthor(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET role = $2, updated_at = $3
		WHERE id = $1 AND role = $4`

	result, err := r.db.Exec(ctx, query, id, domain.RoleAuthor, time.Now().UTC(), domain.RoleUser)
	if err != nil {
		return fmt.Errorf("failed to promote user: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

// ListAdminEmails returns the email addresses of all admin users.
func (r *PgUserRepository) ListAdminEmails(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT email FROM users WHERE role = $1 ORDER BY email ASC`, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan admin email: %w", err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin emails: %w", err)
	}

	return emails, nil
}
