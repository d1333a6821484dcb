package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/athenaeum/author-request-service/internal/domain"
)

// CatalogRepository handles the canonical entities materialized on approval:
// authors, institutions, articles, journals, and books, plus the author-work
// association tables.
type CatalogRepository interface {
	// UpsertAuthor creates the canonical author row for a user, or refreshes
	// the existing one. There is at most one author per user; re-approval of
	// the same user updates the profile fields in place.
	UpsertAuthor(ctx context.Context, author *domain.Author) (*domain.Author, error)

	// SetAuthorInstitution points an author at a canonical institution.
	// Returns domain.ErrNotFound if the author does not exist.
	SetAuthorInstitution(ctx context.Context, authorID, institutionID uuid.UUID) error

	// FindInstitution looks up an institution by exact (name, country, city).
	// Returns domain.ErrNotFound when no match exists.
	FindInstitution(ctx context.Context, name, country, city string) (*domain.Institution, error)

	// CreateInstitution inserts a new canonical institution.
	// Returns domain.ErrConflict if an institution with the same
	// (name, country, city) already exists.
	CreateInstitution(ctx context.Context, institution *domain.Institution) (*domain.Institution, error)

	// CreateArticle inserts a canonical article materialized from a claim.
	CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error)

	// CreateJournal inserts a canonical journal materialized from a claim.
	CreateJournal(ctx context.Context, journal *domain.Journal) (*domain.Journal, error)

	// CreateBook inserts a canonical book materialized from a claim.
	CreateBook(ctx context.Context, book *domain.Book) (*domain.Book, error)

	// LinkAuthorArticle records the author-article association.
	// The link is idempotent; relinking an existing pair is a no-op.
	LinkAuthorArticle(ctx context.Context, authorID, articleID uuid.UUID) error

	// LinkAuthorBook records the author-book association.
	// The link is idempotent; relinking an existing pair is a no-op.
	LinkAuthorBook(ctx context.Context, authorID, bookID uuid.UUID) error

	// GetAuthorByUser retrieves the canonical author row for a user.
	// Returns domain.ErrNotFound if the user was never materialized.
	GetAuthorByUser(ctx context.Context, userID uuid.UUID) (*domain.Author, error)
}
