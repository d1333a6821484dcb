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
var _ CatalogRepository = (*PgCatalogRepository)(nil)

// PgCatalogRepository is a PostgreSQL implementation of CatalogRepository.
type PgCatalogRepository struct {
	db DBTX
}

// NewPgCatalogRepository creates a new PostgreSQL catalog repository.
func NewPgCatalogRepository(db DBTX) *PgCatalogRepository {
	return &PgCatalogRepository{db: db}
}

// UpsertAuthor creates or refreshes the canonical author row for a user.
func (r *PgCatalogRepository) UpsertAuthor(ctx context.Context, author *domain.Author) (*domain.Author, error) {
	if author == nil {
		return nil, domain.NewValidationError("author", "author cannot be nil")
	}
	if author.UserID == uuid.Nil {
		return nil, domain.NewValidationError("user_id", "user ID is required")
	}

	if author.ID == uuid.Nil {
		author.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO authors (
			id, user_id, first_name, last_name, academic_title, email, institution_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $8
		)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			academic_title = COALESCE(EXCLUDED.academic_title, authors.academic_title),
			email = COALESCE(EXCLUDED.email, authors.email),
			institution_id = COALESCE(EXCLUDED.institution_id, authors.institution_id),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		author.ID, author.UserID, author.FirstName, author.LastName,
		nullString(author.AcademicTitle), nullString(author.Email), author.InstitutionID,
		now,
	).Scan(&author.ID, &author.CreatedAt, &author.UpdatedAt)

	if err != nil {
		if isPgForeignKeyViolation(err) {
			return nil, domain.NewNotFoundError("user", author.UserID.String())
		}
		return nil, fmt.Errorf("failed to upsert author: %w", err)
	}

	return author, nil
}

// SetAuthorInstitution points an author at a canonical institution.
func (r *PgCatalogRepository) SetAuthorInstitution(ctx context.Context, authorID, institutionID uuid.UUID) error {
	query := `
		UPDATE authors
		SET institution_id = $2, updated_at = $3
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, authorID, institutionID, time.Now().UTC())
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("institution", institutionID.String())
		}
		return fmt.Errorf("failed to set author institution: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("author", authorID.String())
	}

	return nil
}

// FindInstitution looks up an institution by exact (name, country, city).
// Country and city are matched NULL-safely so claims without location data
// still deduplicate against earlier claims without location data.
func (r *PgCatalogRepository) FindInstitution(ctx context.Context, name, country, city string) (*domain.Institution, error) {
	if name == "" {
		return nil, domain.NewValidationError("name", "institution name is required")
	}

	query := `
		SELECT id, name, country, city, website, created_at
		FROM institutions
		WHERE name = $1
		  AND country IS NOT DISTINCT FROM $2
		  AND city IS NOT DISTINCT FROM $3
		ORDER BY created_at ASC
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, name, nullString(country), nullString(city))

	var inst domain.Institution
	var instCountry, instCity, website *string
	err := row.Scan(&inst.ID, &inst.Name, &instCountry, &instCity, &website, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("institution", name)
		}
		return nil, fmt.Errorf("failed to find institution: %w", err)
	}

	inst.Country = deref(instCountry)
	inst.City = deref(instCity)
	inst.Website = deref(website)
	return &inst, nil
}

// CreateInstitution inserts a new canonical institution.
func (r *PgCatalogRepository) CreateInstitution(ctx context.Context, institution *domain.Institution) (*domain.Institution, error) {
	if institution == nil {
		return nil, domain.NewValidationError("institution", "institution cannot be nil")
	}
	if institution.Name == "" {
		return nil, domain.NewValidationError("name", "institution name is required")
	}

	if institution.ID == uuid.Nil {
		institution.ID = uuid.New()
	}

	query := `
		INSERT INTO institutions (id, name, country, city, website, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		institution.ID, institution.Name,
		nullString(institution.Country), nullString(institution.City), nullString(institution.Website),
		time.Now().UTC(),
	).Scan(&institution.CreatedAt)

	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.NewConflictError("institution", "institution already exists")
		}
		return nil, fmt.Errorf("failed to create institution: %w", err)
	}

	return institution, nil
}

// CreateArticle inserts a canonical article materialized from a claim.
func (r *PgCatalogRepository) CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	if article == nil {
		return nil, domain.NewValidationError("article", "article cannot be nil")
	}
	if article.Title == "" {
		return nil, domain.NewValidationError("title", "article title is required")
	}

	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}

	query := `
		INSERT INTO articles (id, title, abstract, language, doi, published_at, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		article.ID, article.Title, nullString(article.Abstract), nullString(article.Language),
		nullString(article.DOI), article.PublishedAt, article.UpdatedBy,
		time.Now().UTC(),
	).Scan(&article.CreatedAt, &article.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	return article, nil
}

// CreateJournal inserts a canonical journal materialized from a claim.
func (r *PgCatalogRepository) CreateJournal(ctx context.Context, journal *domain.Journal) (*domain.Journal, error) {
	if journal == nil {
		return nil, domain.NewValidationError("journal", "journal cannot be nil")
	}
	if journal.Name == "" {
		return nil, domain.NewValidationError("name", "journal name is required")
	}

	if journal.ID == uuid.Nil {
		journal.ID = uuid.New()
	}

	query := `
		INSERT INTO journals (id, name, issn, publisher, language, published_at, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		journal.ID, journal.Name, nullString(journal.ISSN), nullString(journal.Publisher),
		nullString(journal.Language), journal.PublishedAt, journal.UpdatedBy,
		time.Now().UTC(),
	).Scan(&journal.CreatedAt, &journal.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}

	return journal, nil
}

// CreateBook inserts a canonical book materialized from a claim.
func (r *PgCatalogRepository) CreateBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	if book == nil {
		return nil, domain.NewValidationError("book", "book cannot be nil")
	}
	if book.Title == "" {
		return nil, domain.NewValidationError("title", "book title is required")
	}

	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}

	query := `
		INSERT INTO books (id, title, isbn, publisher, language, published_at, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		book.ID, book.Title, nullString(book.ISBN), nullString(book.Publisher),
		nullString(book.Language), book.PublishedAt, book.UpdatedBy,
		time.Now().UTC(),
	).Scan(&book.CreatedAt, &book.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	return book, nil
}

// LinkAuthorArticle records the author-article association.
func (r *PgCatalogRepository) LinkAuthorArticle(ctx context.Context, authorID, articleID uuid.UUID) error {
	query := `
		INSERT INTO author_articles (author_id, article_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (author_id, article_id) DO NOTHING`

	_, err := r.db.Exec(ctx, query, authorID, articleID, time.Now().UTC())
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("author or article", authorID.String())
		}
		return fmt.Errorf("failed to link author to article: %w", err)
	}

	return nil
}

// LinkAuthorBook records the author-book association.
func (r *PgCatalogRepository) LinkAuthorBook(ctx context.Context, authorID, bookID uuid.UUID) error {
	query := `
		INSERT INTO author_books (author_id, book_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (author_id, book_id) DO NOTHING`

	_, err := r.db.Exec(ctx, query, authorID, bookID, time.Now().UTC())
	if err != nil {
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("author or book", authorID.String())
		}
		return fmt.Errorf("failed to link author to book: %w", err)
	}

	return nil
}

// GetAuthorByUser retrieves the canonical author row for a user.
func (r *PgCatalogRepository) GetAuthorByUser(ctx context.Context, userID uuid.UUID) (*domain.Author, error) {
	query := `
		SELECT id, user_id, first_name, last_name, academic_title, email, institution_id,
			created_at, updated_at
		FROM authors
		WHERE user_id = $1`

	var author domain.Author
	var academicTitle, email *string
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&author.ID, &author.UserID, &author.FirstName, &author.LastName,
		&academicTitle, &email, &author.InstitutionID,
		&author.CreatedAt, &author.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("author", "user "+userID.String())
		}
		return nil, fmt.Errorf("failed to get author by user: %w", err)
	}

	author.AcademicTitle = deref(academicTitle)
	author.Email = deref(email)
	return &author, nil
}
