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
var _ FileRepository = (*PgFileRepository)(nil)

// PgFileRepository is a PostgreSQL implementation of FileRepository.
type PgFileRepository struct {
	db DBTX
}

// NewPgFileRepository creates a new PostgreSQL file repository.
func NewPgFileRepository(db DBTX) *PgFileRepository {
	return &PgFileRepository{db: db}
}

// Create registers uploaded file metadata against its initial owner.
func (r *PgFileRepository) Create(ctx context.Context, file *domain.FileRef) error {
	if file == nil {
		return domain.NewValidationError("file", "file cannot be nil")
	}
	if file.FileName == "" {
		return domain.NewValidationError("file_name", "file name is required")
	}
	if file.Owner.ID == uuid.Nil {
		return domain.NewValidationError("owner_id", "owner ID is required")
	}

	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	if file.Version == 0 {
		file.Version = 1
	}
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now

	query := `
		INSERT INTO files (id, file_name, version, uploaded_by, owner_kind, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	_, err := r.db.Exec(ctx, query,
		file.ID, file.FileName, file.Version, file.UploadedBy,
		file.Owner.Kind, file.Owner.ID, now,
	)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewConflictError("file", file.ID.String())
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// Get retrieves file metadata by ID.
func (r *PgFileRepository) Get(ctx context.Context, id uuid.UUID) (*domain.FileRef, error) {
	query := `
		SELECT id, file_name, version, uploaded_by, owner_kind, owner_id, created_at, updated_at
		FROM files
		WHERE id = $1`

	var file domain.FileRef
	err := r.db.QueryRow(ctx, query, id).Scan(
		&file.ID, &file.FileName, &file.Version, &file.UploadedBy,
		&file.Owner.Kind, &file.Owner.ID, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("file", id.String())
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

// ListByOwner retrieves all files currently owned by an entity.
func (r *PgFileRepository) ListByOwner(ctx context.Context, owner domain.FileOwner) ([]*domain.FileRef, error) {
	query := `
		SELECT id, file_name, version, uploaded_by, owner_kind, owner_id, created_at, updated_at
		FROM files
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, owner.Kind, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*domain.FileRef
	for rows.Next() {
		var file domain.FileRef
		if err := rows.Scan(
			&file.ID, &file.FileName, &file.Version, &file.UploadedBy,
			&file.Owner.Kind, &file.Owner.ID, &file.CreatedAt, &file.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, &file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	return files, nil
}

// SetOwner repoints the given files at a new owner and bumps their version.
// No row lock is taken; the last caller to run owns the files.
func (r *PgFileRepository) SetOwner(ctx context.Context, ids []uuid.UUID, owner domain.FileOwner) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if owner.ID == uuid.Nil {
		return 0, domain.NewValidationError("owner_id", "owner ID is required")
	}

	query := `
		UPDATE files
		SET owner_kind = $1,
			owner_id = $2,
			version = version + 1,
			updated_at = $3
		WHERE id = ANY($4)`

	result, err := r.db.Exec(ctx, query, owner.Kind, owner.ID, time.Now().UTC(), ids)
	if err != nil {
		return 0, fmt.Errorf("failed to set file owner: %w", err)
	}

	return result.RowsAffected(), nil
}

// Delete removes file metadata by ID.
func (r *PgFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("file", id.String())
	}

	return nil
}
