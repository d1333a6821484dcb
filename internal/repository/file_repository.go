package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/athenaeum/author-request-service/internal/domain"
)

// FileRepository handles file attachment metadata. Binary content lives in
// object storage; this service only tracks the rows that say which entity
// currently owns each file.
type FileRepository interface {
	// Create registers uploaded file metadata against its initial owner.
	Create(ctx context.Context, file *domain.FileRef) error

	// Get retrieves file metadata by ID.
	// Returns domain.ErrNotFound if no matching file exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.FileRef, error)

	// ListByOwner retrieves all files currently owned by an entity,
	// ordered by creation time.
	ListByOwner(ctx context.Context, owner domain.FileOwner) ([]*domain.FileRef, error)

	// SetOwner repoints the given files at a new owner and bumps their
	// version. The update is last-write-wins: callers repointing the same
	// files in sequence leave them owned by whichever call ran last.
	// Returns the number of rows updated; missing IDs are skipped silently.
	SetOwner(ctx context.Context, ids []uuid.UUID, owner domain.FileOwner) (int64, error)

	// Delete removes file metadata by ID.
	// Returns domain.ErrNotFound if no matching file exists.
	Delete(ctx context.Context, id uuid.UUID) error
}
