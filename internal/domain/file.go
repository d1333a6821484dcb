package domain

import (
	"time"

	"github.com/google/uuid"
)

// FileOwnerKind identifies the entity type a file is attached to.
// These values must match the database enum file_owner_kind.
type FileOwnerKind string

const (
	FileOwnerAuthorRequest FileOwnerKind = "author_request"
	FileOwnerArticle       FileOwnerKind = "article"
	FileOwnerJournal       FileOwnerKind = "journal"
	FileOwnerBook          FileOwnerKind = "book"
)

// FileOwner is the typed polymorphic key by which an uploaded file is
// associated with exactly one owning entity at a time.
type FileOwner struct {
	Kind FileOwnerKind
	ID   uuid.UUID
}

// FileRef is a document attachment. Files are uploaded against an author
// request and retargeted to materialized entities during approval; the
// retarget is last-write-wins with no lock.
type FileRef struct {
	ID         uuid.UUID
	FileName   string
	Version    int
	UploadedBy uuid.UUID
	Owner      FileOwner
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
