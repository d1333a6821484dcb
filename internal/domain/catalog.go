package domain

import (
	"time"

	"github.com/google/uuid"
)

// Author is the canonical author entity created (or upserted) on approval.
// UserID links back to the promoted account; there is at most one author row
// per user.
type Author struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	FirstName     string
	LastName      string
	AcademicTitle string
	Email         string
	InstitutionID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Institution is a canonical institution. Approval deduplicates institutions
// by exact (name, country, city) match instead of always inserting.
type Institution struct {
	ID        uuid.UUID
	Name      string
	Country   string
	City      string
	Website   string
	CreatedAt time.Time
}

// Article is a canonical article materialized from a claimed article on approval.
type Article struct {
	ID          uuid.UUID
	Title       string
	Abstract    string
	Language    string
	DOI         string
	PublishedAt *time.Time
	UpdatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Journal is a canonical journal materialized from a claimed journal on approval.
// Journals are not linked back to the author.
type Journal struct {
	ID          uuid.UUID
	Name        string
	ISSN        string
	Publisher   string
	Language    string
	PublishedAt *time.Time
	UpdatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Book is a canonical book materialized from a claimed book on approval.
type Book struct {
	ID          uuid.UUID
	Title       string
	ISBN        string
	Publisher   string
	Language    string
	PublishedAt *time.Time
	UpdatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApprovalResult is the outcome of a successful approval.
type ApprovalResult struct {
	RequestID uuid.UUID
	AuthorID  uuid.UUID
	UserID    uuid.UUID
}
