// Package domain provides domain models and business logic for the Author Request Service.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents a platform user role.
// These values must match the database enum user_role.
type Role string

const (
	RoleUser   Role = "user"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAuthor, RoleAdmin:
		return true
	default:
		return false
	}
}

// RequestStatus represents the lifecycle states of an author request.
// These values must match the database enum request_status.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}

// IsValidRequestStatus reports whether s is a known request status.
func IsValidRequestStatus(s RequestStatus) bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	default:
		return false
	}
}

// User represents a platform account. Role is mutated from "user" to "author"
// as a side effect of request approval.
type User struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthorRequest represents one user's claim to author status, bundled with
// self-reported prior works. It is created in "pending" and transitions exactly
// once to "approved" or "rejected" by an admin.
type AuthorRequest struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	AcademicTitle    string
	FirstName        string
	LastName         string
	Email            string
	Bio              string
	ReasonForRequest string
	Status           RequestStatus
	AdminNotes       string
	ReviewedBy       *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Claimed works attached to the request. Persisted as child rows and kept
	// after review as an audit trail.
	Articles     []RequestedArticle
	Journals     []RequestedJournal
	Books        []RequestedBook
	Institutions []RequestedInstitution
}

// Validate checks the submission-time required fields.
func (r *AuthorRequest) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return NewValidationError("first_name", "first name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return NewValidationError("last_name", "last name is required")
	}
	return nil
}

// RequestedArticle is a claimed article attached to an author request.
// It is a free-form claim, not yet validated against canonical entities.
type RequestedArticle struct {
	ID          uuid.UUID
	RequestID   uuid.UUID
	Title       string
	Abstract    string
	Language    string
	DOI         string
	PublishedAt *time.Time
	CreatedAt   time.Time
}

// RequestedJournal is a claimed journal attached to an author request.
type RequestedJournal struct {
	ID          uuid.UUID
	RequestID   uuid.UUID
	Name        string
	ISSN        string
	Publisher   string
	Language    string
	PublishedAt *time.Time
	CreatedAt   time.Time
}

// RequestedBook is a claimed book attached to an author request.
type RequestedBook struct {
	ID          uuid.UUID
	RequestID   uuid.UUID
	Title       string
	ISBN        string
	Publisher   string
	Language    string
	PublishedAt *time.Time
	CreatedAt   time.Time
}

// RequestedInstitution is a claimed institutional affiliation attached to an
// author request. Institutions are deduplicated by (name, country, city)
// during approval.
type RequestedInstitution struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	Name      string
	Country   string
	City      string
	Website   string
	CreatedAt time.Time
}

// WorkItemKind identifies one of the claimed-work child collections of a request.
type WorkItemKind string

const (
	WorkItemArticle     WorkItemKind = "articles"
	WorkItemJournal     WorkItemKind = "journals"
	WorkItemBook        WorkItemKind = "books"
	WorkItemInstitution WorkItemKind = "institutions"
)

// IsValidWorkItemKind reports whether k names a claimed-work collection.
func IsValidWorkItemKind(k WorkItemKind) bool {
	switch k {
	case WorkItemArticle, WorkItemJournal, WorkItemBook, WorkItemInstitution:
		return true
	default:
		return false
	}
}
