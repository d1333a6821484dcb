package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/athenaeum/author-request-service/internal/domain"
)

// ErrProcedureUnavailable indicates the approval stored procedure is not
// installed in the target database. Callers fall back to the step-by-step
// approval path.
var ErrProcedureUnavailable = errors.New("approval procedure unavailable")

// RequestRepository handles author request persistence and lifecycle management.
// It covers the pending request's full graph (scalar fields plus claimed works)
// and the single pending -> approved/rejected transition.
type RequestRepository interface {
	// Create inserts a new author request together with its claimed works.
	// The request must carry a valid ID and UserID and have passed domain validation.
	// Returns domain.ErrConflict if the submitter already has an active
	// (pending or approved) request.
	Create(ctx context.Context, request *domain.AuthorRequest) error

	// Get retrieves an author request by its ID, including all claimed works.
	// Returns domain.ErrNotFound if no matching request exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.AuthorRequest, error)

	// GetLatestByUser retrieves the most recently created request for a user,
	// including all claimed works.
	// Returns domain.ErrNotFound if the user has never submitted a request.
	GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.AuthorRequest, error)

	// List retrieves author requests matching the filter criteria.
	// Claimed works are not loaded; use Get for the full graph.
	// Returns the matching requests and total count for pagination.
	List(ctx context.Context, filter RequestFilter) ([]*domain.AuthorRequest, int64, error)

	// UpdatePending updates the scalar fields of a request that is still pending
	// and owned by request.UserID. Claimed works are managed through
	// AddWorkItems and RemoveWorkItem.
	// Returns domain.ErrNotFound if the request does not exist, is not pending,
	// or belongs to a different user.
	UpdatePending(ctx context.Context, request *domain.AuthorRequest) error

	// DeletePending removes a pending request owned by userID together with its
	// claimed works and detaches its files.
	// Returns domain.ErrNotFound if the request does not exist, is not pending,
	// or belongs to a different user.
	DeletePending(ctx context.Context, id, userID uuid.UUID) error

	// AddWorkItems appends claimed works to an existing pending request.
	// Returns domain.ErrNotFound if the request does not exist or is not pending.
	AddWorkItems(ctx context.Context, requestID uuid.UUID, items WorkItems) error

	// RemoveWorkItem deletes a single claimed work from a pending request.
	// Returns domain.ErrNotFound if the item does not exist on that request.
	RemoveWorkItem(ctx context.Context, requestID uuid.UUID, kind domain.WorkItemKind, itemID uuid.UUID) error

	// MarkReviewed performs the filtered pending -> terminal status transition:
	//
	//	UPDATE ... WHERE id = $1 AND status = 'pending'
	//
	// Exactly one concurrent reviewer can win this update; every other caller
	// receives domain.ErrNotFound, which also covers requests that never existed.
	MarkReviewed(ctx context.Context, id uuid.UUID, status domain.RequestStatus, adminNotes string, reviewedBy uuid.UUID) error

	// HasActiveRequest reports whether the user currently has a pending or
	// approved request. Used to refuse duplicate submissions.
	HasActiveRequest(ctx context.Context, userID uuid.UUID) (bool, error)

	// CallApprovalProcedure invokes the approve_author_request stored procedure,
	// which performs the entire approval atomically inside the database.
	// Returns ErrProcedureUnavailable when the procedure is not installed,
	// and domain.ErrNotFound when the request is missing or not pending.
	CallApprovalProcedure(ctx context.Context, id, reviewedBy uuid.UUID, adminNotes string) (*domain.ApprovalResult, error)
}

// WorkItems bundles claimed works for batch insertion against a request.
type WorkItems struct {
	Articles     []domain.RequestedArticle
	Journals     []domain.RequestedJournal
	Books        []domain.RequestedBook
	Institutions []domain.RequestedInstitution
}

// IsEmpty reports whether the bundle carries no items.
func (w WorkItems) IsEmpty() bool {
	return len(w.Articles) == 0 && len(w.Journals) == 0 && len(w.Books) == 0 && len(w.Institutions) == 0
}

// RequestFilter specifies criteria for listing author requests.
type RequestFilter struct {
	// Status filters by one or more request statuses (optional).
	// When multiple statuses are provided, requests matching any status are returned.
	Status []domain.RequestStatus

	// UserID filters to requests submitted by a single user (optional).
	UserID *uuid.UUID

	// Search performs a case-insensitive substring match against the
	// requester's first name, last name, and email (optional).
	Search string

	// SortBy selects the sort column: created_at, updated_at, status,
	// or last_name. Defaults to created_at.
	SortBy string

	// SortOrder is asc or desc. Defaults to desc.
	SortOrder string

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// sortColumns whitelists the columns RequestFilter.SortBy may reference.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
	"last_name":  "last_name",
}

// Validate checks the filter values and sets defaults.
// Returns domain.ErrInvalidInput for unknown statuses or sort fields.
func (f *RequestFilter) Validate() error {
	for _, s := range f.Status {
		if !domain.IsValidRequestStatus(s) {
			return domain.NewValidationError("status", "unknown request status: "+string(s))
		}
	}

	if f.SortBy == "" {
		f.SortBy = "created_at"
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		return domain.NewValidationError("sort_by", "unknown sort field: "+f.SortBy)
	}

	switch f.SortOrder {
	case "":
		f.SortOrder = "desc"
	case "asc", "desc":
	default:
		return domain.NewValidationError("sort_order", "sort order must be asc or desc")
	}

	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
