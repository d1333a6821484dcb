// Package review implements the author request workflow: submission and
// maintenance of pending requests, the admin approve/reject paths, and the
// authorization guard in front of both.
package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/athenaeum/author-request-service/internal/domain"
	"github.com/athenaeum/author-request-service/internal/notification"
	"github.com/athenaeum/author-request-service/internal/observability"
	"github.com/athenaeum/author-request-service/internal/repository"
)

// SubmissionService manages the applicant-facing side of the workflow:
// creating, reading, editing, and withdrawing pending requests plus their
// claimed works and file attachments.
type SubmissionService struct {
	requests repository.RequestRepository
	users    repository.UserRepository
	files    repository.FileRepository
	notifier notification.Notifier
	metrics  *observability.Metrics
	logger   zerolog.Logger

	// adminRequestURL is the admin console deep link included in
	// new-submission broadcasts.
	adminRequestURL string
}

// NewSubmissionService creates a submission service.
func NewSubmissionService(
	requests repository.RequestRepository,
	users repository.UserRepository,
	files repository.FileRepository,
	notifier notification.Notifier,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	adminRequestURL string,
) *SubmissionService {
	return &SubmissionService{
		requests:        requests,
		users:           users,
		files:           files,
		notifier:        notifier,
		metrics:         metrics,
		logger:          logger.With().Str("component", "submission_service").Logger(),
		adminRequestURL: adminRequestURL,
	}
}

// Submit creates a pending author request for the acting user. Files
// uploaded ahead of the submission are retargeted to the new request by ID.
// A user that already holds the author or admin role, or already has a
// pending or approved request, is refused with domain.ErrConflict.
func (s *SubmissionService) Submit(ctx context.Context, actor Actor, request *domain.AuthorRequest, fileIDs []uuid.UUID) (*domain.AuthorRequest, error) {
	if request == nil {
		return nil, domain.NewValidationError("request", "request cannot be nil")
	}

	user, err := s.users.Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleUser {
		return nil, domain.NewConflictError("author request", "user already holds the "+string(user.Role)+" role")
	}

	// Submissions are always for the acting user.
	request.UserID = actor.ID
	if request.Email == "" {
		request.Email = user.Email
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	active, err := s.requests.HasActiveRequest(ctx, actor.ID)
	if err != nil {
		return nil, domain.NewDependencyError(stepDuplicateCheck, err)
	}
	if active {
		return nil, domain.NewConflictError("author request", "user already has an active request")
	}

	now := time.Now().UTC()
	request.ID = uuid.New()
	request.Status = domain.RequestStatusPending
	request.AdminNotes = ""
	request.ReviewedBy = nil
	request.CreatedAt = now
	request.UpdatedAt = now

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	if len(fileIDs) > 0 {
		moved, err := s.files.SetOwner(ctx, fileIDs, domain.FileOwner{
			Kind: domain.FileOwnerAuthorRequest,
			ID:   request.ID,
		})
		if err != nil {
			return nil, domain.NewDependencyError(stepFileLink, err)
		}
		s.logger.Info().
			Str("request_id", request.ID.String()).
			Int64("files_linked", moved).
			Msg("pre-uploaded files linked to request")
	}

	s.metrics.RequestsSubmitted.Inc()
	s.logger.Info().
		Str("request_id", request.ID.String()).
		Str("user_id", request.UserID.String()).
		Msg("author request submitted")

	s.broadcastSubmission(ctx, request)

	return request, nil
}

// broadcastSubmission notifies admins about a new submission. Best-effort:
// failures are logged and counted, never returned.
func (s *SubmissionService) broadcastSubmission(ctx context.Context, request *domain.AuthorRequest) {
	adminEmails, err := s.users.ListAdminEmails(ctx)
	if err != nil {
		s.metrics.NotificationFailures.WithLabelValues(notification.EventRequestSubmitted).Inc()
		s.logger.Warn().Err(err).
			Str("request_id", request.ID.String()).
			Msg("failed to resolve admin recipients")
		return
	}

	reviewURL := s.adminRequestURL
	if reviewURL != "" {
		reviewURL = strings.TrimSuffix(reviewURL, "/") + "/" + request.ID.String()
	}

	event := notification.RequestSubmittedEvent{
		RequestID:      request.ID,
		ApplicantName:  request.FirstName + " " + request.LastName,
		ApplicantEmail: request.Email,
		AdminEmails:    adminEmails,
		ReviewURL:      reviewURL,
	}

	if err := s.notifier.RequestSubmitted(ctx, event); err != nil {
		s.metrics.NotificationFailures.WithLabelValues(notification.EventRequestSubmitted).Inc()
		s.logger.Warn().Err(err).
			Str("request_id", request.ID.String()).
			Msg("failed to broadcast submission")
		return
	}

	s.metrics.NotificationsSent.WithLabelValues(notification.EventRequestSubmitted).Inc()
}

// Get retrieves a request with its claimed works. The owner and admins may
// read it; everyone else receives domain.ErrForbidden.
func (s *SubmissionService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*domain.AuthorRequest, error) {
	request, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnerOrAdmin(actor, request.UserID); err != nil {
		return nil, err
	}
	return request, nil
}

// Mine retrieves the acting user's most recent request.
func (s *SubmissionService) Mine(ctx context.Context, actor Actor) (*domain.AuthorRequest, error) {
	return s.requests.GetLatestByUser(ctx, actor.ID)
}

// List retrieves requests matching the filter. Admin only.
func (s *SubmissionService) List(ctx context.Context, actor Actor, filter repository.RequestFilter) ([]*domain.AuthorRequest, int64, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.requests.List(ctx, filter)
}

// UpdateMine updates the scalar fields of the actor's pending request.
func (s *SubmissionService) UpdateMine(ctx context.Context, actor Actor, request *domain.AuthorRequest) (*domain.AuthorRequest, error) {
	if request == nil {
		return nil, domain.NewValidationError("request", "request cannot be nil")
	}
	request.UserID = actor.ID
	if err := request.Validate(); err != nil {
		return nil, err
	}

	if err := s.requests.UpdatePending(ctx, request); err != nil {
		return nil, err
	}

	return s.requests.Get(ctx, request.ID)
}

// DeleteMine withdraws the actor's pending request.
func (s *SubmissionService) DeleteMine(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.requests.DeletePending(ctx, id, actor.ID); err != nil {
		return err
	}

	s.logger.Info().
		Str("request_id", id.String()).
		Str("user_id", actor.ID.String()).
		Msg("author request withdrawn")
	return nil
}

// AddWorkItems appends claimed works to a pending request the actor may edit.
func (s *SubmissionService) AddWorkItems(ctx context.Context, actor Actor, requestID uuid.UUID, items repository.WorkItems) (*domain.AuthorRequest, error) {
	request, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnerOrAdmin(actor, request.UserID); err != nil {
		return nil, err
	}

	if err := s.requests.AddWorkItems(ctx, requestID, items); err != nil {
		return nil, err
	}

	return s.requests.Get(ctx, requestID)
}

// RemoveWorkItem deletes a claimed work from a pending request the actor may edit.
func (s *SubmissionService) RemoveWorkItem(ctx context.Context, actor Actor, requestID uuid.UUID, kind domain.WorkItemKind, itemID uuid.UUID) error {
	request, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if err := RequireOwnerOrAdmin(actor, request.UserID); err != nil {
		return err
	}

	return s.requests.RemoveWorkItem(ctx, requestID, kind, itemID)
}

// AttachFile registers uploaded file metadata against a request the actor may edit.
// The binary itself lives in object storage keyed by the returned file ID.
func (s *SubmissionService) AttachFile(ctx context.Context, actor Actor, requestID uuid.UUID, fileName string) (*domain.FileRef, error) {
	if fileName == "" {
		return nil, domain.NewValidationError("file_name", "file name is required")
	}

	request, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnerOrAdmin(actor, request.UserID); err != nil {
		return nil, err
	}
	if request.Status != domain.RequestStatusPending {
		return nil, domain.NewNotFoundError("pending author request", requestID.String())
	}

	file := &domain.FileRef{
		FileName:   fileName,
		UploadedBy: actor.ID,
		Owner: domain.FileOwner{
			Kind: domain.FileOwnerAuthorRequest,
			ID:   requestID,
		},
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	return file, nil
}

// ListFiles returns the files currently attached to a request the actor may read.
func (s *SubmissionService) ListFiles(ctx context.Context, actor Actor, requestID uuid.UUID) ([]*domain.FileRef, error) {
	request, err := s.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnerOrAdmin(actor, request.UserID); err != nil {
		return nil, err
	}

	files, err := s.files.ListByOwner(ctx, domain.FileOwner{
		Kind: domain.FileOwnerAuthorRequest,
		ID:   requestID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list request files: %w", err)
	}
	return files, nil
}
