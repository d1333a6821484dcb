package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/athenaeum/author-request-service/internal/domain"
	"github.com/athenaeum/author-request-service/internal/notification"
	"github.com/athenaeum/author-request-service/internal/observability"
	"github.com/athenaeum/author-request-service/internal/repository"
)

// Workflow step names, used in logs, metrics, and DependencyError.Step.
const (
	stepDuplicateCheck  = "duplicate_check"
	stepFileLink        = "file_link"
	stepAuthorUpsert    = "author_upsert"
	stepRolePromotion   = "role_promotion"
	stepInstitutions    = "institutions"
	stepArticles        = "articles"
	stepJournals        = "journals"
	stepBooks           = "books"
	stepFinalize        = "finalize"
)

// Approval path labels for the path metric.
const (
	pathProcedure = "procedure"
	pathFallback  = "fallback"
)

// Engine executes the admin review paths. Approval first tries the
// approve_author_request stored procedure, which runs every step in one
// database transaction; when the procedure is missing or fails, the engine
// replays the same steps client-side. The client-side path has no shared
// transaction: steps one and two are upserts and therefore safe to repeat,
// and the final filtered status update is the commit point that at most one
// concurrent reviewer can win.
type Engine struct {
	requests repository.RequestRepository
	users    repository.UserRepository
	catalog  repository.CatalogRepository
	files    repository.FileRepository
	notifier notification.Notifier
	metrics  *observability.Metrics
	logger   zerolog.Logger

	// useProcedure gates the stored-procedure fast path.
	useProcedure bool

	// loginURL is included in approval notifications so promoted users can
	// sign back in with their new role.
	loginURL string
}

// NewEngine creates a review engine.
func NewEngine(
	requests repository.RequestRepository,
	users repository.UserRepository,
	catalog repository.CatalogRepository,
	files repository.FileRepository,
	notifier notification.Notifier,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	useProcedure bool,
	loginURL string,
) *Engine {
	return &Engine{
		requests:     requests,
		users:        users,
		catalog:      catalog,
		files:        files,
		notifier:     notifier,
		metrics:      metrics,
		logger:       logger.With().Str("component", "review_engine").Logger(),
		useProcedure: useProcedure,
		loginURL:     loginURL,
	}
}

// Approve transitions a pending request to approved and materializes its
// claims: canonical author, role promotion, deduplicated institutions,
// articles/journals/books, author-work links, and file retargeting.
// Admin only. A request that is missing or already reviewed yields
// domain.ErrNotFound.
func (e *Engine) Approve(ctx context.Context, actor Actor, requestID uuid.UUID, adminNotes string) (*domain.ApprovalResult, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		e.metrics.ApprovalDuration.Observe(time.Since(start).Seconds())
	}()

	logger := observability.WithReviewContext(e.logger, requestID.String(), actor.ID.String())

	request, err := e.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.RequestStatusPending {
		return nil, domain.NewNotFoundError("pending author request", requestID.String())
	}

	if e.useProcedure {
		result, err := e.requests.CallApprovalProcedure(ctx, requestID, actor.ID, adminNotes)
		if err == nil {
			e.metrics.ApprovalFastPath.WithLabelValues(pathProcedure).Inc()
			e.metrics.RequestsApproved.Inc()
			logger.Info().Msg("request approved via stored procedure")
			e.notifyApproved(ctx, request, result)
			return result, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}

		// Missing procedure or execution error: replay the steps client-side.
		e.metrics.ApprovalFastPath.WithLabelValues(pathFallback).Inc()
		logger.Warn().Err(err).Msg("stored procedure unavailable, falling back to stepwise approval")
	} else {
		e.metrics.ApprovalFastPath.WithLabelValues(pathFallback).Inc()
	}

	result, err := e.approveStepwise(ctx, logger, request, actor, adminNotes)
	if err != nil {
		return nil, err
	}

	e.metrics.RequestsApproved.Inc()
	logger.Info().Msg("request approved via stepwise fallback")
	e.notifyApproved(ctx, request, result)
	return result, nil
}

// approveStepwise replays the approval steps without a shared transaction.
// Steps before the finalize update are idempotent or additive, so a crashed
// or lost-race approval leaves no wrong terminal state, only re-runnable work.
func (e *Engine) approveStepwise(ctx context.Context, logger zerolog.Logger, request *domain.AuthorRequest, actor Actor, adminNotes string) (*domain.ApprovalResult, error) {
	author, err := e.catalog.UpsertAuthor(ctx, &domain.Author{
		UserID:        request.UserID,
		FirstName:     request.FirstName,
		LastName:      request.LastName,
		AcademicTitle: request.AcademicTitle,
		Email:         request.Email,
	})
	if err != nil {
		return nil, e.stepFailed(logger, stepAuthorUpsert, err)
	}

	if err := e.users.PromoteToAuthor(ctx, request.UserID); err != nil {
		return nil, e.stepFailed(logger, stepRolePromotion, err)
	}

	if err := e.materializeInstitutions(ctx, request, author); err != nil {
		return nil, e.stepFailed(logger, stepInstitutions, err)
	}

	if err := e.materializeArticles(ctx, request, author, actor); err != nil {
		return nil, e.stepFailed(logger, stepArticles, err)
	}

	if err := e.materializeJournals(ctx, request, actor); err != nil {
		return nil, e.stepFailed(logger, stepJournals, err)
	}

	if err := e.materializeBooks(ctx, request, author, actor); err != nil {
		return nil, e.stepFailed(logger, stepBooks, err)
	}

	// Commit point. A concurrent reviewer that already transitioned the row
	// surfaces here as ErrNotFound and this approval reports the lost race.
	if err := e.requests.MarkReviewed(ctx, request.ID, domain.RequestStatusApproved, adminNotes, actor.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, e.stepFailed(logger, stepFinalize, err)
	}

	return &domain.ApprovalResult{
		RequestID: request.ID,
		AuthorID:  author.ID,
		UserID:    request.UserID,
	}, nil
}

// stepFailed records a fallback step failure and wraps it for the caller.
func (e *Engine) stepFailed(logger zerolog.Logger, step string, err error) error {
	e.metrics.ApprovalStepFailures.WithLabelValues(step).Inc()
	logger.Error().Err(err).Str("step", step).Msg("approval step failed")
	return domain.NewDependencyError(step, err)
}

// materializeInstitutions deduplicates claimed institutions by exact
// (name, country, city) and points the author at the first one resolved.
func (e *Engine) materializeInstitutions(ctx context.Context, request *domain.AuthorRequest, author *domain.Author) error {
	var primary *uuid.UUID

	for _, claim := range request.Institutions {
		if strings.TrimSpace(claim.Name) == "" {
			continue
		}

		inst, err := e.catalog.FindInstitution(ctx, claim.Name, claim.Country, claim.City)
		if errors.Is(err, domain.ErrNotFound) {
			inst, err = e.catalog.CreateInstitution(ctx, &domain.Institution{
				Name:    claim.Name,
				Country: claim.Country,
				City:    claim.City,
				Website: claim.Website,
			})
			if errors.Is(err, domain.ErrConflict) {
				// Lost a create race; the winner's row is the canonical one.
				inst, err = e.catalog.FindInstitution(ctx, claim.Name, claim.Country, claim.City)
			}
			if err == nil {
				e.metrics.WorksMaterialized.WithLabelValues("institution").Inc()
			}
		}
		if err != nil {
			return err
		}

		if primary == nil {
			id := inst.ID
			primary = &id
		}
	}

	if primary != nil {
		if err := e.catalog.SetAuthorInstitution(ctx, author.ID, *primary); err != nil {
			return err
		}
	}

	return nil
}

// materializeArticles creates a canonical article per claim, links it to the
// author, and repoints the request's files at it. Each article repoints the
// same file set, so the last claimed article ends up owning the files.
func (e *Engine) materializeArticles(ctx context.Context, request *domain.AuthorRequest, author *domain.Author, actor Actor) error {
	var fileIDs []uuid.UUID
	if len(request.Articles) > 0 {
		files, err := e.files.ListByOwner(ctx, domain.FileOwner{
			Kind: domain.FileOwnerAuthorRequest,
			ID:   request.ID,
		})
		if err != nil {
			return err
		}
		for _, f := range files {
			fileIDs = append(fileIDs, f.ID)
		}
	}

	for _, claim := range request.Articles {
		article, err := e.catalog.CreateArticle(ctx, &domain.Article{
			Title:       claim.Title,
			Abstract:    claim.Abstract,
			Language:    claim.Language,
			DOI:         claim.DOI,
			PublishedAt: claim.PublishedAt,
			UpdatedBy:   actor.ID,
		})
		if err != nil {
			return err
		}
		e.metrics.WorksMaterialized.WithLabelValues("article").Inc()

		if err := e.catalog.LinkAuthorArticle(ctx, author.ID, article.ID); err != nil {
			return err
		}

		if len(fileIDs) > 0 {
			if _, err := e.files.SetOwner(ctx, fileIDs, domain.FileOwner{
				Kind: domain.FileOwnerArticle,
				ID:   article.ID,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}

// materializeJournals creates a canonical journal per claim. Journals carry
// no author link.
func (e *Engine) materializeJournals(ctx context.Context, request *domain.AuthorRequest, actor Actor) error {
	for _, claim := range request.Journals {
		_, err := e.catalog.CreateJournal(ctx, &domain.Journal{
			Name:        claim.Name,
			ISSN:        claim.ISSN,
			Publisher:   claim.Publisher,
			Language:    claim.Language,
			PublishedAt: claim.PublishedAt,
			UpdatedBy:   actor.ID,
		})
		if err != nil {
			return err
		}
		e.metrics.WorksMaterialized.WithLabelValues("journal").Inc()
	}
	return nil
}

// materializeBooks creates a canonical book per claim and links it to the author.
func (e *Engine) materializeBooks(ctx context.Context, request *domain.AuthorRequest, author *domain.Author, actor Actor) error {
	for _, claim := range request.Books {
		book, err := e.catalog.CreateBook(ctx, &domain.Book{
			Title:       claim.Title,
			ISBN:        claim.ISBN,
			Publisher:   claim.Publisher,
			Language:    claim.Language,
			PublishedAt: claim.PublishedAt,
			UpdatedBy:   actor.ID,
		})
		if err != nil {
			return err
		}
		e.metrics.WorksMaterialized.WithLabelValues("book").Inc()

		if err := e.catalog.LinkAuthorBook(ctx, author.ID, book.ID); err != nil {
			return err
		}
	}
	return nil
}

// notifyApproved delivers the approval notification. Best-effort.
func (e *Engine) notifyApproved(ctx context.Context, request *domain.AuthorRequest, result *domain.ApprovalResult) {
	event := notification.RequestApprovedEvent{
		RequestID: result.RequestID,
		UserID:    result.UserID,
		Email:     request.Email,
		FirstName: request.FirstName,
		LoginURL:  e.loginURL,
	}

	if err := e.notifier.RequestApproved(ctx, event); err != nil {
		e.metrics.NotificationFailures.WithLabelValues(notification.EventRequestApproved).Inc()
		e.logger.Warn().Err(err).
			Str("request_id", result.RequestID.String()).
			Msg("failed to deliver approval notification")
		return
	}
	e.metrics.NotificationsSent.WithLabelValues(notification.EventRequestApproved).Inc()
}

// Reject transitions a pending request to rejected with a required reason.
// Admin only. A request that is missing or already reviewed yields
// domain.ErrNotFound.
func (e *Engine) Reject(ctx context.Context, actor Actor, requestID uuid.UUID, reason string) (*domain.AuthorRequest, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, domain.NewValidationError("reason", "rejection reason is required")
	}

	logger := observability.WithReviewContext(e.logger, requestID.String(), actor.ID.String())

	request, err := e.requests.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.RequestStatusPending {
		return nil, domain.NewNotFoundError("pending author request", requestID.String())
	}

	if err := e.requests.MarkReviewed(ctx, requestID, domain.RequestStatusRejected, reason, actor.ID); err != nil {
		return nil, err
	}

	e.metrics.RequestsRejected.Inc()
	logger.Info().Msg("request rejected")

	e.notifyRejected(ctx, request, reason)

	request.Status = domain.RequestStatusRejected
	request.AdminNotes = reason
	reviewedBy := actor.ID
	request.ReviewedBy = &reviewedBy
	return request, nil
}

// notifyRejected delivers the rejection notification. Best-effort.
func (e *Engine) notifyRejected(ctx context.Context, request *domain.AuthorRequest, reason string) {
	event := notification.RequestRejectedEvent{
		RequestID: request.ID,
		UserID:    request.UserID,
		Email:     request.Email,
		FirstName: request.FirstName,
		Reason:    reason,
	}

	if err := e.notifier.RequestRejected(ctx, event); err != nil {
		e.metrics.NotificationFailures.WithLabelValues(notification.EventRequestRejected).Inc()
		e.logger.Warn().Err(err).
			Str("request_id", request.ID.String()).
			Msg("failed to deliver rejection notification")
		return
	}
	e.metrics.NotificationsSent.WithLabelValues(notification.EventRequestRejected).Inc()
}
