package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/athenaeum/author-request-service/internal/domain"
	"github.com/athenaeum/author-request-service/internal/notification"
	"github.com/athenaeum/author-request-service/internal/observability"
	"github.com/athenaeum/author-request-service/internal/repository"
)

// testMetrics returns metrics bound to a fresh registry so tests never
// collide on duplicate registration.
func testMetrics() *observability.Metrics {
	return observability.NewMetricsWith("test", prometheus.NewRegistry())
}

// fakeRequestRepo is a function-field fake for repository.RequestRepository.
type fakeRequestRepo struct {
	createFn        func(ctx context.Context, request *domain.AuthorRequest) error
	getFn           func(ctx context.Context, id uuid.UUID) (*domain.AuthorRequest, error)
	latestFn        func(ctx context.Context, userID uuid.UUID) (*domain.AuthorRequest, error)
	listFn          func(ctx context.Context, filter repository.RequestFilter) ([]*domain.AuthorRequest, int64, error)
	updatePendingFn func(ctx context.Context, request *domain.AuthorRequest) error
	deletePendingFn func(ctx context.Context, id, userID uuid.UUID) error
	addWorkFn       func(ctx context.Context, requestID uuid.UUID, items repository.WorkItems) error
	removeWorkFn    func(ctx context.Context, requestID uuid.UUID, kind domain.WorkItemKind, itemID uuid.UUID) error
	markReviewedFn  func(ctx context.Context, id uuid.UUID, status domain.RequestStatus, adminNotes string, reviewedBy uuid.UUID) error
	hasActiveFn     func(ctx context.Context, userID uuid.UUID) (bool, error)
	callProcFn      func(ctx context.Context, id, reviewedBy uuid.UUID, adminNotes string) (*domain.ApprovalResult, error)
}

var _ repository.RequestRepository = (*fakeRequestRepo)(nil)

func (f *fakeRequestRepo) Create(ctx context.Context, request *domain.AuthorRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, request)
	}
	return nil
}

func (f *fakeRequestRepo) Get(ctx context.Context, id uuid.UUID) (*domain.AuthorRequest, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, domain.NewNotFoundError("author request", id.String())
}

func (f *fakeRequestRepo) GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.AuthorRequest, error) {
	if f.latestFn != nil {
		return f.latestFn(ctx, userID)
	}
	return nil, domain.NewNotFoundError("author request", "user "+userID.String())
}

func (f *fakeRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]*domain.AuthorRequest, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (f *fakeRequestRepo) UpdatePending(ctx context.Context, request *domain.AuthorRequest) error {
	if f.updatePendingFn != nil {
		return f.updatePendingFn(ctx, request)
	}
	return nil
}

func (f *fakeRequestRepo) DeletePending(ctx context.Context, id, userID uuid.UUID) error {
	if f.deletePendingFn != nil {
		return f.deletePendingFn(ctx, id, userID)
	}
	return nil
}

func (f *fakeRequestRepo) AddWorkItems(ctx context.Context, requestID uuid.UUID, items repository.WorkItems) error {
	if f.addWorkFn != nil {
		return f.addWorkFn(ctx, requestID, items)
	}
	return nil
}

func (f *fakeRequestRepo) RemoveWorkItem(ctx context.Context, requestID uuid.UUID, kind domain.WorkItemKind, itemID uuid.UUID) error {
	if f.removeWorkFn != nil {
		return f.removeWorkFn(ctx, requestID, kind, itemID)
	}
	return nil
}

func (f *fakeRequestRepo) MarkReviewed(ctx context.Context, id uuid.UUID, status domain.RequestStatus, adminNotes string, reviewedBy uuid.UUID) error {
	if f.markReviewedFn != nil {
		return f.markReviewedFn(ctx, id, status, adminNotes, reviewedBy)
	}
	return nil
}

func (f *fakeRequestRepo) HasActiveRequest(ctx context.Context, userID uuid.UUID) (bool, error) {
	if f.hasActiveFn != nil {
		return f.hasActiveFn(ctx, userID)
	}
	return false, nil
}

func (f *fakeRequestRepo) CallApprovalProcedure(ctx context.Context, id, reviewedBy uuid.UUID, adminNotes string) (*domain.ApprovalResult, error) {
	if f.callProcFn != nil {
		return f.callProcFn(ctx, id, reviewedBy, adminNotes)
	}
	return nil, repository.ErrProcedureUnavailable
}

// fakeUserRepo is a function-field fake for repository.UserRepository.
type fakeUserRepo struct {
	getFn         func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	getByEmailFn  func(ctx context.Context, email string) (*domain.User, error)
	promoteFn     func(ctx context.Context, id uuid.UUID) error
	adminEmailsFn func(ctx context.Context) ([]string, error)
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, domain.NewNotFoundError("user", id.String())
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return nil, domain.NewNotFoundError("user", email)
}

func (f *fakeUserRepo) PromoteToAuthor(ctx context.Context, id uuid.UUID) error {
	if f.promoteFn != nil {
		return f.promoteFn(ctx, id)
	}
	return nil
}

func (f *fakeUserRepo) ListAdminEmails(ctx context.Context) ([]string, error) {
	if f.adminEmailsFn != nil {
		return f.adminEmailsFn(ctx)
	}
	return nil, nil
}

// fakeCatalogRepo is a function-field fake for repository.CatalogRepository.
type fakeCatalogRepo struct {
	upsertAuthorFn    func(ctx context.Context, author *domain.Author) (*domain.Author, error)
	setInstitutionFn  func(ctx context.Context, authorID, institutionID uuid.UUID) error
	findInstitutionFn func(ctx context.Context, name, country, city string) (*domain.Institution, error)
	createInstFn      func(ctx context.Context, institution *domain.Institution) (*domain.Institution, error)
	createArticleFn   func(ctx context.Context, article *domain.Article) (*domain.Article, error)
	createJournalFn   func(ctx context.Context, journal *domain.Journal) (*domain.Journal, error)
	createBookFn      func(ctx context.Context, book *domain.Book) (*domain.Book, error)
	linkArticleFn     func(ctx context.Context, authorID, articleID uuid.UUID) error
	linkBookFn        func(ctx context.Context, authorID, bookID uuid.UUID) error
	authorByUserFn    func(ctx context.Context, userID uuid.UUID) (*domain.Author, error)
}

var _ repository.CatalogRepository = (*fakeCatalogRepo)(nil)

func (f *fakeCatalogRepo) UpsertAuthor(ctx context.Context, author *domain.Author) (*domain.Author, error) {
	if f.upsertAuthorFn != nil {
		return f.upsertAuthorFn(ctx, author)
	}
	if author.ID == uuid.Nil {
		author.ID = uuid.New()
	}
	return author, nil
}

func (f *fakeCatalogRepo) SetAuthorInstitution(ctx context.Context, authorID, institutionID uuid.UUID) error {
	if f.setInstitutionFn != nil {
		return f.setInstitutionFn(ctx, authorID, institutionID)
	}
	return nil
}

func (f *fakeCatalogRepo) FindInstitution(ctx context.Context, name, country, city string) (*domain.Institution, error) {
	if f.findInstitutionFn != nil {
		return f.findInstitutionFn(ctx, name, country, city)
	}
	return nil, domain.NewNotFoundError("institution", name)
}

func (f *fakeCatalogRepo) CreateInstitution(ctx context.Context, institution *domain.Institution) (*domain.Institution, error) {
	if f.createInstFn != nil {
		return f.createInstFn(ctx, institution)
	}
	if institution.ID == uuid.Nil {
		institution.ID = uuid.New()
	}
	return institution, nil
}

func (f *fakeCatalogRepo) CreateArticle(ctx context.Context, article *domain.Article) (*domain.Article, error) {
	if f.createArticleFn != nil {
		return f.createArticleFn(ctx, article)
	}
	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}
	return article, nil
}

func (f *fakeCatalogRepo) CreateJournal(ctx context.Context, journal *domain.Journal) (*domain.Journal, error) {
	if f.createJournalFn != nil {
		return f.createJournalFn(ctx, journal)
	}
	if journal.ID == uuid.Nil {
		journal.ID = uuid.New()
	}
	return journal, nil
}

func (f *fakeCatalogRepo) CreateBook(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	if f.createBookFn != nil {
		return f.createBookFn(ctx, book)
	}
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	return book, nil
}

func (f *fakeCatalogRepo) LinkAuthorArticle(ctx context.Context, authorID, articleID uuid.UUID) error {
	if f.linkArticleFn != nil {
		return f.linkArticleFn(ctx, authorID, articleID)
	}
	return nil
}

func (f *fakeCatalogRepo) LinkAuthorBook(ctx context.Context, authorID, bookID uuid.UUID) error {
	if f.linkBookFn != nil {
		return f.linkBookFn(ctx, authorID, bookID)
	}
	return nil
}

func (f *fakeCatalogRepo) GetAuthorByUser(ctx context.Context, userID uuid.UUID) (*domain.Author, error) {
	if f.authorByUserFn != nil {
		return f.authorByUserFn(ctx, userID)
	}
	return nil, domain.NewNotFoundError("author", "user "+userID.String())
}

// fakeFileRepo is a function-field fake for repository.FileRepository.
type fakeFileRepo struct {
	createFn      func(ctx context.Context, file *domain.FileRef) error
	getFn         func(ctx context.Context, id uuid.UUID) (*domain.FileRef, error)
	listByOwnerFn func(ctx context.Context, owner domain.FileOwner) ([]*domain.FileRef, error)
	setOwnerFn    func(ctx context.Context, ids []uuid.UUID, owner domain.FileOwner) (int64, error)
	deleteFn      func(ctx context.Context, id uuid.UUID) error
}

var _ repository.FileRepository = (*fakeFileRepo)(nil)

func (f *fakeFileRepo) Create(ctx context.Context, file *domain.FileRef) error {
	if f.createFn != nil {
		return f.createFn(ctx, file)
	}
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	return nil
}

func (f *fakeFileRepo) Get(ctx context.Context, id uuid.UUID) (*domain.FileRef, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, domain.NewNotFoundError("file", id.String())
}

func (f *fakeFileRepo) ListByOwner(ctx context.Context, owner domain.FileOwner) ([]*domain.FileRef, error) {
	if f.listByOwnerFn != nil {
		return f.listByOwnerFn(ctx, owner)
	}
	return nil, nil
}

func (f *fakeFileRepo) SetOwner(ctx context.Context, ids []uuid.UUID, owner domain.FileOwner) (int64, error) {
	if f.setOwnerFn != nil {
		return f.setOwnerFn(ctx, ids, owner)
	}
	return int64(len(ids)), nil
}

func (f *fakeFileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

// fakeNotifier records delivered events and can be forced to fail.
type fakeNotifier struct {
	submitted []notification.RequestSubmittedEvent
	approved  []notification.RequestApprovedEvent
	rejected  []notification.RequestRejectedEvent
	err       error
}

var _ notification.Notifier = (*fakeNotifier)(nil)

func (f *fakeNotifier) RequestSubmitted(_ context.Context, event notification.RequestSubmittedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, event)
	return nil
}

func (f *fakeNotifier) RequestApproved(_ context.Context, event notification.RequestApprovedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.approved = append(f.approved, event)
	return nil
}

func (f *fakeNotifier) RequestRejected(_ context.Context, event notification.RequestRejectedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.rejected = append(f.rejected, event)
	return nil
}

func (f *fakeNotifier) Close() error { return nil }
