package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athenaeum/author-request-service/internal/domain"
	"github.com/athenaeum/author-request-service/internal/repository"
)

func newTestSubmissionService(requests *fakeRequestRepo, users *fakeUserRepo, files *fakeFileRepo, notifier *fakeNotifier) *SubmissionService {
	return NewSubmissionService(requests, users, files, notifier, testMetrics(), zerolog.Nop(),
		"https://admin.example.edu/author-requests")
}

func plainUser(id uuid.UUID) *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:        id,
		Email:     "grace@example.edu",
		FirstName: "Grace",
		LastName:  "Hopper",
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSubmissionService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending request and broadcasts to admins", func(t *testing.T) {
		actor := Actor{ID: uuid.New(), Role: domain.RoleUser}
		var created *domain.AuthorRequest

		requests := &fakeRequestRepo{
			createFn: func(_ context.Context, request *domain.AuthorRequest) error {
				created = request
				return nil
			},
		}
		users := &fakeUserRepo{
			getFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) {
				return plainUser(id), nil
			},
			adminEmailsFn: func(_ context.Context) ([]string, error) {
				return []string{"admin@example.edu"}, nil
			},
		}
		notifier := &fakeNotifier{}
		svc := newTestSubmissionService(requests, users, &fakeFileRepo{}, notifier)

		result, err := svc.Submit(ctx, actor, &domain.AuthorRequest{
			FirstName: "Grace",
			LastName:  "Hopper",
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, actor.ID, result.UserID)
		assert.Equal(t, domain.RequestStatusPending, result.Status)
		assert.NotEqual(t, uuid.Nil, result.ID)
		// Email defaults from the account when the form leaves it blank.
		assert.Equal(t, "grace@example.edu", result.Email)
		assert.Equal(t, created, result)

		require.Len(t, notifier.submitted, 1)
		assert.Equal(t, []string{"admin@example.edu"}, notifier.submitted[0].AdminEmails)
		assert.Contains(t, notifier.submitted[0].ReviewURL, result.ID.String())
	})

	t.Run("refuses users already holding the author role", func(t *testing.T) {
		actor := Actor{ID: uuid.New(), Role: domain.RoleUser}
		users := &fakeUserRepo{
			getFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) {
				u := plainUser(id)
				u.Role = domain.RoleAuthor
				return u, nil
			},
		}
		svc := newTestSubmissionService(&fakeRequestRepo{}, users, &fakeFileRepo{}, &fakeNotifier{})

		_, err := svc.Submit(ctx, actor, &domain.AuthorRequest{FirstName: "Grace", LastName: "Hopper"}, nil)
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	t.Run("refuses duplicate active requests", func(t *testing.T) {
		actor := Actor{ID: uuid.New(), Role: domain.RoleUser}
		requests := &fakeRequestRepo{
			hasActiveFn: func(_ context.Context, _ uuid.UUID) (bool, error) { return true, nil },
		}
		users := &fakeUserRepo{
			getFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) { return plainUser(id), nil },
		}
		svc := newTestSubmissionService(requests, users, &fakeFileRepo{}, &fakeNotifier{})

		_, err := svc.Submit(ctx, actor, &domain.AuthorRequest{FirstName: "Grace", LastName: "Hopper"}, nil)
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	t.Run("requires first and last name", func(t *testing.T) {
		actor := Actor{ID: uuid.New(), Role: domain.RoleUser}
		users := &fakeUserRepo{
			getFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) { return plainUser(id), nil },
		}
		svc := newTestSubmissionService(&fakeRequestRepo{}, users, &fakeFileRepo{}, &fakeNotifier{})

		_, err := svc.Submit(ctx, actor, &domain.AuthorRequest{FirstName: "  ", LastName: "Hopper"}, nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("broadcast failure does not fail the submission", func(t *testing.T) {
		actor := Actor{ID: uuid.New(), Role: domain.RoleUser}
		users := &fakeUserRepo{
			getFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) { return plainUser(id), nil },
		}
		notifier := &fakeNotifier{err: errors.New("broker down")}
		svc := newTestSubmissionService(&fakeRequestRepo{}, users, &fakeFileRepo{}, notifier)

		result, err := svc.Submit(ctx, actor, &domain.AuthorRequest{FirstName: "Grace", LastName: "Hopper"}, nil)
		require.NoError(t, err)
		assert.NotNil(t, result)
	})

	t.Run("retargets pre-uploaded files to the new request", func(t *testing.T) {
		actor := Actor{ID: uuid.New(), Role: domain.RoleUser}
		fileIDs := []uuid.UUID{uuid.New(), uuid.New()}

		var movedIDs []uuid.UUID
		var movedOwner domain.FileOwner
		files := &fakeFileRepo{
			setOwnerFn: func(_ context.Context, ids []uuid.UUID, owner domain.FileOwner) (int64, error) {
				movedIDs = ids
				movedOwner = owner
				return int64(len(ids)), nil
			},
		}
		users := &fakeUserRepo{
			getFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) { return plainUser(id), nil },
		}
		svc := newTestSubmissionService(&fakeRequestRepo{}, users, files, &fakeNotifier{})

		result, err := svc.Submit(ctx, actor, &domain.AuthorRequest{FirstName: "Grace", LastName: "Hopper"}, fileIDs)
		require.NoError(t, err)

		assert.Equal(t, fileIDs, movedIDs)
		assert.Equal(t, domain.FileOwnerAuthorRequest, movedOwner.Kind)
		assert.Equal(t, result.ID, movedOwner.ID)
	})

	t.Run("file retarget failure surfaces as a dependency error", func(t *testing.T) {
		actor := Actor{ID: uuid.New(), Role: domain.RoleUser}
		files := &fakeFileRepo{
			setOwnerFn: func(_ context.Context, _ []uuid.UUID, _ domain.FileOwner) (int64, error) {
				return 0, errors.New("connection reset")
			},
		}
		users := &fakeUserRepo{
			getFn: func(_ context.Context, id uuid.UUID) (*domain.User, error) { return plainUser(id), nil },
		}
		svc := newTestSubmissionService(&fakeRequestRepo{}, users, files, &fakeNotifier{})

		_, err := svc.Submit(ctx, actor, &domain.AuthorRequest{FirstName: "Grace", LastName: "Hopper"},
			[]uuid.UUID{uuid.New()})
		assert.True(t, errors.Is(err, domain.ErrDependency))
	})
}

func TestSubmissionService_Get(t *testing.T) {
	ctx := context.Background()
	request := pendingRequest()

	requests := &fakeRequestRepo{
		getFn: func(_ context.Context, _ uuid.UUID) (*domain.AuthorRequest, error) { return request, nil },
	}
	svc := newTestSubmissionService(requests, &fakeUserRepo{}, &fakeFileRepo{}, &fakeNotifier{})

	t.Run("owner can read", func(t *testing.T) {
		result, err := svc.Get(ctx, Actor{ID: request.UserID, Role: domain.RoleUser}, request.ID)
		require.NoError(t, err)
		assert.Equal(t, request.ID, result.ID)
	})

	t.Run("admin can read", func(t *testing.T) {
		_, err := svc.Get(ctx, adminActor(), request.ID)
		assert.NoError(t, err)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		_, err := svc.Get(ctx, Actor{ID: uuid.New(), Role: domain.RoleUser}, request.ID)
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})
}

func TestSubmissionService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("admin only", func(t *testing.T) {
		svc := newTestSubmissionService(&fakeRequestRepo{}, &fakeUserRepo{}, &fakeFileRepo{}, &fakeNotifier{})

		_, _, err := svc.List(ctx, Actor{ID: uuid.New(), Role: domain.RoleUser}, repository.RequestFilter{})
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})

	t.Run("passes the filter through", func(t *testing.T) {
		var gotFilter repository.RequestFilter
		requests := &fakeRequestRepo{
			listFn: func(_ context.Context, filter repository.RequestFilter) ([]*domain.AuthorRequest, int64, error) {
				gotFilter = filter
				return []*domain.AuthorRequest{pendingRequest()}, 1, nil
			},
		}
		svc := newTestSubmissionService(requests, &fakeUserRepo{}, &fakeFileRepo{}, &fakeNotifier{})

		results, total, err := svc.List(ctx, adminActor(), repository.RequestFilter{
			Status: []domain.RequestStatus{domain.RequestStatusPending},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, results, 1)
		assert.Equal(t, []domain.RequestStatus{domain.RequestStatusPending}, gotFilter.Status)
	})
}

func TestSubmissionService_AttachFile(t *testing.T) {
	ctx := context.Background()
	request := pendingRequest()

	requests := &fakeRequestRepo{
		getFn: func(_ context.Context, _ uuid.UUID) (*domain.AuthorRequest, error) { return request, nil },
	}

	t.Run("owner attaches a file to the pending request", func(t *testing.T) {
		svc := newTestSubmissionService(requests, &fakeUserRepo{}, &fakeFileRepo{}, &fakeNotifier{})
		actor := Actor{ID: request.UserID, Role: domain.RoleUser}

		file, err := svc.AttachFile(ctx, actor, request.ID, "cv.pdf")
		require.NoError(t, err)
		assert.Equal(t, domain.FileOwnerAuthorRequest, file.Owner.Kind)
		assert.Equal(t, request.ID, file.Owner.ID)
		assert.Equal(t, actor.ID, file.UploadedBy)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		svc := newTestSubmissionService(requests, &fakeUserRepo{}, &fakeFileRepo{}, &fakeNotifier{})

		_, err := svc.AttachFile(ctx, Actor{ID: uuid.New(), Role: domain.RoleUser}, request.ID, "cv.pdf")
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})

	t.Run("reviewed requests no longer accept files", func(t *testing.T) {
		reviewed := pendingRequest()
		reviewed.Status = domain.RequestStatusApproved
		reviewedRepo := &fakeRequestRepo{
			getFn: func(_ context.Context, _ uuid.UUID) (*domain.AuthorRequest, error) { return reviewed, nil },
		}
		svc := newTestSubmissionService(reviewedRepo, &fakeUserRepo{}, &fakeFileRepo{}, &fakeNotifier{})

		_, err := svc.AttachFile(ctx, Actor{ID: reviewed.UserID, Role: domain.RoleUser}, reviewed.ID, "cv.pdf")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestSubmissionService_WorkItems(t *testing.T) {
	ctx := context.Background()
	request := pendingRequest()

	t.Run("owner adds claimed works", func(t *testing.T) {
		var added repository.WorkItems
		requests := &fakeRequestRepo{
			getFn: func(_ context.Context, _ uuid.UUID) (*domain.AuthorRequest, error) { return request, nil },
			addWorkFn: func(_ context.Context, _ uuid.UUID, items repository.WorkItems) error {
				added = items
				return nil
			},
		}
		svc := newTestSubmissionService(requests, &fakeUserRepo{}, &fakeFileRepo{}, &fakeNotifier{})

		_, err := svc.AddWorkItems(ctx, Actor{ID: request.UserID, Role: domain.RoleUser}, request.ID, repository.WorkItems{
			Articles: []domain.RequestedArticle{{Title: "Compilers I"}},
		})
		require.NoError(t, err)
		assert.Len(t, added.Articles, 1)
	})

	t.Run("stranger cannot remove claimed works", func(t *testing.T) {
		requests := &fakeRequestRepo{
			getFn: func(_ context.Context, _ uuid.UUID) (*domain.AuthorRequest, error) { return request, nil },
		}
		svc := newTestSubmissionService(requests, &fakeUserRepo{}, &fakeFileRepo{}, &fakeNotifier{})

		err := svc.RemoveWorkItem(ctx, Actor{ID: uuid.New(), Role: domain.RoleUser}, request.ID, domain.WorkItemArticle, uuid.New())
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})
}
