package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/athenaeum/author-request-service/internal/domain"
)

// Compile-time interface verification.
var _ RequestRepository = (*PgRequestRepository)(nil)

// workItemTables maps claimed-work kinds to their child tables.
// This is a package-level variable to avoid re-allocating on every call.
var workItemTables = map[domain.WorkItemKind]string{
	domain.WorkItemArticle:     "requested_articles",
	domain.WorkItemJournal:     "requested_journals",
	domain.WorkItemBook:        "requested_books",
	domain.WorkItemInstitution: "requested_institutions",
}

// PgRequestRepository is a PostgreSQL implementation of RequestRepository.
type PgRequestRepository struct {
	db DBTX
}

// NewPgRequestRepository creates a new PostgreSQL author request repository.
func NewPgRequestRepository(db DBTX) *PgRequestRepository {
	return &PgRequestRepository{db: db}
}

// Create inserts a new author request together with its claimed works.
func (r *PgRequestRepository) Create(ctx context.Context, request *domain.AuthorRequest) error {
	if request == nil {
		return domain.NewValidationError("request", "request cannot be nil")
	}
	if request.ID == uuid.Nil {
		return domain.NewValidationError("id", "request ID is required")
	}
	if request.UserID == uuid.Nil {
		return domain.NewValidationError("user_id", "user ID is required")
	}

	query := `
		INSERT INTO author_requests (
			id, user_id, academic_title, first_name, last_name,
			email, bio, reason_for_request, status, admin_notes,
			reviewed_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13
		)`

	_, err := r.db.Exec(ctx, query,
		request.ID, request.UserID, nullString(request.AcademicTitle), request.FirstName, request.LastName,
		nullString(request.Email), nullString(request.Bio), nullString(request.ReasonForRequest), request.Status, nullString(request.AdminNotes),
		request.ReviewedBy, request.CreatedAt, request.UpdatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewConflictError("author request", "user already has an active request")
		}
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("user", request.UserID.String())
		}
		return fmt.Errorf("failed to create author request: %w", err)
	}

	items := WorkItems{
		Articles:     request.Articles,
		Journals:     request.Journals,
		Books:        request.Books,
		Institutions: request.Institutions,
	}
	if items.IsEmpty() {
		return nil
	}

	if err := r.insertWorkItems(ctx, request.ID, items); err != nil {
		return err
	}

	return nil
}

// insertWorkItems sends all claimed-work inserts in a single batch roundtrip.
func (r *PgRequestRepository) insertWorkItems(ctx context.Context, requestID uuid.UUID, items WorkItems) error {
	now := time.Now().UTC()
	batch := &pgx.Batch{}

	for i := range items.Articles {
		a := &items.Articles[i]
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.RequestID = requestID
		a.CreatedAt = now
		batch.Queue(`
			INSERT INTO requested_articles (id, request_id, title, abstract, language, doi, published_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, requestID, a.Title, nullString(a.Abstract), nullString(a.Language), nullString(a.DOI), a.PublishedAt, now,
		)
	}

	for i := range items.Journals {
		j := &items.Journals[i]
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		j.RequestID = requestID
		j.CreatedAt = now
		batch.Queue(`
			INSERT INTO requested_journals (id, request_id, name, issn, publisher, language, published_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			j.ID, requestID, j.Name, nullString(j.ISSN), nullString(j.Publisher), nullString(j.Language), j.PublishedAt, now,
		)
	}

	for i := range items.Books {
		b := &items.Books[i]
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.RequestID = requestID
		b.CreatedAt = now
		batch.Queue(`
			INSERT INTO requested_books (id, request_id, title, isbn, publisher, language, published_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			b.ID, requestID, b.Title, nullString(b.ISBN), nullString(b.Publisher), nullString(b.Language), b.PublishedAt, now,
		)
	}

	for i := range items.Institutions {
		inst := &items.Institutions[i]
		if inst.ID == uuid.Nil {
			inst.ID = uuid.New()
		}
		inst.RequestID = requestID
		inst.CreatedAt = now
		batch.Queue(`
			INSERT INTO requested_institutions (id, request_id, name, country, city, website, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			inst.ID, requestID, inst.Name, nullString(inst.Country), nullString(inst.City), nullString(inst.Website), now,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	total := len(items.Articles) + len(items.Journals) + len(items.Books) + len(items.Institutions)
	for i := 0; i < total; i++ {
		if _, err := br.Exec(); err != nil {
			if isPgForeignKeyViolation(err) {
				return domain.NewNotFoundError("author request", requestID.String())
			}
			return fmt.Errorf("failed to insert claimed work at index %d: %w", i, err)
		}
	}

	return nil
}

const requestColumns = `id, user_id, academic_title, first_name, last_name,
		email, bio, reason_for_request, status, admin_notes,
		reviewed_by, created_at, updated_at`

// Get retrieves an author request by its ID, including all claimed works.
func (r *PgRequestRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AuthorRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM author_requests
		WHERE id = $1`, requestColumns)

	row := r.db.QueryRow(ctx, query, id)
	request, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("author request", id.String())
		}
		return nil, fmt.Errorf("failed to get author request: %w", err)
	}

	if err := r.loadWorkItems(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

// GetLatestByUser retrieves the most recently created request for a user.
func (r *PgRequestRepository) GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.AuthorRequest, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM author_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, requestColumns)

	row := r.db.QueryRow(ctx, query, userID)
	request, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("author request", "user "+userID.String())
		}
		return nil, fmt.Errorf("failed to get latest author request: %w", err)
	}

	if err := r.loadWorkItems(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

// loadWorkItems fills the claimed-work slices of a request from its child tables.
func (r *PgRequestRepository) loadWorkItems(ctx context.Context, request *domain.AuthorRequest) error {
	if err := r.loadArticles(ctx, request); err != nil {
		return err
	}
	if err := r.loadJournals(ctx, request); err != nil {
		return err
	}
	if err := r.loadBooks(ctx, request); err != nil {
		return err
	}
	return r.loadInstitutions(ctx, request)
}

func (r *PgRequestRepository) loadArticles(ctx context.Context, request *domain.AuthorRequest) error {
	query := `
		SELECT id, request_id, title, abstract, language, doi, published_at, created_at
		FROM requested_articles
		WHERE request_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, request.ID)
	if err != nil {
		return fmt.Errorf("failed to load claimed articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.RequestedArticle
		var abstract, language, doi *string
		if err := rows.Scan(&a.ID, &a.RequestID, &a.Title, &abstract, &language, &doi, &a.PublishedAt, &a.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan claimed article: %w", err)
		}
		a.Abstract = deref(abstract)
		a.Language = deref(language)
		a.DOI = deref(doi)
		request.Articles = append(request.Articles, a)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating claimed articles: %w", err)
	}
	return nil
}

func (r *PgRequestRepository) loadJournals(ctx context.Context, request *domain.AuthorRequest) error {
	query := `
		SELECT id, request_id, name, issn, publisher, language, published_at, created_at
		FROM requested_journals
		WHERE request_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, request.ID)
	if err != nil {
		return fmt.Errorf("failed to load claimed journals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var j domain.RequestedJournal
		var issn, publisher, language *string
		if err := rows.Scan(&j.ID, &j.RequestID, &j.Name, &issn, &publisher, &language, &j.PublishedAt, &j.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan claimed journal: %w", err)
		}
		j.ISSN = deref(issn)
		j.Publisher = deref(publisher)
		j.Language = deref(language)
		request.Journals = append(request.Journals, j)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating claimed journals: %w", err)
	}
	return nil
}

func (r *PgRequestRepository) loadBooks(ctx context.Context, request *domain.AuthorRequest) error {
	query := `
		SELECT id, request_id, title, isbn, publisher, language, published_at, created_at
		FROM requested_books
		WHERE request_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, request.ID)
	if err != nil {
		return fmt.Errorf("failed to load claimed books: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b domain.RequestedBook
		var isbn, publisher, language *string
		if err := rows.Scan(&b.ID, &b.RequestID, &b.Title, &isbn, &publisher, &language, &b.PublishedAt, &b.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan claimed book: %w", err)
		}
		b.ISBN = deref(isbn)
		b.Publisher = deref(publisher)
		b.Language = deref(language)
		request.Books = append(request.Books, b)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating claimed books: %w", err)
	}
	return nil
}

func (r *PgRequestRepository) loadInstitutions(ctx context.Context, request *domain.AuthorRequest) error {
	query := `
		SELECT id, request_id, name, country, city, website, created_at
		FROM requested_institutions
		WHERE request_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, request.ID)
	if err != nil {
		return fmt.Errorf("failed to load claimed institutions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var inst domain.RequestedInstitution
		var country, city, website *string
		if err := rows.Scan(&inst.ID, &inst.RequestID, &inst.Name, &country, &city, &website, &inst.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan claimed institution: %w", err)
		}
		inst.Country = deref(country)
		inst.City = deref(city)
		inst.Website = deref(website)
		request.Institutions = append(request.Institutions, inst)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating claimed institutions: %w", err)
	}
	return nil
}

// List retrieves author requests matching the filter criteria.
func (r *PgRequestRepository) List(ctx context.Context, filter RequestFilter) ([]*domain.AuthorRequest, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	// Build dynamic WHERE clause
	var conditions []string
	var args []interface{}
	argIndex := 1

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, s)
			argIndex++
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total matching records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM author_requests %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count author requests: %w", err)
	}

	// Query with pagination. SortBy is validated against a whitelist in Validate.
	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM author_requests
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`,
		requestColumns, whereClause, sortColumns[filter.SortBy], strings.ToUpper(filter.SortOrder), argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list author requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*domain.AuthorRequest, 0, filter.Limit)
	for rows.Next() {
		request, err := scanRequestFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan author request: %w", err)
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating author requests: %w", err)
	}

	return requests, totalCount, nil
}

// UpdatePending updates the scalar fields of a pending request owned by request.UserID.
func (r *PgRequestRepository) UpdatePending(ctx context.Context, request *domain.AuthorRequest) error {
	if request == nil {
		return domain.NewValidationError("request", "request cannot be nil")
	}

	query := `
		UPDATE author_requests SET
			academic_title = $1,
			first_name = $2,
			last_name = $3,
			email = $4,
			bio = $5,
			reason_for_request = $6,
			updated_at = $7
		WHERE id = $8 AND user_id = $9 AND status = 'pending'`

	result, err := r.db.Exec(ctx, query,
		nullString(request.AcademicTitle),
		request.FirstName,
		request.LastName,
		nullString(request.Email),
		nullString(request.Bio),
		nullString(request.ReasonForRequest),
		time.Now().UTC(),
		request.ID, request.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update author request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("pending author request", request.ID.String())
	}

	return nil
}

// DeletePending removes a pending request owned by userID.
// Claimed works are removed by ON DELETE CASCADE; file metadata rows are
// removed explicitly afterwards.
func (r *PgRequestRepository) DeletePending(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `
		DELETE FROM author_requests
		WHERE id = $1 AND user_id = $2 AND status = 'pending'`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete author request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("pending author request", id.String())
	}

	if _, err := r.db.Exec(ctx, `
		DELETE FROM files
		WHERE owner_kind = 'author_request' AND owner_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete request files: %w", err)
	}

	return nil
}

// AddWorkItems appends claimed works to an existing pending request.
func (r *PgRequestRepository) AddWorkItems(ctx context.Context, requestID uuid.UUID, items WorkItems) error {
	if items.IsEmpty() {
		return domain.NewValidationError("items", "at least one claimed work is required")
	}

	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM author_requests WHERE id = $1 AND status = 'pending'
		)`, requestID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check author request: %w", err)
	}
	if !exists {
		return domain.NewNotFoundError("pending author request", requestID.String())
	}

	return r.insertWorkItems(ctx, requestID, items)
}

// RemoveWorkItem deletes a single claimed work from a pending request.
func (r *PgRequestRepository) RemoveWorkItem(ctx context.Context, requestID uuid.UUID, kind domain.WorkItemKind, itemID uuid.UUID) error {
	table, ok := workItemTables[kind]
	if !ok {
		return domain.NewValidationError("kind", "unknown work item kind: "+string(kind))
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND request_id = $2
		  AND EXISTS (
			SELECT 1 FROM author_requests ar WHERE ar.id = $2 AND ar.status = 'pending'
		  )`, table)

	result, err := r.db.Exec(ctx, query, itemID, requestID)
	if err != nil {
		return fmt.Errorf("failed to remove claimed work: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError(string(kind)+" item", itemID.String())
	}

	return nil
}

// MarkReviewed performs the filtered pending -> terminal status transition.
// The status filter in the WHERE clause makes the transition race-safe: only
// one concurrent reviewer observes RowsAffected() == 1.
func (r *PgRequestRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status domain.RequestStatus, adminNotes string, reviewedBy uuid.UUID) error {
	if !status.IsTerminal() {
		return domain.NewValidationError("status", "review status must be approved or rejected")
	}

	query := `
		UPDATE author_requests
		SET status = $2,
			admin_notes = $3,
			reviewed_by = $4,
			updated_at = $5
		WHERE id = $1 AND status = 'pending'`

	result, err := r.db.Exec(ctx, query, id, status, nullString(adminNotes), reviewedBy, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark author request reviewed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("pending author request", id.String())
	}

	return nil
}

// HasActiveRequest reports whether the user has a pending or approved request.
func (r *PgRequestRepository) HasActiveRequest(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM author_requests
			WHERE user_id = $1 AND status IN ('pending', 'approved')
		)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active request: %w", err)
	}
	return exists, nil
}

// CallApprovalProcedure invokes the approve_author_request stored procedure.
// The procedure returns a row only when it transitioned the request, so a
// missing or already-reviewed request surfaces as pgx.ErrNoRows.
func (r *PgRequestRepository) CallApprovalProcedure(ctx context.Context, id, reviewedBy uuid.UUID, adminNotes string) (*domain.ApprovalResult, error) {
	query := `SELECT request_id, author_id, user_id FROM approve_author_request($1, $2, $3)`

	var result domain.ApprovalResult
	err := r.db.QueryRow(ctx, query, id, reviewedBy, nullString(adminNotes)).
		Scan(&result.RequestID, &result.AuthorID, &result.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("pending author request", id.String())
		}
		if isPgUndefinedFunction(err) {
			return nil, fmt.Errorf("approve_author_request: %w", ErrProcedureUnavailable)
		}
		return nil, fmt.Errorf("failed to call approval procedure: %w", err)
	}

	return &result, nil
}

// requestScanDest holds the destination pointers for scanning an AuthorRequest row.
// This eliminates code duplication between pgx.Row and pgx.Rows scanning.
type requestScanDest struct {
	request          domain.AuthorRequest
	academicTitle    *string
	email            *string
	bio              *string
	reasonForRequest *string
	adminNotes       *string
}

// destinations returns the slice of pointers for Scan operations.
func (d *requestScanDest) destinations() []interface{} {
	return []interface{}{
		&d.request.ID, &d.request.UserID, &d.academicTitle, &d.request.FirstName, &d.request.LastName,
		&d.email, &d.bio, &d.reasonForRequest, &d.request.Status, &d.adminNotes,
		&d.request.ReviewedBy, &d.request.CreatedAt, &d.request.UpdatedAt,
	}
}

// finalize performs post-scan processing: sets nullable string fields.
func (d *requestScanDest) finalize() (*domain.AuthorRequest, error) {
	d.request.AcademicTitle = deref(d.academicTitle)
	d.request.Email = deref(d.email)
	d.request.Bio = deref(d.bio)
	d.request.ReasonForRequest = deref(d.reasonForRequest)
	d.request.AdminNotes = deref(d.adminNotes)
	return &d.request, nil
}

// scanRequest scans a single row into an AuthorRequest.
func scanRequest(row pgx.Row) (*domain.AuthorRequest, error) {
	var dest requestScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanRequestFromRows scans the current row from pgx.Rows into an AuthorRequest.
func scanRequestFromRows(rows pgx.Rows) (*domain.AuthorRequest, error) {
	var dest requestScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// deref returns the pointed-to string or "" for nil.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
