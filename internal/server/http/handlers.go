package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/athenaeum/author-request-service/internal/domain"
	"github.com/athenaeum/author-request-service/internal/repository"
	"github.com/athenaeum/author-request-service/internal/review"
)

// Pagination and validation constants.
const (
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
	maxFieldLength     = 10000
	maxClaimedWorks    = 200
)

// submitRequestBody is the JSON request body for submitting an author request.
type submitRequestBody struct {
	AcademicTitle    string             `json:"academic_title,omitempty"`
	FirstName        string             `json:"first_name"`
	LastName         string             `json:"last_name"`
	Email            string             `json:"email,omitempty"`
	Bio              string             `json:"bio,omitempty"`
	ReasonForRequest string             `json:"reason_for_request,omitempty"`
	Articles         []articleClaim     `json:"articles,omitempty"`
	Journals         []journalClaim     `json:"journals,omitempty"`
	Books            []bookClaim        `json:"books,omitempty"`
	Institutions     []institutionClaim `json:"institutions,omitempty"`

	// FileIDs references files uploaded before the request existed; they are
	// retargeted to the new request on submission.
	FileIDs []uuid.UUID `json:"file_ids,omitempty"`
}

// attachFileBody is the JSON request body for registering an uploaded file.
type attachFileBody struct {
	FileName string `json:"file_name"`
}

// reviewBody is the JSON request body for the approve and reject endpoints.
type reviewBody struct {
	AdminNotes string `json:"admin_notes,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// requireActor pulls the authenticated actor out of the context, writing a
// 401 response when the auth middleware did not run.
func requireActor(w http.ResponseWriter, r *http.Request) (review.Actor, bool) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return review.Actor{}, false
	}
	return actor, true
}

// decodeBody reads and unmarshals a size-capped JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// submitRequest handles POST /author-requests.
func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body submitRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Bio) > maxFieldLength || len(body.ReasonForRequest) > maxFieldLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("free-form fields must be at most %d characters", maxFieldLength))
		return
	}
	if totalClaims(body.Articles, body.Journals, body.Books, body.Institutions) > maxClaimedWorks {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d claimed works per request", maxClaimedWorks))
		return
	}

	request := &domain.AuthorRequest{
		AcademicTitle:    strings.TrimSpace(body.AcademicTitle),
		FirstName:        strings.TrimSpace(body.FirstName),
		LastName:         strings.TrimSpace(body.LastName),
		Email:            strings.TrimSpace(body.Email),
		Bio:              body.Bio,
		ReasonForRequest: body.ReasonForRequest,
		Articles:         claimsToArticles(body.Articles),
		Journals:         claimsToJournals(body.Journals),
		Books:            claimsToBooks(body.Books),
		Institutions:     claimsToInstitutions(body.Institutions),
	}

	result, err := s.submission.Submit(r.Context(), actor, request, body.FileIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "author request submitted", domainRequestToResponse(result))
}

// listRequests handles GET /author-requests. Admin only.
func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	filter, ok := parseRequestFilter(w, r)
	if !ok {
		return
	}

	requests, total, err := s.submission.List(r.Context(), actor, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]requestResponse, len(requests))
	for i, req := range requests {
		items[i] = domainRequestToResponse(req)
	}

	writeSuccess(w, http.StatusOK, "", listRequestsResponse{
		Requests:   items,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// myRequest handles GET /author-requests/me.
func (s *Server) myRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	request, err := s.submission.Mine(r.Context(), actor)
	if err != nil {
		// A user with no request yet gets a null payload, not a 404.
		if errors.Is(err, domain.ErrNotFound) {
			writeSuccess(w, http.StatusOK, "", nil)
			return
		}
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", domainRequestToResponse(request))
}

// getRequest handles GET /author-requests/{requestID}.
func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	requestID, ok := parseUUID(w, chi.URLParam(r, "requestID"), "request_id")
	if !ok {
		return
	}

	request, err := s.submission.Get(r.Context(), actor, requestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", domainRequestToResponse(request))
}

// updateRequest handles PUT /author-requests/{requestID}. Only the scalar
// fields of the caller's own pending request can be updated here.
func (s *Server) updateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	requestID, ok := parseUUID(w, chi.URLParam(r, "requestID"), "request_id")
	if !ok {
		return
	}

	var body submitRequestBody
	if !decodeBody(w, r, &body) {
		return
	}
	if len(body.Bio) > maxFieldLength || len(body.ReasonForRequest) > maxFieldLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("free-form fields must be at most %d characters", maxFieldLength))
		return
	}

	request := &domain.AuthorRequest{
		ID:               requestID,
		AcademicTitle:    strings.TrimSpace(body.AcademicTitle),
		FirstName:        strings.TrimSpace(body.FirstName),
		LastName:         strings.TrimSpace(body.LastName),
		Email:            strings.TrimSpace(body.Email),
		Bio:              body.Bio,
		ReasonForRequest: body.ReasonForRequest,
	}

	result, err := s.submission.UpdateMine(r.Context(), actor, request)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "author request updated", domainRequestToResponse(result))
}

// withdrawRequest handles DELETE /author-requests/{requestID}.
func (s *Server) withdrawRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	requestID, ok := parseUUID(w, chi.URLParam(r, "requestID"), "request_id")
	if !ok {
		return
	}

	if err := s.submission.DeleteMine(r.Context(), actor, requestID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "author request withdrawn", nil)
}

// addWorkItems handles POST /author-requests/{requestID}/{kind}. The kind
// path segment names the claimed-work collection and selects the claim shape
// the body carries, a JSON array of claims.
func (s *Server) addWorkItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	requestID, ok := parseUUID(w, chi.URLParam(r, "requestID"), "request_id")
	if !ok {
		return
	}
	kind := domain.WorkItemKind(chi.URLParam(r, "kind"))
	if !domain.IsValidWorkItemKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown claimed work kind")
		return
	}

	var items repository.WorkItems
	var count int
	switch kind {
	case domain.WorkItemArticle:
		var claims []articleClaim
		if !decodeBody(w, r, &claims) {
			return
		}
		items.Articles = claimsToArticles(claims)
		count = len(claims)
	case domain.WorkItemJournal:
		var claims []journalClaim
		if !decodeBody(w, r, &claims) {
			return
		}
		items.Journals = claimsToJournals(claims)
		count = len(claims)
	case domain.WorkItemBook:
		var claims []bookClaim
		if !decodeBody(w, r, &claims) {
			return
		}
		items.Books = claimsToBooks(claims)
		count = len(claims)
	case domain.WorkItemInstitution:
		var claims []institutionClaim
		if !decodeBody(w, r, &claims) {
			return
		}
		items.Institutions = claimsToInstitutions(claims)
		count = len(claims)
	}

	if count == 0 {
		writeError(w, http.StatusBadRequest, "at least one claimed work is required")
		return
	}
	if count > maxClaimedWorks {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d claimed works per request", maxClaimedWorks))
		return
	}

	result, err := s.submission.AddWorkItems(r.Context(), actor, requestID, items)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "claimed works added", domainRequestToResponse(result))
}

// removeWorkItem handles DELETE /author-requests/{requestID}/{kind}/{itemID}.
func (s *Server) removeWorkItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	requestID, ok := parseUUID(w, chi.URLParam(r, "requestID"), "request_id")
	if !ok {
		return
	}
	itemID, ok := parseUUID(w, chi.URLParam(r, "itemID"), "item_id")
	if !ok {
		return
	}

	kind := domain.WorkItemKind(chi.URLParam(r, "kind"))
	if !domain.IsValidWorkItemKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown claimed work kind")
		return
	}

	if err := s.submission.RemoveWorkItem(r.Context(), actor, requestID, kind, itemID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "claimed work removed", nil)
}

// attachFile handles POST /author-requests/{requestID}/files.
func (s *Server) attachFile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	requestID, ok := parseUUID(w, chi.URLParam(r, "requestID"), "request_id")
	if !ok {
		return
	}

	var body attachFileBody
	if !decodeBody(w, r, &body) {
		return
	}
	body.FileName = strings.TrimSpace(body.FileName)
	if body.FileName == "" {
		writeError(w, http.StatusBadRequest, "file_name is required")
		return
	}

	file, err := s.submission.AttachFile(r.Context(), actor, requestID, body.FileName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "file attached", domainFileToResponse(file))
}

// listFiles handles GET /author-requests/{requestID}/files.
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	requestID, ok := parseUUID(w, chi.URLParam(r, "requestID"), "request_id")
	if !ok {
		return
	}

	files, err := s.submission.ListFiles(r.Context(), actor, requestID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]fileResponse, len(files))
	for i, f := range files {
		items[i] = domainFileToResponse(f)
	}
	writeSuccess(w, http.StatusOK, "", items)
}

// approveRequest handles PUT /author-requests/{requestID}/approve. Admin only.
func (s *Server) approveRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	requestID, ok := parseUUID(w, chi.URLParam(r, "requestID"), "request_id")
	if !ok {
		return
	}

	var body reviewBody
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &body) {
			return
		}
	}

	result, err := s.engine.Approve(r.Context(), actor, requestID, body.AdminNotes)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "author request approved", domainApprovalToResponse(result))
}

// rejectRequest handles PUT /author-requests/{requestID}/reject. Admin only.
func (s *Server) rejectRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	requestID, ok := parseUUID(w, chi.URLParam(r, "requestID"), "request_id")
	if !ok {
		return
	}

	var body reviewBody
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := s.engine.Reject(r.Context(), actor, requestID, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "author request rejected", domainRequestToResponse(result))
}

// parseRequestFilter builds a repository filter from list query parameters.
func parseRequestFilter(w http.ResponseWriter, r *http.Request) (repository.RequestFilter, bool) {
	filter := repository.RequestFilter{
		Search:    strings.TrimSpace(r.URL.Query().Get("search")),
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		for _, raw := range strings.Split(statusParam, ",") {
			status := domain.RequestStatus(strings.TrimSpace(raw))
			if !domain.IsValidRequestStatus(status) {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status: %s", raw))
				return repository.RequestFilter{}, false
			}
			filter.Status = append(filter.Status, status)
		}
	}

	if userParam := r.URL.Query().Get("user_id"); userParam != "" {
		userID, ok := parseUUID(w, userParam, "user_id")
		if !ok {
			return repository.RequestFilter{}, false
		}
		filter.UserID = &userID
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}
	// page is a 1-based alias for offset, kept for clients of the original
	// admin console. An explicit offset wins.
	if pageStr := r.URL.Query().Get("page"); pageStr != "" && filter.Offset == 0 {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 1 {
			limit := filter.Limit
			if limit <= 0 {
				limit = repository.DefaultFilterLimit
			}
			filter.Offset = (page - 1) * limit
		}
	}

	if err := filter.Validate(); err != nil {
		writeDomainError(w, err)
		return repository.RequestFilter{}, false
	}

	return filter, true
}

// parseUUID parses a UUID from a string, writing a 400 error response if invalid.
// The parse error details are not included to avoid echoing malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

func totalClaims(articles []articleClaim, journals []journalClaim, books []bookClaim, institutions []institutionClaim) int {
	return len(articles) + len(journals) + len(books) + len(institutions)
}

// Claim payload to domain conversions.

func claimsToArticles(claims []articleClaim) []domain.RequestedArticle {
	out := make([]domain.RequestedArticle, 0, len(claims))
	for _, c := range claims {
		out = append(out, domain.RequestedArticle{
			Title:       strings.TrimSpace(c.Title),
			Abstract:    c.Abstract,
			Language:    c.Language,
			DOI:         strings.TrimSpace(c.DOI),
			PublishedAt: c.PublishedAt,
		})
	}
	return out
}

func claimsToJournals(claims []journalClaim) []domain.RequestedJournal {
	out := make([]domain.RequestedJournal, 0, len(claims))
	for _, c := range claims {
		out = append(out, domain.RequestedJournal{
			Name:        strings.TrimSpace(c.Name),
			ISSN:        strings.TrimSpace(c.ISSN),
			Publisher:   c.Publisher,
			Language:    c.Language,
			PublishedAt: c.PublishedAt,
		})
	}
	return out
}

func claimsToBooks(claims []bookClaim) []domain.RequestedBook {
	out := make([]domain.RequestedBook, 0, len(claims))
	for _, c := range claims {
		out = append(out, domain.RequestedBook{
			Title:       strings.TrimSpace(c.Title),
			ISBN:        strings.TrimSpace(c.ISBN),
			Publisher:   c.Publisher,
			Language:    c.Language,
			PublishedAt: c.PublishedAt,
		})
	}
	return out
}

func claimsToInstitutions(claims []institutionClaim) []domain.RequestedInstitution {
	out := make([]domain.RequestedInstitution, 0, len(claims))
	for _, c := range claims {
		out = append(out, domain.RequestedInstitution{
			Name:    strings.TrimSpace(c.Name),
			Country: strings.TrimSpace(c.Country),
			City:    strings.TrimSpace(c.City),
			Website: c.Website,
		})
	}
	return out
}
