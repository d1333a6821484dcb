package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/athenaeum/author-request-service/internal/domain"
)

// envelope is the uniform JSON response shape. Success responses carry data
// and an optional message; failures carry an error string.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Request and response types for JSON serialization.

type requestResponse struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	AcademicTitle    string             `json:"academic_title,omitempty"`
	FirstName        string             `json:"first_name"`
	LastName         string             `json:"last_name"`
	Email            string             `json:"email,omitempty"`
	Bio              string             `json:"bio,omitempty"`
	ReasonForRequest string             `json:"reason_for_request,omitempty"`
	Status           string             `json:"status"`
	AdminNotes       string             `json:"admin_notes,omitempty"`
	ReviewedBy       string             `json:"reviewed_by,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	Articles         []articleClaim     `json:"articles,omitempty"`
	Journals         []journalClaim     `json:"journals,omitempty"`
	Books            []bookClaim        `json:"books,omitempty"`
	Institutions     []institutionClaim `json:"institutions,omitempty"`
}

type articleClaim struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Abstract    string     `json:"abstract,omitempty"`
	Language    string     `json:"language,omitempty"`
	DOI         string     `json:"doi,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type journalClaim struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	ISSN        string     `json:"issn,omitempty"`
	Publisher   string     `json:"publisher,omitempty"`
	Language    string     `json:"language,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type bookClaim struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	ISBN        string     `json:"isbn,omitempty"`
	Publisher   string     `json:"publisher,omitempty"`
	Language    string     `json:"language,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type institutionClaim struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	Website string `json:"website,omitempty"`
}

type listRequestsResponse struct {
	Requests   []requestResponse `json:"requests"`
	TotalCount int64             `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

type fileResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	Version    int       `json:"version"`
	UploadedBy string    `json:"uploaded_by"`
	OwnerKind  string    `json:"owner_kind"`
	OwnerID    string    `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type approvalResponse struct {
	RequestID string `json:"request_id"`
	AuthorID  string `json:"author_id"`
	UserID    string `json:"user_id"`
	Status    string `json:"status"`
}

// Converter functions

func domainRequestToResponse(r *domain.AuthorRequest) requestResponse {
	resp := requestResponse{
		ID:               r.ID.String(),
		UserID:           r.UserID.String(),
		AcademicTitle:    r.AcademicTitle,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Email:            r.Email,
		Bio:              r.Bio,
		ReasonForRequest: r.ReasonForRequest,
		Status:           string(r.Status),
		AdminNotes:       r.AdminNotes,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.ReviewedBy != nil {
		resp.ReviewedBy = r.ReviewedBy.String()
	}
	for _, a := range r.Articles {
		resp.Articles = append(resp.Articles, articleClaim{
			ID:          a.ID.String(),
			Title:       a.Title,
			Abstract:    a.Abstract,
			Language:    a.Language,
			DOI:         a.DOI,
			PublishedAt: a.PublishedAt,
		})
	}
	for _, j := range r.Journals {
		resp.Journals = append(resp.Journals, journalClaim{
			ID:          j.ID.String(),
			Name:        j.Name,
			ISSN:        j.ISSN,
			Publisher:   j.Publisher,
			Language:    j.Language,
			PublishedAt: j.PublishedAt,
		})
	}
	for _, b := range r.Books {
		resp.Books = append(resp.Books, bookClaim{
			ID:          b.ID.String(),
			Title:       b.Title,
			ISBN:        b.ISBN,
			Publisher:   b.Publisher,
			Language:    b.Language,
			PublishedAt: b.PublishedAt,
		})
	}
	for _, i := range r.Institutions {
		resp.Institutions = append(resp.Institutions, institutionClaim{
			ID:      i.ID.String(),
			Name:    i.Name,
			Country: i.Country,
			City:    i.City,
			Website: i.Website,
		})
	}
	return resp
}

func domainFileToResponse(f *domain.FileRef) fileResponse {
	return fileResponse{
		ID:         f.ID.String(),
		FileName:   f.FileName,
		Version:    f.Version,
		UploadedBy: f.UploadedBy.String(),
		OwnerKind:  string(f.Owner.Kind),
		OwnerID:    f.Owner.ID.String(),
		CreatedAt:  f.CreatedAt,
	}
}

func domainApprovalToResponse(a *domain.ApprovalResult) approvalResponse {
	return approvalResponse{
		RequestID: a.RequestID.String(),
		AuthorID:  a.AuthorID.String(),
		UserID:    a.UserID.String(),
		Status:    string(domain.RequestStatusApproved),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeSuccess writes a success envelope with the given data.
func writeSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, envelope{Success: true, Message: message, Data: data})
}

// writeError writes a failure envelope.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, envelope{Success: false, Error: message})
}

// writeDomainError maps domain errors to HTTP status codes and writes a
// failure envelope. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrConflict):
		var ce *domain.ConflictError
		if errors.As(err, &ce) {
			writeError(w, http.StatusConflict, ce.Error())
		} else {
			writeError(w, http.StatusConflict, "conflict")
		}
	case errors.Is(err, domain.ErrDependency):
		writeError(w, http.StatusInternalServerError, "a dependent operation failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
