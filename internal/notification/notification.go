// Package notification provides the outbound notification gateway for
// author request lifecycle events. Delivery is best-effort: callers log
// failures and never fail the triggering operation.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event type identifiers carried on every published event.
const (
	EventRequestSubmitted = "author_request.submitted"
	EventRequestApproved  = "author_request.approved"
	EventRequestRejected  = "author_request.rejected"
)

// RequestSubmittedEvent is broadcast to admins when a new request arrives.
type RequestSubmittedEvent struct {
	RequestID      uuid.UUID `json:"request_id"`
	ApplicantName  string    `json:"applicant_name"`
	ApplicantEmail string    `json:"applicant_email,omitempty"`
	AdminEmails    []string  `json:"admin_emails"`
	ReviewURL      string    `json:"review_url,omitempty"`
}

// RequestApprovedEvent is sent to the promoted user after approval.
type RequestApprovedEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name"`
	LoginURL  string    `json:"login_url,omitempty"`
}

// RequestRejectedEvent is sent to the user after rejection, carrying the
// admin's reason.
type RequestRejectedEvent struct {
	RequestID uuid.UUID `json:"request_id"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name"`
	Reason    string    `json:"reason"`
}

// envelope is the wire format for published events.
type envelope struct {
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// Notifier delivers author request lifecycle events. Implementations must be
// safe for concurrent use.
type Notifier interface {
	// RequestSubmitted broadcasts a new-submission event to admins.
	RequestSubmitted(ctx context.Context, event RequestSubmittedEvent) error

	// RequestApproved notifies the promoted user.
	RequestApproved(ctx context.Context, event RequestApprovedEvent) error

	// RequestRejected notifies the user with the rejection reason.
	RequestRejected(ctx context.Context, event RequestRejectedEvent) error

	// Close releases any transport resources.
	Close() error
}
