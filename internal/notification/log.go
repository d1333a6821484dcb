package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// Compile-time interface verification.
var _ Notifier = (*LogNotifier)(nil)

// LogNotifier writes lifecycle events to the structured log instead of a
// transport. Used in development and when the event broker is disabled.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger.With().Str("component", "log_notifier").Logger(),
	}
}

// RequestSubmitted logs a new-submission broadcast.
func (n *LogNotifier) RequestSubmitted(_ context.Context, event RequestSubmittedEvent) error {
	n.logger.Info().
		Str("event_type", EventRequestSubmitted).
		Str("request_id", event.RequestID.String()).
		Str("applicant", event.ApplicantName).
		Int("admin_count", len(event.AdminEmails)).
		Msg("author request submitted")
	return nil
}

// RequestApproved logs an approval notification.
func (n *LogNotifier) RequestApproved(_ context.Context, event RequestApprovedEvent) error {
	n.logger.Info().
		Str("event_type", EventRequestApproved).
		Str("request_id", event.RequestID.String()).
		Str("user_id", event.UserID.String()).
		Msg("author request approved")
	return nil
}

// RequestRejected logs a rejection notification.
func (n *LogNotifier) RequestRejected(_ context.Context, event RequestRejectedEvent) error {
	n.logger.Info().
		Str("event_type", EventRequestRejected).
		Str("request_id", event.RequestID.String()).
		Str("user_id", event.UserID.String()).
		Str("reason", event.Reason).
		Msg("author request rejected")
	return nil
}

// Close is a no-op for the log notifier.
func (n *LogNotifier) Close() error {
	return nil
}
