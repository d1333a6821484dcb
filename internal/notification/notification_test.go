package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier(t *testing.T) {
	ctx := context.Background()
	n := NewLogNotifier(zerolog.Nop())

	t.Run("submitted never fails", func(t *testing.T) {
		err := n.RequestSubmitted(ctx, RequestSubmittedEvent{
			RequestID:     uuid.New(),
			ApplicantName: "Grace Hopper",
			AdminEmails:   []string{"admin@example.edu"},
		})
		assert.NoError(t, err)
	})

	t.Run("approved never fails", func(t *testing.T) {
		err := n.RequestApproved(ctx, RequestApprovedEvent{
			RequestID: uuid.New(),
			UserID:    uuid.New(),
			FirstName: "Grace",
		})
		assert.NoError(t, err)
	})

	t.Run("rejected never fails", func(t *testing.T) {
		err := n.RequestRejected(ctx, RequestRejectedEvent{
			RequestID: uuid.New(),
			UserID:    uuid.New(),
			Reason:    "insufficient works",
		})
		assert.NoError(t, err)
	})

	t.Run("close is a no-op", func(t *testing.T) {
		assert.NoError(t, n.Close())
	})
}

func TestEnvelopeWireFormat(t *testing.T) {
	event := RequestRejectedEvent{
		RequestID: uuid.New(),
		UserID:    uuid.New(),
		FirstName: "Grace",
		Reason:    "insufficient works",
	}

	value, err := json.Marshal(envelope{
		EventType:  EventRequestRejected,
		OccurredAt: time.Now().UTC(),
		Payload:    event,
	})
	require.NoError(t, err)

	var decoded struct {
		EventType  string               `json:"event_type"`
		OccurredAt time.Time            `json:"occurred_at"`
		Payload    RequestRejectedEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(value, &decoded))

	assert.Equal(t, EventRequestRejected, decoded.EventType)
	assert.False(t, decoded.OccurredAt.IsZero())
	assert.Equal(t, event.RequestID, decoded.Payload.RequestID)
	assert.Equal(t, "insufficient works", decoded.Payload.Reason)
}
