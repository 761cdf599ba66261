package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeReviewStatusUpdated = "product_review.status_updated"
	TypeReviewSubmitted     = "product_review.submitted"
	TypeUploadCreated       = "upload.created"
)

// Event is a domain fact published after its transaction commits.
type Event struct {
	Type        string
	AggregateID string
	Data        any
}

// Envelope is the stable message body on the events topic.
type Envelope struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"`
}

func newEnvelope(evt Event, now time.Time) (Envelope, error) {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:     uuid.NewString(),
		EventType:   evt.Type,
		AggregateID: evt.AggregateID,
		OccurredAt:  now.UTC(),
		Data:        data,
	}, nil
}
