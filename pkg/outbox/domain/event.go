package domain

import (
	"encoding/json"
	"time"
)

type OutboxEvent struct {
	ID            int64           `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	Topic         string          `db:"topic"`
	CreatedAt     time.Time       `db:"created_at"`
	PublishedAt   *time.Time      `db:"published_at"`
	Attempts      int64           `db:"attempts"`
	LastError     *string         `db:"last_error"`
}

// Envelope is the message shape published to Kafka. EventID is the outbox
// row id and lets consumers drop redeliveries.
type Envelope struct {
	EventID int64           `json:"event_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload for an outbox row.
func NewEvent(topic, aggregateType, aggregateID, eventType string, payload any) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
		Topic:         topic,
	}, nil
}
