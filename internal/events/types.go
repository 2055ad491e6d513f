// Package events exports lead mutation events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Publisher matches leads.Publisher.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// Envelope is the wire body of an exported event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

func (e OutboxEntry) envelope() Envelope {
	return Envelope{
		ID:         e.ID.String(),
		Type:       e.Type,
		OccurredAt: e.CreatedAt.UTC(),
		Data:       e.Payload,
	}
}
