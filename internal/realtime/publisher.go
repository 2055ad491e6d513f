package realtime

import (
	"context"
	"fmt"
)

// LeadPublisher broadcasts lead mutations to the leads channel.
type LeadPublisher struct {
	hub *Hub
}

func NewLeadPublisher(hub *Hub) *LeadPublisher {
	return &LeadPublisher{hub: hub}
}

// Publish never blocks on slow sessions; see Hub.Publish.
func (p *LeadPublisher) Publish(ctx context.Context, event string, payload any) error {
	ev, err := NewEvent(event, payload)
	if err != nil {
		return fmt.Errorf("realtime: marshal %s: %w", event, err)
	}
	p.hub.Broadcast(ctx, LeadsChannel, ev, nil)
	return nil
}
