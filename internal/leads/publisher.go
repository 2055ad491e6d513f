package leads

import "context"

// Realtime event names emitted for lead mutations.
const (
	EventLeadCreated = "lead-created"
	EventLeadUpdated = "lead-updated"
	EventLeadDeleted = "lead-deleted"
)

// Publisher delivers mutation events. Delivery is best-effort; an error is
// logged by the caller and never undoes the mutation.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// DeletedPayload is the body of a lead-deleted event.
type DeletedPayload struct {
	ID string `json:"id"`
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// MutationObserver records mutation outcomes (see metrics.CRMMetrics).
type MutationObserver interface {
	ObserveMutation(op string, err error)
}
