// Package audit records the append-only activity trail of lead mutations.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Action is the kind of mutation an entry records.
type Action string

const (
	ActionCreated Action = "CREATED"
	ActionUpdated Action = "UPDATED"
)

// ErrInvalidDetails is returned when a details payload does not match its action.
var ErrInvalidDetails = errors.New("audit: details do not match action")

// ErrLeadDeleted is returned when appending to a lead that no longer exists.
var ErrLeadDeleted = errors.New("audit: lead deleted")

// Details is the per-action payload of an entry. Each action has exactly one
// concrete details type.
type Details interface {
	Action() Action
}

// CreatedDetails records the creation fact.
type CreatedDetails struct {
	Message string `json:"message"`
}

func (CreatedDetails) Action() Action { return ActionCreated }

// UpdatedDetails carries the field-level changes exactly as submitted.
type UpdatedDetails struct {
	Changes map[string]any `json:"changes"`
}

func (UpdatedDetails) Action() Action { return ActionUpdated }

// ParseDetails decodes raw into the details type registered for action.
func ParseDetails(action Action, raw []byte) (Details, error) {
	switch action {
	case ActionCreated:
		var probe struct {
			Message *string `json:"message"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.Message == nil {
			return nil, fmt.Errorf("%w: %s needs a message", ErrInvalidDetails, action)
		}
		return CreatedDetails{Message: *probe.Message}, nil
	case ActionUpdated:
		var probe struct {
			Changes map[string]any `json:"changes"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.Changes == nil {
			return nil, fmt.Errorf("%w: %s needs a changes object", ErrInvalidDetails, action)
		}
		return UpdatedDetails{Changes: probe.Changes}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidDetails, action)
	}
}

// Entry is one immutable audit record.
type Entry struct {
	ID        string
	LeadID    string
	UserID    string
	UserName  string
	Action    Action
	Details   Details
	Timestamp time.Time
}

// NewEntry builds an entry whose action is taken from details.
func NewEntry(leadID, userID string, details Details) Entry {
	return Entry{LeadID: leadID, UserID: userID, Action: details.Action(), Details: details}
}

type entryJSON struct {
	ID        string          `json:"id"`
	LeadID    string          `json:"leadId"`
	UserID    string          `json:"userId"`
	Action    Action          `json:"action"`
	Details   json.RawMessage `json:"details"`
	Timestamp time.Time       `json:"timestamp"`
	User      *entryUser      `json:"user,omitempty"`
}

type entryUser struct {
	Name string `json:"name"`
}

// MarshalJSON renders the entry with the acting user's display name nested
// under "user".
func (e Entry) MarshalJSON() ([]byte, error) {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return nil, fmt.Errorf("audit: marshal details: %w", err)
	}
	out := entryJSON{
		ID:        e.ID,
		LeadID:    e.LeadID,
		UserID:    e.UserID,
		Action:    e.Action,
		Details:   details,
		Timestamp: e.Timestamp,
	}
	if e.UserID != "" {
		out.User = &entryUser{Name: e.UserName}
	}
	return json.Marshal(out)
}

// UnmarshalJSON validates the details payload against the action.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var in entryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	details, err := ParseDetails(in.Action, in.Details)
	if err != nil {
		return err
	}
	*e = Entry{
		ID:        in.ID,
		LeadID:    in.LeadID,
		UserID:    in.UserID,
		Action:    in.Action,
		Details:   details,
		Timestamp: in.Timestamp,
	}
	if in.User != nil {
		e.UserName = in.User.Name
	}
	return nil
}
