package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists audit entries. Entries are never updated; they disappear
// only when their lead is deleted.
type Store interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	// ListForLead returns entries newest first; limit <= 0 means unbounded.
	ListForLead(ctx context.Context, leadID string, limit int) ([]Entry, error)
	// RecentForLeads returns up to perLead newest entries for each lead id.
	RecentForLeads(ctx context.Context, leadIDs []string, perLead int) (map[string][]Entry, error)
	CountForLead(ctx context.Context, leadID string) (int, error)
}

// UserNamer resolves the display name of an acting user.
type UserNamer interface {
	UserName(ctx context.Context, userID string) (string, bool)
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry // lead id -> entries in append order
	deleted map[string]struct{}
	last    time.Time
	names   UserNamer
	now     func() time.Time
}

// NewMemoryStore creates an empty store. names may be nil.
func NewMemoryStore(names UserNamer) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]Entry),
		deleted: make(map[string]struct{}),
		names:   names,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Append stores e with a fresh id and a strictly increasing timestamp.
// Appending to a lead already passed to DeleteLead fails with ErrLeadDeleted.
func (s *MemoryStore) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.Details == nil || e.Details.Action() != e.Action {
		return Entry{}, ErrInvalidDetails
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, gone := s.deleted[e.LeadID]; gone {
		return Entry{}, ErrLeadDeleted
	}

	ts := s.now()
	if !ts.After(s.last) {
		ts = s.last.Add(time.Microsecond)
	}
	s.last = ts

	e.ID = uuid.NewString()
	e.Timestamp = ts
	s.entries[e.LeadID] = append(s.entries[e.LeadID], e)
	return s.withName(ctx, e), nil
}

func (s *MemoryStore) ListForLead(ctx context.Context, leadID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newest(ctx, leadID, limit), nil
}

func (s *MemoryStore) RecentForLeads(ctx context.Context, leadIDs []string, perLead int) (map[string][]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]Entry, len(leadIDs))
	for _, id := range leadIDs {
		if entries := s.newest(ctx, id, perLead); len(entries) > 0 {
			out[id] = entries
		}
	}
	return out, nil
}

func (s *MemoryStore) CountForLead(_ context.Context, leadID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[leadID]), nil
}

// DeleteLead drops every entry of leadID and refuses later appends for it,
// matching the ON DELETE CASCADE foreign key. It is only invoked by lead
// deletion.
func (s *MemoryStore) DeleteLead(_ context.Context, leadID string) {
	s.mu.Lock()
	delete(s.entries, leadID)
	s.deleted[leadID] = struct{}{}
	s.mu.Unlock()
}

func (s *MemoryStore) newest(ctx context.Context, leadID string, limit int) []Entry {
	src := s.entries[leadID]
	out := make([]Entry, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, s.withName(ctx, src[i]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) withName(ctx context.Context, e Entry) Entry {
	if s.names != nil && e.UserID != "" {
		if name, ok := s.names.UserName(ctx, e.UserID); ok {
			e.UserName = name
		}
	}
	return e
}
