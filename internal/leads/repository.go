package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage.
type Repository interface {
	// Create assigns ID, CreatedAt and UpdatedAt on l and persists it.
	Create(ctx context.Context, l *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	// Update merges p into the lead and bumps UpdatedAt.
	Update(ctx context.Context, id string, p Patch) (*Lead, error)
	// Delete removes the lead and its activity entries.
	Delete(ctx context.Context, id string) error
	// List returns one page of matches, newest first, and the total match count.
	List(ctx context.Context, f ListFilter) ([]*Lead, int, error)
	// All returns every lead, newest first.
	All(ctx context.Context) ([]*Lead, error)
}

// DeleteHook runs after a lead is removed from an InMemoryRepository.
type DeleteHook func(ctx context.Context, leadID string)

// InMemoryRepository keeps leads in process memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
	last  time.Time
	hooks []DeleteHook
	now   func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// OnDelete registers a cascade hook, e.g. audit.MemoryStore.DeleteLead.
func (r *InMemoryRepository) OnDelete(hook DeleteHook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, hook)
	r.mu.Unlock()
}

func (r *InMemoryRepository) Create(_ context.Context, l *Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.tick()
	l.ID = uuid.New().String()
	l.CreatedAt = now
	l.UpdatedAt = now
	r.leads[l.ID] = l.Clone()
	return nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return lead.Clone(), nil
}

func (r *InMemoryRepository) Update(_ context.Context, id string, p Patch) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	p.Apply(lead)
	lead.UpdatedAt = r.tick()
	return lead.Clone(), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.leads[id]; !ok {
		r.mu.Unlock()
		return ErrLeadNotFound
	}
	delete(r.leads, id)
	hooks := append([]DeleteHook(nil), r.hooks...)
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, id)
	}
	return nil
}

func (r *InMemoryRepository) List(_ context.Context, f ListFilter) ([]*Lead, int, error) {
	f = f.normalized()
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*Lead, 0)
	for _, l := range r.leads {
		if f.Matches(l) {
			matched = append(matched, l)
		}
	}
	sortNewestFirst(matched)

	total := len(matched)
	start := f.Offset()
	if start >= total {
		return []*Lead{}, total, nil
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	page := make([]*Lead, 0, end-start)
	for _, l := range matched[start:end] {
		page = append(page, l.Clone())
	}
	return page, total, nil
}

func (r *InMemoryRepository) All(_ context.Context) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, l.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

// tick returns a timestamp strictly after the previous one; callers hold r.mu.
func (r *InMemoryRepository) tick() time.Time {
	now := r.now()
	if !now.After(r.last) {
		now = r.last.Add(time.Microsecond)
	}
	r.last = now
	return now
}

func sortNewestFirst(leads []*Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		if leads[i].CreatedAt.Equal(leads[j].CreatedAt) {
			return leads[i].ID > leads[j].ID
		}
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})
}
