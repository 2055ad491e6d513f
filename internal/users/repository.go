package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines user storage. Emails are stored lowercased and are unique.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// List returns users newest first.
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository keeps users in process memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
	now   func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users: make(map[string]*User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create assigns id and timestamps to u and stores a copy.
func (r *InMemoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailOwner(u.Email) != "" {
		return ErrEmailTaken
	}
	now := r.now()
	u.ID = uuid.New().String()
	u.CreatedAt = now
	u.UpdatedAt = now
	stored := *u
	r.users[u.ID] = &stored
	return nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := r.emailOwner(email)
	if id == "" {
		return nil, ErrUserNotFound
	}
	out := *r.users[id]
	return &out, nil
}

func (r *InMemoryRepository) List(_ context.Context) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update replaces the stored user and bumps UpdatedAt.
func (r *InMemoryRepository) Update(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	if owner := r.emailOwner(u.Email); owner != "" && owner != u.ID {
		return ErrEmailTaken
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = r.now()
	stored := *u
	r.users[u.ID] = &stored
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

// UserName resolves display names for audit entries.
func (r *InMemoryRepository) UserName(_ context.Context, id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return "", false
	}
	return u.Name, true
}

// emailOwner returns the id of the user holding email; callers hold r.mu.
func (r *InMemoryRepository) emailOwner(email string) string {
	for id, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return id
		}
	}
	return ""
}
