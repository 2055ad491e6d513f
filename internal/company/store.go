package company

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Key is the Redis key holding the branding record.
const Key = "leadcrm:company"

// Store persists the branding record.
type Store interface {
	Get(ctx context.Context) (*Company, error)
	Set(ctx context.Context, c *Company) error
}

// RedisStore keeps the record as a JSON blob.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

// Get returns the stored record, or Default when none was saved.
func (s *RedisStore) Get(ctx context.Context) (*Company, error) {
	data, err := s.redis.Get(ctx, Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("company: get: %w", err)
	}
	var c Company
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("company: decode: %w", err)
	}
	return &c, nil
}

func (s *RedisStore) Set(ctx context.Context, c *Company) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("company: encode: %w", err)
	}
	if err := s.redis.Set(ctx, Key, data, 0).Err(); err != nil {
		return fmt.Errorf("company: set: %w", err)
	}
	return nil
}

// MemoryStore is used when Redis is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	company *Company
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(context.Context) (*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.company == nil {
		return Default(), nil
	}
	c := *s.company
	return &c, nil
}

func (s *MemoryStore) Set(_ context.Context, c *Company) error {
	cp := *c
	s.mu.Lock()
	s.company = &cp
	s.mu.Unlock()
	return nil
}
