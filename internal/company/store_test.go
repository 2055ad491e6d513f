package company

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreDefaults(t *testing.T) {
	store, _ := newRedisStore(t)

	c, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	logo := "https://cdn.example.com/logo.png"
	saved := &Company{Name: "Bolt Co", Logo: &logo, PrimaryColor: "#112233", AccentColor: "#445566", UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Set(ctx, saved))
	assert.True(t, mr.Exists(Key))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestRedisStoreCorruptRecord(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, mr.Set(Key, "{not json"))

	_, err := store.Get(context.Background())
	assert.ErrorContains(t, err, "company: decode")
}

func TestMemoryStoreCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, err := store.Get(ctx)
	require.NoError(t, err)
	c.Name = "Changed"
	require.NoError(t, store.Set(ctx, c))

	c.Name = "Mutated after save"
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.Name)
}

func TestUpdateRequestApply(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		req     UpdateRequest
		wantErr error
		check   func(t *testing.T, c *Company)
	}{
		{
			name: "partial colors",
			req:  UpdateRequest{PrimaryColor: str("#abcdef")},
			check: func(t *testing.T, c *Company) {
				assert.Equal(t, "#ABCDEF", c.PrimaryColor)
				assert.Equal(t, "#FFD700", c.AccentColor)
			},
		},
		{name: "short color", req: UpdateRequest{AccentColor: str("#fff")}, wantErr: ErrInvalidColor},
		{name: "named color", req: UpdateRequest{PrimaryColor: str("red")}, wantErr: ErrInvalidColor},
		{name: "blank name", req: UpdateRequest{Name: str("  ")}, wantErr: ErrInvalidName},
		{
			name: "clear logo",
			req:  UpdateRequest{Logo: str("")},
			check: func(t *testing.T, c *Company) {
				assert.Nil(t, c.Logo)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			err := tt.req.Apply(c)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}
