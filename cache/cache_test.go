package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "dashboard:today", []byte("x"), 30*time.Second))
	v, err := s.Get(ctx, "dashboard:today")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), v)

	now = now.Add(30 * time.Second)
	_, err = s.Get(ctx, "dashboard:today")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestMemoryStoreDeletePrefix(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "menu:items:all", []byte("1"), 0)
	_ = s.Set(ctx, "menu:items:cat:2", []byte("2"), 0)
	_ = s.Set(ctx, "dashboard:today", []byte("3"), 0)

	require.NoError(t, s.DeletePrefix(ctx, "menu:"))

	_, err := s.Get(ctx, "menu:items:all")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "dashboard:today")
	assert.NoError(t, err)
}

func TestJSONHelpers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	type snapshot struct {
		TotalSales float64 `json:"total_sales"`
	}
	var got snapshot
	assert.False(t, GetJSON(ctx, s, "k", &got))

	SetJSON(ctx, s, "k", snapshot{TotalSales: 12.5}, time.Minute)
	require.True(t, GetJSON(ctx, s, "k", &got))
	assert.Equal(t, 12.5, got.TotalSales)

	_ = s.Set(ctx, "bad", []byte("{"), 0)
	assert.False(t, GetJSON(ctx, s, "bad", &got))
}
