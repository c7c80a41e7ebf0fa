package cache

import (
	"context"
	"testing"
	"time"

	"GameSync/internal/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, err := c.Get(ctx, "dashboard:MOST_PLAYED")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)

	value := []byte(`[{"rank":1}]`)
	require.NoError(t, c.Set(ctx, "dashboard:MOST_PLAYED", value, time.Minute))
	value[0] = 'x'

	got, err := c.Get(ctx, "dashboard:MOST_PLAYED")
	require.NoError(t, err)
	assert.Equal(t, `[{"rank":1}]`, string(got))

	require.NoError(t, c.Delete(ctx, "dashboard:MOST_PLAYED"))
	require.NoError(t, c.Delete(ctx, "dashboard:MOST_PLAYED"))
	_, err = c.Get(ctx, "dashboard:MOST_PLAYED")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))

	now = now.Add(time.Minute)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, interfaces.ErrCacheMiss)
	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}
