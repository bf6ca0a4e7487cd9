package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	sess := New()
	sess.CartID = 42
	sess.AddFlash(FlashSuccess, "Added to cart")
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), loaded.CartID)
	assert.Len(t, loaded.Flashes, 1)

	loaded.PopFlashes()
	stored, err := store.Load(ctx, sess.Token)
	require.NoError(t, err)
	assert.Len(t, stored.Flashes, 1, "mutating a loaded copy must not change the store")

	require.NoError(t, store.Delete(ctx, sess.Token))
	_, err = store.Load(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	sess := New()
	require.NoError(t, store.Save(ctx, sess))

	now = now.Add(2 * time.Minute)
	_, err := store.Load(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadOrNew(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	fresh, created, err := LoadOrNew(ctx, store, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, fresh.Token)

	unknown, created, err := LoadOrNew(ctx, store, "no-such-token")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "no-such-token", unknown.Token)

	require.NoError(t, store.Save(ctx, fresh))
	again, created, err := LoadOrNew(ctx, store, fresh.Token)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, fresh.Token, again.Token)
}

func TestPopFlashes(t *testing.T) {
	sess := New()
	sess.AddFlash(FlashInfo, "one")
	sess.AddFlash(FlashError, "two")

	flashes := sess.PopFlashes()
	assert.Equal(t, []Flash{{FlashInfo, "one"}, {FlashError, "two"}}, flashes)
	assert.Empty(t, sess.PopFlashes())
}
