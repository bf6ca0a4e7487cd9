package session

import (
	"context"
	"testing"
	"time"

	"github.com/optiplus/storefront/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	addr := testutil.SetupTestRedis(t)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, time.Minute)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	sess := New()
	sess.CartID = 7
	sess.AddFlash(FlashWarning, "Cart is empty")
	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Load(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.Token, loaded.Token)
	assert.Equal(t, int64(7), loaded.CartID)
	assert.Equal(t, sess.Flashes, loaded.Flashes)

	ttl, err := client.TTL(ctx, store.key(sess.Token)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, sess.Token))
	_, err = store.Load(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}
