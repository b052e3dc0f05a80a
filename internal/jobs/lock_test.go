package job

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	var l LocalLock

	release, ok, err := l.TryLock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	_, ok, _ = l.TryLock(context.Background())
	assert.True(t, ok)
}

func TestRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	replicaA := NewRedisLock(client, "tick", time.Minute)
	replicaB := NewRedisLock(client, "tick", time.Minute)
	ctx := context.Background()

	release, ok, err := replicaA.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("tick"))

	_, ok, err = replicaB.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("tick"))

	releaseB, ok, err := replicaB.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	defer releaseB()

	// A stale release must not remove a lock taken by someone else.
	release()
	assert.True(t, mr.Exists("tick"))
}

func TestRedisLockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLock(client, "tick", time.Second)
	_, ok, err := l.TryLock(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = l.TryLock(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, ok, err := NewRedisLock(client, "tick", time.Minute).TryLock(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}
