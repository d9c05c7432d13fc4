package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestBroker_DeliversToSubscribedUser(t *testing.T) {
	broker := NewRedisBroker(setupTestRedis(t))
	ctx := context.Background()

	alice, err := broker.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer alice.Close()

	carol, err := broker.Subscribe(ctx, "carol")
	require.NoError(t, err)
	defer carol.Close()

	require.NoError(t, broker.Publish(ctx, "alice", "bob"))

	select {
	case <-alice.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("alice did not receive the change signal")
	}

	select {
	case <-carol.Changes():
		t.Fatal("carol must not be signalled")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroker_CoalescesBursts(t *testing.T) {
	broker := NewRedisBroker(setupTestRedis(t))
	ctx := context.Background()

	l, err := broker.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, broker.Publish(ctx, "alice"))
	}

	require.Eventually(t, func() bool { return len(l.Changes()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, cap(l.Changes()), 1)
}

func TestBroker_CloseEndsChanges(t *testing.T) {
	broker := NewRedisBroker(setupTestRedis(t))

	l, err := broker.Subscribe(context.Background(), "alice")
	require.NoError(t, err)

	require.NoError(t, l.Close())
	assert.NoError(t, l.Close(), "second close is a no-op")

	select {
	case _, ok := <-l.Changes():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("changes channel was not closed")
	}
}
