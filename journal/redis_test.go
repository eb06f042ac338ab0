package journal

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The Redis store runs against a live server only when
// STEPPER_TEST_REDIS_ADDR is set, e.g. "localhost:6379".
func openTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("STEPPER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STEPPER_TEST_REDIS_ADDR not set")
	}
	s, err := NewRedis(context.Background(), RedisOptions{
		Addr:   addr,
		Prefix: "stepper-test-" + uuid.NewString(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return openTestRedis(t) })
}

func TestRedisStoreRejectsStaleID(t *testing.T) {
	s := openTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleTrade("s", 1, 1, 1001)))
	require.NoError(t, s.Append(ctx, sampleTrade("s", 2, 1, 1002)))
	assert.ErrorIs(t, s.Append(ctx, sampleTrade("s", 2, 1, 1003)), ErrDuplicateTrade)
	assert.ErrorIs(t, s.Append(ctx, sampleTrade("s", 1, 1, 1003)), ErrDuplicateTrade)
}

func TestRedisSessionRegistry(t *testing.T) {
	s := openTestRedis(t)
	ctx := context.Background()

	_, err := s.ActiveSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.StartSession(ctx, "one", time.Now()))
	require.NoError(t, s.StartSession(ctx, "two", time.Now()))
	id, err := s.ActiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", id)
}
