package runlock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/volleyball-league/internal/platform/logging"
	"github.com/riskibarqy/volleyball-league/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ usecase.RunLocker = (*Local)(nil)
	_ usecase.RunLocker = (*Redis)(nil)
)

func TestLocal_TryLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker := NewLocal()

	unlock, acquired, err := locker.TryLock(ctx, "import:current")
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = locker.TryLock(ctx, "import:current")
	require.NoError(t, err)
	assert.False(t, acquired)

	other, acquired, err := locker.TryLock(ctx, "import:historical:mens-division-1")
	require.NoError(t, err)
	assert.True(t, acquired)
	other()

	unlock()
	unlock()

	again, acquired, err := locker.TryLock(ctx, "import:current")
	require.NoError(t, err)
	assert.True(t, acquired)
	again()
}

func TestRedis_TryLock(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	locker := NewRedis(client, RedisConfig{KeyPrefix: "test:lock:" + uuid.NewString() + ":", TTL: time.Minute}, logging.NewNop())

	unlock, acquired, err := locker.TryLock(ctx, "import:current")
	require.NoError(t, err)
	require.True(t, acquired)

	_, acquired, err = locker.TryLock(ctx, "import:current")
	require.NoError(t, err)
	assert.False(t, acquired)

	unlock()

	unlock, acquired, err = locker.TryLock(ctx, "import:current")
	require.NoError(t, err)
	assert.True(t, acquired)
	unlock()
}
