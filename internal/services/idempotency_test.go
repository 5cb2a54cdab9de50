package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contextAwareHook fails commands whose context is already done, the way the
// go-redis connection pool does. redismock alone never looks at the context.
type contextAwareHook struct{}

func (contextAwareHook) BeforeProcess(ctx context.Context, _ redis.Cmder) (context.Context, error) {
	return ctx, ctx.Err()
}

func (contextAwareHook) AfterProcess(context.Context, redis.Cmder) error { return nil }

func (contextAwareHook) BeforeProcessPipeline(ctx context.Context, _ []redis.Cmder) (context.Context, error) {
	return ctx, ctx.Err()
}

func (contextAwareHook) AfterProcessPipeline(context.Context, []redis.Cmder) error { return nil }

func TestIdempotencyStore_Disabled(t *testing.T) {
	ctx := context.Background()

	for name, store := range map[string]*IdempotencyStore{
		"nil store":  nil,
		"nil client": NewIdempotencyStore(nil, time.Hour),
	} {
		t.Run(name, func(t *testing.T) {
			id, reserved, err := store.Reserve(ctx, "req-1", "fp")
			assert.NoError(t, err)
			assert.True(t, reserved)
			assert.Zero(t, id)
			assert.NoError(t, store.Complete(ctx, "req-1", "fp", 5))
			assert.NoError(t, store.Release(ctx, "req-1"))
		})
	}
}

func TestIdempotencyStore_Reserve(t *testing.T) {
	ctx := context.Background()
	const key = "idempotency:transaction:req-2"

	t.Run("empty key skips redis", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		store := NewIdempotencyStore(rdb, time.Minute)

		_, reserved, err := store.Reserve(ctx, "", "fp")
		assert.NoError(t, err)
		assert.True(t, reserved)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("new key is reserved", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		store := NewIdempotencyStore(rdb, time.Minute)
		rmock.ExpectSetNX(key, "pending|fp", time.Minute).SetVal(true)

		_, reserved, err := store.Reserve(ctx, "req-2", "fp")
		assert.NoError(t, err)
		assert.True(t, reserved)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("completed key with same body replays", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		store := NewIdempotencyStore(rdb, time.Minute)
		rmock.ExpectSetNX(key, "pending|fp", time.Minute).SetVal(false)
		rmock.ExpectGet(key).SetVal("42|fp")

		id, reserved, err := store.Reserve(ctx, "req-2", "fp")
		assert.NoError(t, err)
		assert.False(t, reserved)
		assert.Equal(t, int64(42), id)
	})

	t.Run("completed key with different body conflicts", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		store := NewIdempotencyStore(rdb, time.Minute)
		rmock.ExpectSetNX(key, "pending|other", time.Minute).SetVal(false)
		rmock.ExpectGet(key).SetVal("42|fp")

		id, _, err := store.Reserve(ctx, "req-2", "other")
		assert.ErrorIs(t, err, ErrConflict)
		assert.Zero(t, id)
	})

	t.Run("pending key with different body conflicts", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		store := NewIdempotencyStore(rdb, time.Minute)
		rmock.ExpectSetNX(key, "pending|other", time.Minute).SetVal(false)
		rmock.ExpectGet(key).SetVal("pending|fp")

		_, _, err := store.Reserve(ctx, "req-2", "other")
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "different request")
	})

	t.Run("expired between calls", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		store := NewIdempotencyStore(rdb, time.Minute)
		rmock.ExpectSetNX(key, "pending|fp", time.Minute).SetVal(false)
		rmock.ExpectGet(key).RedisNil()

		_, _, err := store.Reserve(ctx, "req-2", "fp")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("corrupt record", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		store := NewIdempotencyStore(rdb, time.Minute)
		rmock.ExpectSetNX(key, "pending|fp", time.Minute).SetVal(false)
		rmock.ExpectGet(key).SetVal("not-a-number|fp")

		_, _, err := store.Reserve(ctx, "req-2", "fp")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrConflict)
	})
}

func TestIdempotencyStore_CleanupOutlivesRequest(t *testing.T) {
	const key = "idempotency:transaction:req-3"

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("hook rejects a cancelled context", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		rdb.AddHook(contextAwareHook{})
		rmock.ExpectDel(key).SetVal(1)

		assert.ErrorIs(t, rdb.Del(cancelled, key).Err(), context.Canceled)
	})

	t.Run("release", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		rdb.AddHook(contextAwareHook{})
		store := NewIdempotencyStore(rdb, time.Minute)
		rmock.ExpectDel(key).SetVal(1)

		require.NoError(t, store.Release(cancelled, "req-3"))
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("complete", func(t *testing.T) {
		rdb, rmock := redismock.NewClientMock()
		rdb.AddHook(contextAwareHook{})
		store := NewIdempotencyStore(rdb, time.Minute)
		rmock.ExpectSet(key, "7|fp", time.Minute).SetVal("OK")

		require.NoError(t, store.Complete(cancelled, "req-3", "fp", 7))
		assert.NoError(t, rmock.ExpectationsWereMet())
	})
}

func TestRequestFingerprint(t *testing.T) {
	a := acmeInput()
	b := acmeInput()
	assert.Equal(t, requestFingerprint(a), requestFingerprint(b))
	assert.Len(t, requestFingerprint(a), 64)

	b.Payee = "Globex"
	assert.NotEqual(t, requestFingerprint(a), requestFingerprint(b))
}
