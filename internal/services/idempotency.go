package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	pendingMarker = "pending"

	// cleanupTimeout bounds Complete and Release, which outlive the request.
	cleanupTimeout = 5 * time.Second
)

// IdempotencyStore remembers which Idempotency-Key produced which transaction.
// Records are "<state>|<fingerprint>" where state is pendingMarker or the
// transaction id. A nil store, or one without a Redis client, accepts every key.
type IdempotencyStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{redis: rdb, ttl: ttl}
}

func (s *IdempotencyStore) enabled() bool {
	return s != nil && s.redis != nil
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:transaction:%s", key)
}

func idempotencyRecord(state, fingerprint string) string {
	return state + "|" + fingerprint
}

// requestFingerprint hashes a submitted transaction so a reused key can be
// told apart from a genuine retry.
func requestFingerprint(in TransactionInput) string {
	body, err := json.Marshal(in)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Reserve claims key for a new posting. When the key already completed for
// the same fingerprint it returns the transaction id it produced and
// reserved=false. A key still in flight, or one first used with a different
// request body, yields ErrConflict.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, fingerprint string) (existingID int64, reserved bool, err error) {
	if !s.enabled() || key == "" {
		return 0, true, nil
	}

	ok, err := s.redis.SetNX(ctx, idempotencyKey(key), idempotencyRecord(pendingMarker, fingerprint), s.ttl).Result()
	if err != nil {
		return 0, false, err
	}
	if ok {
		return 0, true, nil
	}

	val, err := s.redis.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return 0, false, fmt.Errorf("idempotency key %q: %w", key, ErrConflict)
	}
	if err != nil {
		return 0, false, err
	}

	state, stored, _ := strings.Cut(val, "|")
	if stored != fingerprint {
		return 0, false, fmt.Errorf("idempotency key %q was used for a different request: %w", key, ErrConflict)
	}
	if state == pendingMarker {
		return 0, false, fmt.Errorf("idempotency key %q is still being processed: %w", key, ErrConflict)
	}

	id, err := strconv.ParseInt(state, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency record %q: %w", key, err)
	}
	return id, false, nil
}

// Complete binds key to the committed transaction id. It runs detached from
// ctx's cancellation so a client that hung up still gets its replay.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint string, transactionID int64) error {
	if !s.enabled() || key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	record := idempotencyRecord(strconv.FormatInt(transactionID, 10), fingerprint)
	return s.redis.Set(ctx, idempotencyKey(key), record, s.ttl).Err()
}

// Release frees a reservation after a failed posting so the client can retry.
// Like Complete, it is not cut short by ctx's cancellation.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if !s.enabled() || key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	return s.redis.Del(ctx, idempotencyKey(key)).Err()
}
