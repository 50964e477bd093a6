// Package cache implements the read-through cache fronting the engine's
// expensive lookups. It follows the cache-aside pattern: callers ask for
// a key, and on a miss the provided compute function runs and its result
// is stored under a TTL.
//
// Entries may additionally be registered under a subject tag so that a
// state transition (logout, deactivation, role change) can evict every
// entry it invalidates in one call. The cache itself enforces nothing
// beyond TTL; owners of state transitions are responsible for eviction.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when the cache store cannot be reached
// within the operation timeout.
var ErrUnavailable = errors.New("cache unavailable")

const (
	defaultOpTimeout    = 2 * time.Second
	defaultRetryBackoff = 50 * time.Millisecond

	// Tag sets outlive their members so eviction can always find them.
	tagSetTTL = 24 * time.Hour
)

// evictTagScript removes every member of a tag set and the set itself in
// one atomic step, so a concurrent GetOrSet cannot observe a half-evicted
// subject.
const evictTagScript = `
local keys = redis.call("SMEMBERS", KEYS[1])
for i = 1, #keys do
  redis.call("DEL", keys[i])
end
redis.call("DEL", KEYS[1])
return #keys
`

var evictTagLua = redis.NewScript(evictTagScript)

// Cache is a Redis-backed cache-aside client. All operations carry a
// per-call timeout; reads retry once on timeout, writes never do.
type Cache struct {
	redis        redis.UniversalClient
	opTimeout    time.Duration
	retryBackoff time.Duration
}

// New returns a Cache over the given Redis client. opTimeout bounds every
// individual cache call; zero selects a 2s default.
func New(client redis.UniversalClient, opTimeout time.Duration) *Cache {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Cache{
		redis:        client,
		opTimeout:    opTimeout,
		retryBackoff: defaultRetryBackoff,
	}
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// get reads a raw entry. A miss is (nil, false, nil). Timeouts are
// retried once with a short backoff; verification results are never
// stale-served from a failed read.
func (c *Cache) get(ctx context.Context, key string) ([]byte, bool, error) {
	read := func() ([]byte, bool, error) {
		opCtx, cancel := c.withTimeout(ctx)
		defer cancel()

		data, err := c.redis.Get(opCtx, key).Bytes()
		switch {
		case err == nil:
			return data, true, nil
		case errors.Is(err, redis.Nil):
			return nil, false, nil
		default:
			return nil, false, err
		}
	}

	data, hit, err := read()
	if err == nil {
		return data, hit, nil
	}
	if ctx.Err() != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	time.Sleep(c.retryBackoff)
	data, hit, err = read()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, hit, nil
}

// set stores an entry, optionally registering it under a tag set.
// A set failure is swallowed: the computed value is still valid and the
// entry is simply absent on the next read.
func (c *Cache) set(ctx context.Context, key, tag string, value []byte, ttl time.Duration) {
	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	pipe := c.redis.TxPipeline()
	pipe.Set(opCtx, key, value, ttl)
	if tag != "" {
		pipe.SAdd(opCtx, tag, key)
		pipe.Expire(opCtx, tag, tagSetTTL)
	}
	_, _ = pipe.Exec(opCtx)
}

// GetOrSet returns the entry under key, computing and storing it on a
// miss. compute never runs on a hit; if compute fails nothing is cached
// and the failure propagates unchanged. tag may be empty.
func (c *Cache) GetOrSet(ctx context.Context, key, tag string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	data, hit, err := c.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if hit {
		return data, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, tag, value, ttl)
	return value, nil
}

// Evict removes a single entry. Eviction is a write and is never
// retried; a failure surfaces so the caller can re-read state.
func (c *Cache) Evict(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.redis.Del(opCtx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// EvictTag removes every entry registered under tag, and the tag set
// itself, atomically.
func (c *Cache) EvictTag(ctx context.Context, tag string) error {
	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := evictTagLua.Run(opCtx, c.redis, []string{tag}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetOrSetJSON is GetOrSet for JSON-serializable values.
func GetOrSetJSON[T any](ctx context.Context, c *Cache, key, tag string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	data, err := c.GetOrSet(ctx, key, tag, ttl, func(ctx context.Context) ([]byte, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("decode cache entry %q: %w", key, err)
	}
	return out, nil
}
