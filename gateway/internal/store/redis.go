// Package store is the gateway's handle on Redis, the external store that
// holds dedup markers and the comment job queue.
//
// Redis key structure:
//
//	ig:comment_seen:{comment_id} - dedup marker, value "1", expires after 7d
//	ig:comment_jobs              - list of JSON job records, LPUSHed
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// markerValue is the sentinel stored under a dedup key.
const markerValue = "1"

// claimAndPushScript sets the marker only if absent and, in the same atomic
// step, pushes the job. Returns 1 when admitted, 0 for a duplicate.
var claimAndPushScript = redis.NewScript(`
	local claimed = redis.call('SET', KEYS[1], ARGV[1], 'NX', 'EX', ARGV[2])
	if not claimed then
		return 0
	end
	redis.call('LPUSH', KEYS[2], ARGV[3])
	return 1
`)

// Redis wraps a go-redis client with the primitives the gateway needs.
type Redis struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedis connects to redisURL and verifies the connection with PING.
// timeout bounds every later store call; zero disables the bound.
func NewRedis(redisURL string, timeout time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Redis{client: client, timeout: timeout}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, timeout time.Duration) *Redis {
	return &Redis{client: client, timeout: timeout}
}

// Client exposes the underlying connection for components sharing it.
func (r *Redis) Client() *redis.Client {
	return r.client
}

func (r *Redis) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Claim sets key with ttl unless it already exists. It reports whether this
// call created the key.
func (r *Redis) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ok, err := r.client.SetNX(ctx, key, markerValue, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes a claimed key so a later delivery can claim it again.
func (r *Redis) Release(ctx context.Context, key string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// Push prepends payload to the list at queue.
func (r *Redis) Push(ctx context.Context, queue string, payload []byte) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if err := r.client.LPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", queue, err)
	}
	return nil
}

// ClaimAndPush claims key and pushes payload onto queue in one server-side
// script, so a marker is never left without its job.
func (r *Redis) ClaimAndPush(ctx context.Context, key string, ttl time.Duration, queue string, payload []byte) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	result, err := claimAndPushScript.Run(ctx, r.client, []string{key, queue}, markerValue, seconds, payload).Int()
	if err != nil {
		return false, fmt.Errorf("claim and push %s: %w", key, err)
	}
	return result == 1, nil
}

// QueueLength returns the number of jobs waiting in queue.
func (r *Redis) QueueLength(ctx context.Context, queue string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.client.LLen(ctx, queue).Result()
	if err != nil {
		return 0, fmt.Errorf("length of %s: %w", queue, err)
	}
	return n, nil
}

// Peek returns up to n jobs from the consuming end of queue without removing
// them, oldest first.
func (r *Redis) Peek(ctx context.Context, queue string, n int64) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	items, err := r.client.LRange(ctx, queue, -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("peek %s: %w", queue, err)
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

// MarkerTTL returns the remaining lifetime of key, or zero when it does not
// exist.
func (r *Redis) MarkerTTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl of %s: %w", key, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
