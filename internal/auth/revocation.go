package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers ended sessions until they would have expired anyway
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

const revocationPrefix = "session:revoked:"

// RedisRevocations keeps revoked session ids in Redis with a TTL
type RedisRevocations struct {
	client *redis.Client
}

// NewRedisRevocations connects to the Redis instance at url
func NewRedisRevocations(url string) (*RedisRevocations, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return &RedisRevocations{client: redis.NewClient(opts)}, nil
}

// Ping checks the Redis connection
func (s *RedisRevocations) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisRevocations) Close() error {
	return s.client.Close()
}

func (s *RedisRevocations) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	_, err := retryRedisOperation(ctx, func() (struct{}, error) {
		return struct{}{}, s.client.Set(ctx, revocationPrefix+sessionID, 1, ttl).Err()
	})
	return err
}

func (s *RedisRevocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := retryRedisOperation(ctx, func() (int64, error) {
		return s.client.Exists(ctx, revocationPrefix+sessionID).Result()
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// retryRedisOperation retries a Redis call with exponential backoff so a
// restarting Redis does not fail requests outright.
func retryRedisOperation[T any](ctx context.Context, operation func() (T, error)) (T, error) {
	const maxRetries = 3
	const initialBackoff = 100 * time.Millisecond

	var lastErr error
	var zero T

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := operation()
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	return zero, fmt.Errorf("redis operation failed after %d retries: %w", maxRetries, lastErr)
}

// MemoryRevocations keeps revoked session ids in process memory. Used when
// no Redis is configured and in tests.
type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocations creates an empty in-memory store
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocations) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, until := range s.entries {
		if !now.Before(until) {
			delete(s.entries, id)
		}
	}
	s.entries[sessionID] = now.Add(ttl)
	return nil
}

func (s *MemoryRevocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.entries[sessionID]
	return ok && s.now().Before(until), nil
}
