// Package cache keeps short-lived request fingerprints used to reject
// duplicate submissions.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meal-planner/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "meal-planner:fingerprint:"

// FingerprintStore remembers fingerprints for a window
type FingerprintStore interface {
	// Seen records key and reports whether it was already recorded within window.
	Seen(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RedisStore fingerprints shared across instances
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Seen uses SETNX so the first writer within the window wins.
func (s *RedisStore) Seen(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, time.Now().UnixNano(), window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record fingerprint: %w", err)
	}
	return !ok, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore process-local fingerprints
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryStore) Seen(ctx context.Context, key string, window time.Duration) (bool, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.entries[key]; ok && now.Sub(last) <= window {
		return true, nil
	}
	s.entries[key] = now
	return false, nil
}

// Sweep drops entries older than maxAge.
func (s *MemoryStore) Sweep(maxAge time.Duration) int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, t := range s.entries {
		if now.Sub(t) > maxAge {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// StartSweeper sweeps every interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(maxAge)
			}
		}
	}()
}
