package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NotificationDeduper claims a key for ttl. Claim returns false when the key is already held.
type NotificationDeduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

func dedupeKey(check NotificationCheck, studentID uint, target string) string {
	return fmt.Sprintf("notify:%s:%d:%s", check, studentID, target)
}

type redisDeduper struct {
	client   *redis.Client
	fallback *memoryDeduper
	logger   zerolog.Logger
}

// NewRedisDeduper stores claims with SETNX. Redis errors fall back to an in-process set.
func NewRedisDeduper(client *redis.Client, logger zerolog.Logger) NotificationDeduper {
	return &redisDeduper{
		client:   client,
		fallback: newMemoryDeduper(time.Now),
		logger:   logger.With().Str("component", "notification_dedupe").Logger(),
	}
}

func (d *redisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("redis dedupe unavailable, using in-process set")
		return d.fallback.Claim(ctx, key, ttl)
	}
	return ok, nil
}

type memoryDeduper struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDeduper keeps claims in process memory.
func NewMemoryDeduper() NotificationDeduper {
	return newMemoryDeduper(time.Now)
}

func newMemoryDeduper(now func() time.Time) *memoryDeduper {
	return &memoryDeduper{entries: make(map[string]time.Time), now: now}
}

func (d *memoryDeduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for existing, expiry := range d.entries {
		if !now.Before(expiry) {
			delete(d.entries, existing)
		}
	}

	if _, held := d.entries[key]; held {
		return false, nil
	}
	d.entries[key] = now.Add(ttl)
	return true, nil
}
