// Package cache provides a Redis-backed read cache for resolved records.
// Records never expire from the registry itself; the TTL only bounds staleness
// between the cache and the backing store, and every successful mutation of a
// name invalidates its entry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"namereg/internal/registry/models"
	"namereg/pkg/platform/sentinel"
)

const keyPrefix = "namereg:record:"

// Resolve caches resolved records in Redis.
type Resolve struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResolve constructs a resolve cache with the given entry TTL.
func NewResolve(client *redis.Client, ttl time.Duration) *Resolve {
	return &Resolve{client: client, ttl: ttl}
}

// Save stores a resolved record. A nil record is a no-op.
func (c *Resolve) Save(ctx context.Context, record *models.Record) error {
	if record == nil {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal cached record: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+record.Name, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache record %q: %w", record.Name, err)
	}
	return nil
}

// Find returns the cached record for a name, or sentinel.ErrNotFound on a miss.
func (c *Resolve) Find(ctx context.Context, name string) (*models.Record, error) {
	payload, err := c.client.Get(ctx, keyPrefix+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("read cached record %q: %w", name, err)
	}
	var record models.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal cached record %q: %w", name, err)
	}
	return &record, nil
}

// Invalidate drops the cached entry for a name after a mutation.
func (c *Resolve) Invalidate(ctx context.Context, name string) error {
	if err := c.client.Del(ctx, keyPrefix+name).Err(); err != nil {
		return fmt.Errorf("invalidate cached record %q: %w", name, err)
	}
	return nil
}
