// Package cache fronts the read-only catalogs with Redis. Every Redis failure
// falls back to the wrapped repository; the cache never decides an outcome.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"spareflow/internal/domain/catalog"
	"spareflow/pkg/logger"
)

// DefaultTTL is used when the configured TTL is not positive.
const DefaultTTL = 10 * time.Minute

const keyPrefix = "spareflow:"

// Client is the subset of the go-redis client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// LookupCache is a read-through cache for spares and technicians.
type LookupCache struct {
	client      Client
	spares      catalog.SpareRepository
	technicians catalog.TechnicianRepository
	ttl         time.Duration
}

var (
	_ catalog.SpareRepository      = (*LookupCache)(nil)
	_ catalog.TechnicianRepository = (*LookupCache)(nil)
)

// NewLookupCache wraps the catalog repositories.
func NewLookupCache(client Client, spares catalog.SpareRepository, technicians catalog.TechnicianRepository, ttl time.Duration) *LookupCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LookupCache{client: client, spares: spares, technicians: technicians, ttl: ttl}
}

// NewRedisClient opens a client and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func spareKey(spareID int64) string {
	return fmt.Sprintf("%sspare:%d", keyPrefix, spareID)
}

func technicianKey(technicianID int64) string {
	return fmt.Sprintf("%stechnician:%d", keyPrefix, technicianID)
}

// GetSpares answers from Redis where it can and loads the rest.
func (c *LookupCache) GetSpares(ctx context.Context, ids []int64) ([]catalog.Spare, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, spareID := range ids {
		keys[i] = spareKey(spareID)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warn(ctx, "lookup cache read failed", "kind", "spare", "error", err)
		return c.spares.GetSpares(ctx, ids)
	}

	out := make([]catalog.Spare, 0, len(ids))
	var missing []int64
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var s catalog.Spare
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		out = append(out, s)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := c.spares.GetSpares(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, s := range loaded {
		c.store(ctx, spareKey(s.ID), s)
	}
	return append(out, loaded...), nil
}

// GetTechnician caches found technicians only; NotFound always hits the
// repository.
func (c *LookupCache) GetTechnician(ctx context.Context, technicianID int64) (catalog.Technician, error) {
	key := technicianKey(technicianID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var tech catalog.Technician
		if err := json.Unmarshal(raw, &tech); err == nil {
			return tech, nil
		}
	case !errors.Is(err, redis.Nil):
		logger.Warn(ctx, "lookup cache read failed", "kind", "technician", "error", err)
	}

	tech, err := c.technicians.GetTechnician(ctx, technicianID)
	if err != nil {
		return catalog.Technician{}, err
	}
	c.store(ctx, key, tech)
	return tech, nil
}

func (c *LookupCache) store(ctx context.Context, key string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "lookup cache write failed", "key", key, "error", err)
	}
}
