package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recipingAds/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type ProfileSource interface {
	Lookup(ctx context.Context, userID uint) (domain.UserProfile, bool, error)
}

type profileEntry struct {
	Found   bool               `json:"found"`
	Profile domain.UserProfile `json:"profile"`
}

// ProfileCache fronts a ProfileSource with redis. Unknown users are cached
// too, for a shorter TTL. Concurrent misses for one user share a single
// source call. A redis outage degrades to reading the source directly.
type ProfileCache struct {
	client      *redis.Client
	source      ProfileSource
	ttl         time.Duration
	negativeTTL time.Duration
	group       singleflight.Group
	log         *zap.SugaredLogger
}

func NewProfileCache(client *redis.Client, source ProfileSource, ttl time.Duration, log *zap.SugaredLogger) *ProfileCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ProfileCache{
		client:      client,
		source:      source,
		ttl:         ttl,
		negativeTTL: ttl / 10,
		log:         log,
	}
}

func profileKey(userID uint) string {
	// key format: "profile:user:{user_id}"
	return fmt.Sprintf("profile:user:%d", userID)
}

func (c *ProfileCache) Lookup(ctx context.Context, userID uint) (domain.UserProfile, bool, error) {
	key := profileKey(userID)

	if entry, ok := c.get(ctx, key); ok {
		return entry.Profile, entry.Found, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		p, found, err := c.source.Lookup(ctx, userID)
		if err != nil {
			return nil, err
		}
		entry := profileEntry{Found: found, Profile: p}
		c.set(ctx, key, entry)
		return entry, nil
	})
	if err != nil {
		return domain.UserProfile{}, false, err
	}

	entry := v.(profileEntry)
	return entry.Profile, entry.Found, nil
}

func (c *ProfileCache) get(ctx context.Context, key string) (profileEntry, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnw("profile cache read failed", "key", key, "error", err)
		}
		return profileEntry{}, false
	}

	var entry profileEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		c.log.Warnw("profile cache entry unreadable", "key", key, "error", err)
		return profileEntry{}, false
	}
	return entry, true
}

func (c *ProfileCache) set(ctx context.Context, key string, entry profileEntry) {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		c.log.Warnw("profile cache encode failed", "key", key, "error", err)
		return
	}

	ttl := c.ttl
	if !entry.Found {
		ttl = c.negativeTTL
	}
	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.log.Warnw("profile cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops the cached profile so the next lookup hits the source.
func (c *ProfileCache) Invalidate(ctx context.Context, userID uint) error {
	err := c.client.Del(ctx, profileKey(userID)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to invalidate profile: %w", err)
	}
	return nil
}
