package staticdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"campus-shuttle/internal/transit"
)

const cacheKey = "campus-shuttle:static"

// Store holds the cached static data snapshot.
type Store interface {
	Get(ctx context.Context) (*transit.StaticData, bool)
	Set(ctx context.Context, d *transit.StaticData)
	Invalidate(ctx context.Context)
}

// MemoryStore keeps the snapshot in process and expires it after ttl.
type MemoryStore struct {
	lru *expirable.LRU[string, *transit.StaticData]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: expirable.NewLRU[string, *transit.StaticData](1, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context) (*transit.StaticData, bool) {
	return s.lru.Get(cacheKey)
}

func (s *MemoryStore) Set(_ context.Context, d *transit.StaticData) { s.lru.Add(cacheKey, d) }

func (s *MemoryStore) Invalidate(_ context.Context) { s.lru.Remove(cacheKey) }

// RedisStore shares the snapshot between instances through Redis as JSON.
type RedisStore struct {
	cache *cache.Cache[string]
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	rs := redisstore.NewRedis(client, store.WithExpiration(ttl))
	return &RedisStore{cache: cache.New[string](rs)}
}

func (s *RedisStore) Get(ctx context.Context) (*transit.StaticData, bool) {
	raw, err := s.cache.Get(ctx, cacheKey)
	if err != nil || raw == "" {
		return nil, false
	}
	var d transit.StaticData
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		log.Warn().Err(err).Msg("discarding undecodable cached static data")
		return nil, false
	}
	return &d, true
}

func (s *RedisStore) Set(ctx context.Context, d *transit.StaticData) {
	b, err := json.Marshal(d)
	if err != nil {
		log.Error().Err(err).Msg("encode static data for cache")
		return
	}
	if err := s.cache.Set(ctx, cacheKey, string(b)); err != nil {
		log.Warn().Err(err).Msg("store static data in redis")
	}
}

func (s *RedisStore) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		log.Warn().Err(err).Msg("invalidate cached static data")
	}
}

// Cached serves Load from store until the entry expires, then reloads from the wrapped provider.
type Cached struct {
	Provider Provider
	Store    Store
	// OnLoad, when set, observes every Load; hit is true when served from Store.
	OnLoad func(hit bool, err error)
}

func (c *Cached) Load(ctx context.Context) (*transit.StaticData, error) {
	if d, ok := c.Store.Get(ctx); ok {
		c.report(true, nil)
		return d, nil
	}
	d, err := c.Provider.Load(ctx)
	c.report(false, err)
	if err != nil {
		return nil, fmt.Errorf("load static data: %w", err)
	}
	c.Store.Set(ctx, d)
	return d, nil
}

func (c *Cached) Invalidate(ctx context.Context) { c.Store.Invalidate(ctx) }

func (c *Cached) report(hit bool, err error) {
	if c.OnLoad != nil {
		c.OnLoad(hit, err)
	}
}
