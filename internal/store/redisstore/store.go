package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Store struct {
	rdb *redis.Client
	log *zap.Logger
}

func New(addr, password string, db int, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	return &Store{rdb: rdb, log: log}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// TranslationCache stores translated replies so repeated answers skip the
// translation backend.
type TranslationCache struct {
	store *Store
	ttl   time.Duration
}

func (s *Store) TranslationCache(ttl time.Duration) *TranslationCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TranslationCache{store: s, ttl: ttl}
}

func (c *TranslationCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.store.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.store.log.Warn("translation cache get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return v, true
}

func (c *TranslationCache) Set(ctx context.Context, key, value string) {
	if err := c.store.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.store.log.Warn("translation cache set failed", zap.String("key", key), zap.Error(err))
	}
}
