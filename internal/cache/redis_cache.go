package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

const keyPrefix = "freesms:status:"

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func statusKey(entryID string) string {
	return keyPrefix + entryID
}

func (c *RedisCache) StoreStatus(ctx context.Context, st model.Status) error {
	if st.EntryID == "" {
		return errors.New("status without entry id")
	}

	b, err := json.Marshal(st)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, statusKey(st.EntryID), b, c.ttl).Err()
}

func (c *RedisCache) LoadStatus(ctx context.Context, entryID string) (model.Status, bool, error) {
	raw, err := c.rdb.Get(ctx, statusKey(entryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Status{}, false, nil
	}
	if err != nil {
		return model.Status{}, false, err
	}

	var st model.Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.Status{}, false, err
	}
	return st, true, nil
}

func (c *RedisCache) DeleteStatus(ctx context.Context, entryID string) error {
	return c.rdb.Del(ctx, statusKey(entryID)).Err()
}
