package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boostclics/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const taskCachePrefix = "tasks:active:"

// TaskCache stores per-session task lists in Redis as msgpack blobs.
type TaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTaskCache(rdb *redis.Client, ttl time.Duration) *TaskCache {
	return &TaskCache{rdb: rdb, ttl: ttl}
}

func (c *TaskCache) Get(ctx context.Context, key string) ([]domain.Task, bool, error) {
	b, err := c.rdb.Get(ctx, taskCachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var tasks []domain.Task
	if err := msgpack.Unmarshal(b, &tasks); err != nil {
		return nil, false, fmt.Errorf("decode cached tasks: %w", err)
	}
	return tasks, true, nil
}

func (c *TaskCache) Set(ctx context.Context, key string, tasks []domain.Task) error {
	if c.ttl <= 0 {
		return nil
	}
	b, err := msgpack.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	return c.rdb.Set(ctx, taskCachePrefix+key, b, c.ttl).Err()
}
