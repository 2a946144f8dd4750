package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProgressStore 管理 Redis 中的请求状态记录（幂等控制）
type RedisProgressStore struct {
	rdb *redis.Client
}

const requestPrefix = "progress:request"

// 不同状态的 TTL（可调）
const (
	processedTTL = 7 * 24 * time.Hour
	rejectedTTL  = 3 * 24 * time.Hour
	pendingTTL   = 5 * time.Minute // worker 崩溃后认领自动过期
)

// NewRedisProgressStore 创建 Redis 判重管理器
func NewRedisProgressStore(rdb *redis.Client) *RedisProgressStore {
	return &RedisProgressStore{rdb: rdb}
}

func (r *RedisProgressStore) getKey(id string) string {
	return fmt.Sprintf("%s:%s", requestPrefix, id)
}

func (r *RedisProgressStore) getTTL(status RequestStatus) time.Duration {
	switch status {
	case StatusProcessed:
		return processedTTL
	case StatusRejected:
		return rejectedTTL
	default:
		return pendingTTL
	}
}

// GetStatus 获取请求状态（Unknown / Processed / Rejected / Pending）
func (r *RedisProgressStore) GetStatus(ctx context.Context, id string) (RequestStatus, error) {
	val, err := r.rdb.Get(ctx, r.getKey(id)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return StatusUnknown, nil
	case err != nil:
		return StatusUnknown, fmt.Errorf("redis get error: %w", err)
	case val == int(StatusProcessed):
		return StatusProcessed, nil
	case val == int(StatusRejected):
		return StatusRejected, nil
	case val == int(StatusPending):
		return StatusPending, nil
	default:
		return StatusUnknown, nil // 容错处理
	}
}

// MarkStatus 设置请求状态；StatusUnknown 等价于删除
func (r *RedisProgressStore) MarkStatus(ctx context.Context, id string, status RequestStatus) error {
	if status == StatusUnknown {
		return r.Release(ctx, id)
	}
	return r.rdb.Set(ctx, r.getKey(id), int(status), r.getTTL(status)).Err()
}

// TryClaim 使用 SETNX 认领请求
func (r *RedisProgressStore) TryClaim(ctx context.Context, id string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.getKey(id), int(StatusPending), pendingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx error: %w", err)
	}
	return ok, nil
}

// Release 删除认领，允许请求稍后重试
func (r *RedisProgressStore) Release(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, r.getKey(id)).Err()
}
