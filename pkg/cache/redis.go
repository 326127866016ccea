package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache Redis 后端，值以 JSON 序列化存储
// Get 返回 json.RawMessage，由调用方反序列化为具体类型
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache 创建 Redis 缓存实例并验证连通性
func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            config.Addr,
		Password:        config.Password,
		DB:              config.DB,
		PoolSize:        config.PoolSize,
		MinIdleConns:    config.MinIdleConns,
		DialTimeout:     config.DialTimeout,
		ReadTimeout:     config.ReadTimeout,
		WriteTimeout:    config.WriteTimeout,
		ConnMaxIdleTime: config.IdleTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// Get 读取缓存值
func (rc *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	data, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return json.RawMessage(data), true
}

// Set 写入缓存值
func (rc *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, key, data, expiration).Err()
}

// Delete 删除单个键
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, key).Err()
}

// DeleteMulti 批量删除
func (rc *RedisCache) DeleteMulti(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return rc.client.Del(ctx, keys...).Err()
}

// Exists 检查键是否存在
func (rc *RedisCache) Exists(ctx context.Context, key string) bool {
	n, err := rc.client.Exists(ctx, key).Result()
	return err == nil && n > 0
}

// Close 关闭 Redis 连接
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
