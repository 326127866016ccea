package cache

import (
	"context"
	"fmt"
	"time"
)

// Config 缓存配置
type Config struct {
	Type  string // local 或 redis
	Redis RedisConfig
	Local LocalConfig
}

// RedisConfig Redis 后端配置
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LocalConfig 本地缓存配置
type LocalConfig struct {
	MaxSize           int           // LRU 条目上限
	DefaultExpiration time.Duration // 未指定 TTL 时的默认过期时间
	CleanupInterval   time.Duration // 过期条目清理周期
}

// Cache 统一缓存接口，本地与 Redis 后端均实现
// 实现负责自身的并发安全，调用方无需额外加锁
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteMulti(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) bool
	Close() error
}

// NewCache 根据配置创建缓存实例
func NewCache(config Config) (Cache, error) {
	switch config.Type {
	case "", "local":
		return NewLocalCache(config.Local), nil
	case "redis":
		return NewRedisCache(config.Redis)
	default:
		return nil, fmt.Errorf("unknown cache type: %s", config.Type)
	}
}
