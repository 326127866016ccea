package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type localEntry struct {
	value     interface{}
	expiresAt time.Time
}

func (e localEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LocalCache 进程内缓存，LRU 容量上限 + 每条目 TTL
// 读取时惰性剔除过期条目，后台 janitor 周期性清理
type LocalCache struct {
	config LocalConfig
	lru    *lru.Cache[string, localEntry]

	mu     sync.Mutex // 仅保护 janitor 的启停
	stopCh chan struct{}
}

// NewLocalCache 创建本地缓存实例
func NewLocalCache(config LocalConfig) *LocalCache {
	if config.MaxSize <= 0 {
		config.MaxSize = 1000
	}
	if config.DefaultExpiration <= 0 {
		config.DefaultExpiration = 5 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 10 * time.Minute
	}

	// MaxSize > 0 时 lru.New 不会返回错误
	c, _ := lru.New[string, localEntry](config.MaxSize)

	lc := &LocalCache{
		config: config,
		lru:    c,
		stopCh: make(chan struct{}),
	}
	go lc.janitor()
	return lc
}

func (lc *LocalCache) janitor() {
	ticker := time.NewTicker(lc.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			for _, key := range lc.lru.Keys() {
				if entry, ok := lc.lru.Peek(key); ok && entry.expired(now) {
					lc.lru.Remove(key)
				}
			}
		case <-lc.stopCh:
			return
		}
	}
}

// Get 读取缓存值，过期条目视为未命中并剔除
func (lc *LocalCache) Get(_ context.Context, key string) (interface{}, bool) {
	entry, ok := lc.lru.Get(key)
	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		lc.lru.Remove(key)
		return nil, false
	}
	return entry.value, true
}

// Set 写入缓存值，expiration <= 0 时使用默认过期时间
func (lc *LocalCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration <= 0 {
		expiration = lc.config.DefaultExpiration
	}
	lc.lru.Add(key, localEntry{
		value:     value,
		expiresAt: time.Now().Add(expiration),
	})
	return nil
}

// Delete 删除单个键
func (lc *LocalCache) Delete(_ context.Context, key string) error {
	lc.lru.Remove(key)
	return nil
}

// DeleteMulti 批量删除
func (lc *LocalCache) DeleteMulti(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		lc.lru.Remove(key)
	}
	return nil
}

// Exists 检查键是否存在且未过期
func (lc *LocalCache) Exists(ctx context.Context, key string) bool {
	_, ok := lc.Get(ctx, key)
	return ok
}

// Close 停止后台清理并清空缓存
func (lc *LocalCache) Close() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	select {
	case <-lc.stopCh:
	default:
		close(lc.stopCh)
	}
	lc.lru.Purge()
	return nil
}

// Len 当前条目数（测试用）
func (lc *LocalCache) Len() int {
	return lc.lru.Len()
}
