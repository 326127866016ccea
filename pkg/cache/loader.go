package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader 在缓存未命中时合并并发的重算请求
// 同一键的并发 miss 只执行一次 compute，其余请求等待在途结果；
// 等待超过 waitTimeout 的请求退回到自己的重算，避免被慢请求拖死
type Loader struct {
	cache       Cache
	group       singleflight.Group
	waitTimeout time.Duration
}

// NewLoader 创建 Loader，waitTimeout <= 0 时默认 3 秒
func NewLoader(c Cache, waitTimeout time.Duration) *Loader {
	if waitTimeout <= 0 {
		waitTimeout = 3 * time.Second
	}
	return &Loader{cache: c, waitTimeout: waitTimeout}
}

// Cache 返回底层缓存实例
func (l *Loader) Cache() Cache {
	return l.cache
}

// GetOrCompute 读取缓存，未命中时计算并回填
// 返回值 cached 表示结果来自缓存命中
func (l *Loader) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (interface{}, error)) (value interface{}, cached bool, err error) {
	if v, ok := l.cache.Get(ctx, key); ok {
		return v, true, nil
	}

	ch := l.group.DoChan(key, func() (interface{}, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		_ = l.cache.Set(ctx, key, v, ttl)
		return v, nil
	})

	timer := time.NewTimer(l.waitTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-timer.C:
		// 在途计算过慢，退回到自己的重算（受调用方 ctx 限时约束）
		v, err := compute(ctx)
		if err != nil {
			return nil, false, err
		}
		_ = l.cache.Set(ctx, key, v, ttl)
		return v, false, nil
	}
}

// Invalidate 精确失效若干键，从不做全量清空
func (l *Loader) Invalidate(ctx context.Context, keys ...string) error {
	return l.cache.DeleteMulti(ctx, keys...)
}
