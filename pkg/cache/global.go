package cache

import (
	"sync"
	"time"
)

var (
	globalLoader *Loader
	globalOnce   sync.Once
	globalMu     sync.RWMutex
)

// InitGlobalCache 初始化全局缓存实例
func InitGlobalCache(config Config) error {
	var err error
	globalOnce.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()

		var c Cache
		c, err = NewCache(config)
		if err != nil {
			return
		}
		globalLoader = NewLoader(c, 3*time.Second)
	})
	return err
}

// GetGlobalLoader 获取全局 Loader
// 未初始化时退回到默认本地缓存，保证调用方总能拿到可用实例
func GetGlobalLoader() *Loader {
	globalMu.RLock()
	if globalLoader != nil {
		globalMu.RUnlock()
		return globalLoader
	}
	globalMu.RUnlock()

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLoader == nil {
		globalLoader = NewLoader(NewLocalCache(LocalConfig{
			MaxSize:           1000,
			DefaultExpiration: 5 * time.Minute,
			CleanupInterval:   10 * time.Minute,
		}), 3*time.Second)
	}
	return globalLoader
}

// SetGlobalLoader 设置全局 Loader（主要用于测试）
func SetGlobalLoader(l *Loader) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLoader = l
}

// CloseGlobalCache 关闭全局缓存
func CloseGlobalCache() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLoader != nil {
		err := globalLoader.Cache().Close()
		globalLoader = nil
		return err
	}
	return nil
}
