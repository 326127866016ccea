package config

import (
	"log"
	"os"
	"time"

	"github.com/sddhantjaiii/calling-agent-backend/pkg/cache"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/logger"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/utils"
)

// Config 系统全局配置
type Config struct {
	ServerName string `env:"SERVER_NAME"`
	Addr       string `env:"ADDR"`
	Mode       string `env:"MODE"`
	APIPrefix  string `env:"API_PREFIX"`

	DBDriver string `env:"DB_DRIVER"`
	DSN      string `env:"DSN"`

	Log logger.LogConfig

	// 回调鉴权密钥，提供商在 X-Webhook-Secret 头中携带
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	// 通话提供商 API 配置
	ProviderBaseURL string        `env:"PROVIDER_BASE_URL"`
	ProviderAPIKey  string        `env:"PROVIDER_API_KEY"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT"`

	// 摄取流水线单次处理超时
	IngestTimeout time.Duration `env:"INGEST_TIMEOUT"`

	// 汇总对账任务的 cron 表达式，空串表示禁用
	RollupSchedule string `env:"ROLLUP_SCHEDULE"`
	// 对账回溯的时段数
	RollupLookback int `env:"ROLLUP_LOOKBACK"`

	MonitorPrefix string `env:"MONITOR_PREFIX"`

	// 缓存配置
	Cache cache.Config
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件（如果不存在也不报错，使用默认值）
	env := os.Getenv("APP_ENV")
	err := utils.LoadEnv(env)
	if err != nil {
		// .env文件不存在时只记录日志，不影响启动
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	// 2. 加载全局配置（所有配置都有默认值，确保无.env文件也能启动）
	GlobalConfig = &Config{
		ServerName: getStringOrDefault("SERVER_NAME", "calling-agent-backend"),
		Addr:       getStringOrDefault("ADDR", ":7080"),
		Mode:       getStringOrDefault("MODE", "development"),
		APIPrefix:  getStringOrDefault("API_PREFIX", "/api"),
		DBDriver:   getStringOrDefault("DB_DRIVER", "sqlite"),
		DSN:        getStringOrDefault("DSN", "./calling.db"),
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		WebhookSecret:   getStringOrDefault("WEBHOOK_SECRET", ""),
		ProviderBaseURL: getStringOrDefault("PROVIDER_BASE_URL", "https://api.elevenlabs.io"),
		ProviderAPIKey:  getStringOrDefault("PROVIDER_API_KEY", ""),
		ProviderTimeout: parseDuration(utils.GetEnv("PROVIDER_TIMEOUT"), 15*time.Second),
		IngestTimeout:   parseDuration(utils.GetEnv("INGEST_TIMEOUT"), 10*time.Second),
		RollupSchedule:  getStringOrDefault("ROLLUP_SCHEDULE", "*/15 * * * *"),
		RollupLookback:  getIntOrDefault("ROLLUP_LOOKBACK", 2),
		MonitorPrefix:   getStringOrDefault("MONITOR_PREFIX", "/metrics"),
		Cache:           loadCacheConfig(),
	}
	return nil
}

// getStringOrDefault 获取环境变量值，如果为空则返回默认值
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault 获取布尔环境变量值，如果为空则返回默认值
func getBoolOrDefault(key string, defaultValue bool) bool {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault 获取整数环境变量值，如果为空则返回默认值
func getIntOrDefault(key string, defaultValue int) int {
	value := utils.GetIntEnv(key)
	if value == 0 {
		return defaultValue
	}
	return int(value)
}

// parseDuration 解析时间字符串，失败时返回默认值
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// loadCacheConfig 加载缓存配置，设置所有默认值
func loadCacheConfig() cache.Config {
	cacheType := utils.GetEnv("CACHE_TYPE")
	if cacheType == "" {
		cacheType = "local"
	}

	redisAddr := utils.GetEnv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisPoolSize := int(utils.GetIntEnv("REDIS_POOL_SIZE"))
	if redisPoolSize == 0 {
		redisPoolSize = 10
	}

	redisMinIdleConns := int(utils.GetIntEnv("REDIS_MIN_IDLE_CONNS"))
	if redisMinIdleConns == 0 {
		redisMinIdleConns = 5
	}

	localMaxSize := int(utils.GetIntEnv("LOCAL_CACHE_MAX_SIZE"))
	if localMaxSize == 0 {
		localMaxSize = 1000
	}

	return cache.Config{
		Type: cacheType,
		Redis: cache.RedisConfig{
			Addr:         redisAddr,
			Password:     utils.GetEnv("REDIS_PASSWORD"),
			DB:           int(utils.GetIntEnv("REDIS_DB")),
			PoolSize:     redisPoolSize,
			MinIdleConns: redisMinIdleConns,
			DialTimeout:  parseDuration(utils.GetEnv("REDIS_DIAL_TIMEOUT"), 5*time.Second),
			ReadTimeout:  parseDuration(utils.GetEnv("REDIS_READ_TIMEOUT"), 3*time.Second),
			WriteTimeout: parseDuration(utils.GetEnv("REDIS_WRITE_TIMEOUT"), 3*time.Second),
			IdleTimeout:  parseDuration(utils.GetEnv("REDIS_IDLE_TIMEOUT"), 5*time.Minute),
		},
		Local: cache.LocalConfig{
			MaxSize:           localMaxSize,
			DefaultExpiration: parseDuration(utils.GetEnv("LOCAL_CACHE_DEFAULT_EXPIRATION"), 5*time.Minute),
			CleanupInterval:   parseDuration(utils.GetEnv("LOCAL_CACHE_CLEANUP_INTERVAL"), 10*time.Minute),
		},
	}
}
