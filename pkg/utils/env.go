package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv 根据运行环境加载对应的 .env 文件
// 查找顺序: .env.<env>.local -> .env.<env> -> .env.local -> .env
func LoadEnv(env string) error {
	candidates := []string{".env"}
	if env != "" {
		candidates = []string{
			".env." + env + ".local",
			".env." + env,
			".env.local",
			".env",
		}
	}

	var lastErr error
	loaded := false
	for _, f := range candidates {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			lastErr = err
			continue
		}
		loaded = true
	}
	if !loaded && lastErr == nil {
		return os.ErrNotExist
	}
	return lastErr
}

// GetEnv 获取环境变量（去除首尾空白）
func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetIntEnv 获取整型环境变量，解析失败返回 0
func GetIntEnv(key string) int64 {
	v := GetEnv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// GetBoolEnv 获取布尔型环境变量
func GetBoolEnv(key string) bool {
	v := strings.ToLower(GetEnv(key))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
