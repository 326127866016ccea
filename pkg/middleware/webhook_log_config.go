package middleware

import "strings"

// WebhookLogConfig 回调投递日志配置
type WebhookLogConfig struct {
	// 是否启用投递日志
	Enabled bool
	// 需要留痕的回调路由前缀
	WebhookPathPrefixes []string
}

// DefaultWebhookLogConfig 默认配置
func DefaultWebhookLogConfig() *WebhookLogConfig {
	return &WebhookLogConfig{
		Enabled: true,
		WebhookPathPrefixes: []string{
			"/api/webhooks/",
		},
	}
}

// ShouldLogDelivery 判断是否应该记录此次投递
func (config *WebhookLogConfig) ShouldLogDelivery(method, path string) bool {
	if !config.Enabled {
		return false
	}

	// 回调只有写操作
	if method != "POST" {
		return false
	}

	for _, prefix := range config.WebhookPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
