package constants

const (
	// DbField gin 上下文中数据库句柄的键
	DbField = "db"

	// WebhookSecretHeader 提供商回调携带共享密钥的请求头
	WebhookSecretHeader = "X-Webhook-Secret"
)
