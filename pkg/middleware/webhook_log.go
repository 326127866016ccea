package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sddhantjaiii/calling-agent-backend/pkg/constants"
)

// 全局配置实例
var webhookLogConfig = DefaultWebhookLogConfig()

// WebhookLogMiddleware 记录回调投递日志
// 提供商至少一次投递，留存每次投递的结果便于排查丢失和重投
func WebhookLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		db := c.MustGet(constants.DbField).(*gorm.DB)

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		if !webhookLogConfig.ShouldLogDelivery(method, path) {
			c.Next()
			return
		}

		// 每次投递分配独立标识，重投会得到不同的 deliveryId
		deliveryID := uuid.NewString()
		c.Set(DeliveryIDField, deliveryID)

		// 先执行后续处理，确保处理结果已经产生
		c.Next()

		status := c.Writer.Status()
		ipAddress := c.ClientIP()
		userAgent := c.GetHeader("User-Agent")
		latencyMs := time.Since(start).Milliseconds()

		// 处理器通过上下文回传业务标识
		conversationID := c.GetString(ConversationIDField)
		deliveryState := c.GetString(DeliveryStateField)

		// 记录投递日志（异步执行，避免影响响应时间）
		go func() {
			err := CreateWebhookDeliveryLog(db, deliveryID, path, conversationID, deliveryState, status, latencyMs, ipAddress, userAgent)
			if err != nil {
				// 记录错误但不影响主流程
				log.Printf("Failed to record webhook delivery log: %v", err)
			}
		}()
	}
}

// 处理器回传投递元信息的上下文键
const (
	ConversationIDField = "webhook_conversation_id"
	DeliveryStateField  = "webhook_delivery_state"
	DeliveryIDField     = "webhook_delivery_id"
)

// WebhookDeliveryLog 记录一次回调投递
type WebhookDeliveryLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DeliveryID     string    `gorm:"uniqueIndex;not null" json:"delivery_id"` // 本次投递的唯一标识
	Path           string    `gorm:"not null" json:"path"`                // 投递的路由
	ConversationID string    `gorm:"index" json:"conversation_id"`       // 关联的外部会话标识
	DeliveryState  string    `json:"delivery_state"`                     // 处理终态
	StatusCode     int       `gorm:"not null" json:"status_code"`        // 响应状态码
	LatencyMs      int64     `gorm:"not null" json:"latency_ms"`         // 处理耗时
	IPAddress      string    `gorm:"not null" json:"ip_address"`         // 投递来源 IP
	UserAgent      string    `json:"user_agent"`                         // 投递方标识
	CreatedAt      time.Time `json:"created_at"`                         // 投递时间
}

// TableName 指定表名
func (WebhookDeliveryLog) TableName() string {
	return "webhook_delivery_logs"
}

// CreateWebhookDeliveryLog 创建投递日志
func CreateWebhookDeliveryLog(db *gorm.DB, deliveryID, path, conversationID, deliveryState string, statusCode int, latencyMs int64, ipAddress, userAgent string) error {
	entry := WebhookDeliveryLog{
		DeliveryID:     deliveryID,
		Path:           path,
		ConversationID: conversationID,
		DeliveryState:  deliveryState,
		StatusCode:     statusCode,
		LatencyMs:      latencyMs,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		CreatedAt:      time.Now(),
	}

	if err := db.Create(&entry).Error; err != nil {
		return err
	}
	return nil
}
