package task

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sddhantjaiii/calling-agent-backend/pkg/logger"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/middleware"
)

// 投递日志保留期
const deliveryLogRetention = 30 * 24 * time.Hour

// StartDeliveryLogCleaner starts the webhook delivery log cleaning task
func StartDeliveryLogCleaner(db *gorm.DB) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		cleanExpiredDeliveryLogs(db)
	}
}

// cleanExpiredDeliveryLogs removes delivery logs past the retention window
func cleanExpiredDeliveryLogs(db *gorm.DB) {
	cutoff := time.Now().Add(-deliveryLogRetention)
	result := db.Where("created_at < ?", cutoff).Delete(&middleware.WebhookDeliveryLog{})
	if result.Error != nil {
		logger.Error("Failed to clean webhook delivery logs", zap.Error(result.Error))
		return
	}
	if result.RowsAffected > 0 {
		logger.Info("Cleaned expired webhook delivery logs", zap.Int64("removed", result.RowsAffected))
	}
}
