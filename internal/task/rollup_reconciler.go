package task

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sddhantjaiii/calling-agent-backend/internal/models"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/config"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/logger"
)

// StartRollupReconciler starts the aggregate reconciliation scheduled task
// 汇总表可以从原始通话行完整重建，对账任务定期重算最近的时段，
// 修复被吞掉的汇总写入失败造成的偏差
func StartRollupReconciler(db *gorm.DB) {
	schedule := "*/15 * * * *"
	lookback := 2
	if config.GlobalConfig != nil {
		if config.GlobalConfig.RollupSchedule != "" {
			schedule = config.GlobalConfig.RollupSchedule
		}
		if config.GlobalConfig.RollupLookback > 0 {
			lookback = config.GlobalConfig.RollupLookback
		}
	}

	// Execute a reconciliation immediately at startup
	logger.Info("Executing rollup reconciliation at startup")
	ReconcileRecentAggregates(db, lookback)

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		logger.Info("Starting rollup reconciliation")
		ReconcileRecentAggregates(db, lookback)
		logger.Info("Rollup reconciliation completed")
	})
	if err != nil {
		logger.Error("Failed to add rollup reconciler cron job", zap.Error(err))
		return
	}

	c.Start()
	logger.Info("Rollup reconciler started", zap.String("schedule", schedule))
}

// ReconcileRecentAggregates 重算所有活跃租户最近 lookback 个时段的汇总
func ReconcileRecentAggregates(db *gorm.DB, lookback int) {
	var tenantIDs []uint
	if err := db.Model(&models.Tenant{}).Where("active = ?", true).Pluck("id", &tenantIDs).Error; err != nil {
		logger.Error("Failed to list tenants for reconciliation", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, tenantID := range tenantIDs {
		for i := 0; i < lookback; i++ {
			hourStart := models.PeriodStartOf(models.PeriodHour, now.Add(-time.Duration(i)*time.Hour))
			if err := models.RecomputeAggregate(db, tenantID, models.PeriodHour, hourStart); err != nil {
				logger.Error("Failed to reconcile hourly aggregate",
					zap.Uint("tenantId", tenantID),
					zap.Time("periodStart", hourStart),
					zap.Error(err))
			}

			dayStart := models.PeriodStartOf(models.PeriodDay, now.AddDate(0, 0, -i))
			if err := models.RecomputeAggregate(db, tenantID, models.PeriodDay, dayStart); err != nil {
				logger.Error("Failed to reconcile daily aggregate",
					zap.Uint("tenantId", tenantID),
					zap.Time("periodStart", dayStart),
					zap.Error(err))
			}
		}
	}
}
