package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sddhantjaiii/calling-agent-backend/internal/models"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/logger"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/provider"
)

// StartAgentConfigSync starts the provider agent config sync task
// 坐席在提供商控制台改名后，本地展示名定期跟进
func StartAgentConfigSync(db *gorm.DB, client *provider.Client) {
	c := cron.New()
	_, err := c.AddFunc("@hourly", func() {
		SyncAgentConfigs(db, client)
	})
	if err != nil {
		logger.Error("Failed to add agent config sync cron job", zap.Error(err))
		return
	}

	c.Start()
	logger.Info("Agent config sync started")
}

// SyncAgentConfigs 对齐本地坐席名与提供商侧配置
func SyncAgentConfigs(db *gorm.DB, client *provider.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var agents []models.Agent
	if err := db.Where("active = ?", true).Find(&agents).Error; err != nil {
		logger.Error("Failed to list agents for config sync", zap.Error(err))
		return
	}
	if len(agents) == 0 {
		return
	}

	ids := make([]string, 0, len(agents))
	for _, agent := range agents {
		ids = append(ids, agent.ProviderAgentID)
	}

	configs, err := client.FetchAgentConfigs(ctx, ids)
	if err != nil {
		logger.Warn("Agent config sync fetch failed", zap.Error(err))
		return
	}

	updated := 0
	for _, agent := range agents {
		cfg, ok := configs[agent.ProviderAgentID]
		if !ok || cfg.Name == "" || cfg.Name == agent.Name {
			continue
		}
		if err := db.Model(&models.Agent{}).Where("id = ?", agent.ID).
			Update("name", cfg.Name).Error; err != nil {
			logger.Error("Failed to update agent name",
				zap.Uint("agentId", agent.ID),
				zap.Error(err))
			continue
		}
		updated++
	}
	if updated > 0 {
		logger.Info("Agent config sync completed", zap.Int("updated", updated))
	}
}
