package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sddhantjaiii/calling-agent-backend/internal/ingest"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/cache"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/config"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/metrics"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/middleware"
)

type Handlers struct {
	db          *gorm.DB
	loader      *cache.Loader
	coordinator *ingest.Coordinator
}

func NewHandlers(db *gorm.DB) *Handlers {
	loader := cache.GetGlobalLoader()

	ingestTimeout := 10 * time.Second
	if config.GlobalConfig != nil {
		ingestTimeout = config.GlobalConfig.IngestTimeout
	}

	return &Handlers{
		db:          db,
		loader:      loader,
		coordinator: ingest.NewCoordinator(db, loader, ingestTimeout),
	}
}

func (h *Handlers) Register(engine *gin.Engine) {

	r := engine.Group(config.GlobalConfig.APIPrefix)

	// Register Global Singleton DB
	r.Use(middleware.InjectDB(h.db))

	// 回调投递留痕
	r.Use(middleware.WebhookLogMiddleware())

	// Register Business Module Routes
	h.registerWebhookRoutes(r)
	h.registerAnalyticsRoutes(r)
	h.registerSystemRoutes(r)

	// 监控端点挂在 API 前缀之外
	engine.GET("/health", h.HealthCheck)
	if config.GlobalConfig.MonitorPrefix != "" {
		engine.GET(config.GlobalConfig.MonitorPrefix, metrics.Handler())
	}
}

// registerWebhookRoutes Webhook Module
// 回调路由不走用户认证，使用共享密钥头校验
func (h *Handlers) registerWebhookRoutes(r *gin.RouterGroup) {
	webhook := r.Group("webhooks")
	{
		webhook.POST("/call-completed", h.HandleCallCompletedWebhook)
	}
}

// registerAnalyticsRoutes Analytics Module
func (h *Handlers) registerAnalyticsRoutes(r *gin.RouterGroup) {
	analytics := r.Group("analytics/:tenantId")
	analytics.Use(h.RequireTenant)
	{
		analytics.GET("/overview", h.GetOverview)

		// 通话查询 - 固定路径必须在 /:callId 之前注册
		analytics.GET("/calls/recent", h.GetRecentCalls)
		analytics.GET("/calls/:callId", h.GetCallDetail)

		analytics.GET("/agents", h.ListTenantAgents)
		analytics.GET("/agents/:agentId/metrics", h.GetAgentMetrics)
	}
}

// registerSystemRoutes System Module
func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)
		system.GET("/status", h.SystemStatus)
	}
}
