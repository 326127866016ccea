package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sddhantjaiii/calling-agent-backend/internal/ingest"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/analysis"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/config"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/constants"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/logger"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/middleware"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/response"
)

// HandleCallCompletedWebhook 处理提供商的通话结束回调
// 只有持久化失败才返回 5xx 触发提供商重投；解析失败已落库，重投无益
func (h *Handlers) HandleCallCompletedWebhook(c *gin.Context) {
	if !h.verifyWebhookSecret(c) {
		response.AbortWithStatusJSON(c, http.StatusUnauthorized, errors.New("invalid webhook secret"))
		return
	}

	var payload analysis.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.FailWithStatus(c, http.StatusBadRequest, "invalid webhook payload")
		return
	}
	c.Set(middleware.ConversationIDField, payload.Data.ConversationID)

	result, err := h.coordinator.HandleCallCompleted(c.Request.Context(), &payload)
	if err != nil {
		var persistErr *ingest.PersistError
		switch {
		case errors.As(err, &persistErr):
			// 事务未提交，让提供商重投
			c.Set(middleware.DeliveryStateField, string(ingest.StatePersistFailed))
			logger.Error("webhook persist failed",
				zap.String("conversationId", payload.Data.ConversationID),
				zap.Error(err))
			response.AbortWithStatusJSON(c, http.StatusInternalServerError, errors.New("persist failed"))
		case errors.Is(err, ingest.ErrUnknownAgent):
			// 无法归属的通话确认掉，重投不会产生归属
			c.Set(middleware.DeliveryStateField, "unattributed")
			logger.Warn("webhook for unregistered agent",
				zap.String("agentId", payload.Data.AgentID),
				zap.String("conversationId", payload.Data.ConversationID))
			response.Success(c, "ignored", nil)
		default:
			c.Set(middleware.DeliveryStateField, "rejected")
			response.FailWithStatus(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	c.Set(middleware.DeliveryStateField, string(result.State))
	response.Success(c, "accepted", gin.H{
		"state":          string(result.State),
		"callId":         result.CallRecord.ID,
		"conversationId": result.CallRecord.ExternalConversationID,
		"deliveryId":     c.GetString(middleware.DeliveryIDField),
	})
}

// verifyWebhookSecret 共享密钥头校验，常数时间比较
// 未配置密钥时放行，便于本地开发
func (h *Handlers) verifyWebhookSecret(c *gin.Context) bool {
	secret := ""
	if config.GlobalConfig != nil {
		secret = config.GlobalConfig.WebhookSecret
	}
	if secret == "" {
		return true
	}
	provided := c.GetHeader(constants.WebhookSecretHeader)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}
