package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sddhantjaiii/calling-agent-backend/internal/ingest"
	"github.com/sddhantjaiii/calling-agent-backend/internal/models"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/cache"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/config"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/middleware"
)

func setupTestServer(t *testing.T) (*gin.Engine, *gorm.DB, *models.Agent) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.GlobalConfig = &config.Config{
		APIPrefix:     "/api",
		WebhookSecret: "test-secret",
		IngestTimeout: 5 * time.Second,
		MonitorPrefix: "",
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Tenant{},
		&models.Agent{},
		&models.CallRecord{},
		&models.CallAnalysis{},
		&models.CallAggregate{},
		&middleware.WebhookDeliveryLog{},
	))

	tenant := &models.Tenant{Name: fmt.Sprintf("handler-tenant-%d", time.Now().UnixNano()), Active: true}
	require.NoError(t, db.Create(tenant).Error)
	agent := &models.Agent{TenantID: tenant.ID, ProviderAgentID: fmt.Sprintf("agent_h_%d", time.Now().UnixNano()), Name: "handler agent", Active: true}
	require.NoError(t, db.Create(agent).Error)

	local := cache.NewLocalCache(cache.LocalConfig{MaxSize: 128})
	t.Cleanup(func() { _ = local.Close() })
	loader := cache.NewLoader(local, 0)

	h := &Handlers{
		db:          db,
		loader:      loader,
		coordinator: ingest.NewCoordinator(db, loader, 5*time.Second),
	}

	engine := gin.New()
	h.Register(engine)
	return engine, db, agent
}

func webhookBody(t *testing.T, agentID, convID string) []byte {
	t.Helper()
	payload := map[string]interface{}{
		"type": "post_call_transcription",
		"data": map[string]interface{}{
			"agent_id":        agentID,
			"conversation_id": convID,
			"status":          "done",
			"metadata": map[string]interface{}{
				"start_time_unix_secs": time.Now().Add(-time.Minute).Unix(),
				"call_duration_secs":   61,
			},
			"analysis": map[string]interface{}{
				"data_collection_results": map[string]interface{}{
					"default": map[string]interface{}{
						"value": `{'intent_level': 'High', 'intent_score': 3, 'total_score': 77, 'lead_status_tag': 'Warm', 'cta_demo_clicked': 'Yes'}`,
					},
				},
			},
			"conversation_initiation_client_data": map[string]interface{}{
				"dynamic_variables": map[string]interface{}{
					"system__caller_id": "+12025550107",
					"system__call_type": "phone",
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func postWebhook(engine *gin.Engine, body []byte, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/call-completed", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestWebhookAcceptsValidDelivery(t *testing.T) {
	engine, db, agent := setupTestServer(t)

	w := postWebhook(engine, webhookBody(t, agent.ProviderAgentID, "conv_wh_1"), "test-secret")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			State      string `json:"state"`
			CallID     uint   `json:"callId"`
			DeliveryID string `json:"deliveryId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "rolled_up", resp.Data.State)
	assert.NotEmpty(t, resp.Data.DeliveryID)

	rec, err := models.GetCallRecordByConversationID(db, agent.TenantID, "conv_wh_1")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusCompleted, rec.Status)
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	engine, db, agent := setupTestServer(t)

	w := postWebhook(engine, webhookBody(t, agent.ProviderAgentID, "conv_wh_2"), "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, err := models.GetCallRecordByConversationID(db, agent.TenantID, "conv_wh_2")
	assert.Error(t, err)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	engine, _, _ := setupTestServer(t)

	w := postWebhook(engine, []byte("{not json"), "test-secret")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookAcksUnknownAgent(t *testing.T) {
	engine, _, _ := setupTestServer(t)

	// 无法归属的投递确认掉，提供商不应无限重投
	w := postWebhook(engine, webhookBody(t, "agent_unregistered", "conv_wh_3"), "test-secret")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ignored", resp.Message)
}

func TestWebhookIdempotentAcrossRedelivery(t *testing.T) {
	engine, db, agent := setupTestServer(t)

	body := webhookBody(t, agent.ProviderAgentID, "conv_wh_4")
	first := postWebhook(engine, body, "test-secret")
	second := postWebhook(engine, body, "test-secret")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	var count int64
	require.NoError(t, db.Model(&models.CallRecord{}).
		Where("tenant_id = ? AND external_conversation_id = ?", agent.TenantID, "conv_wh_4").
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWebhookAllowsMissingSecretWhenUnconfigured(t *testing.T) {
	engine, _, agent := setupTestServer(t)
	config.GlobalConfig.WebhookSecret = ""

	w := postWebhook(engine, webhookBody(t, agent.ProviderAgentID, "conv_wh_5"), "")
	assert.Equal(t, http.StatusOK, w.Code)
}
