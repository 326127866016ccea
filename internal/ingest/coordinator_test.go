package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sddhantjaiii/calling-agent-backend/internal/models"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/analysis"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/cache"
)

func setupCoordinator(t *testing.T) (*Coordinator, *gorm.DB, *models.Agent) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Tenant{},
		&models.Agent{},
		&models.CallRecord{},
		&models.CallAnalysis{},
		&models.CallAggregate{},
	)
	require.NoError(t, err)

	tenant := &models.Tenant{Name: fmt.Sprintf("tenant-%d", time.Now().UnixNano()), Active: true}
	require.NoError(t, db.Create(tenant).Error)
	agent := &models.Agent{TenantID: tenant.ID, ProviderAgentID: fmt.Sprintf("agent_prov_%d", time.Now().UnixNano()), Name: "sales bot", Active: true}
	require.NoError(t, db.Create(agent).Error)

	local := cache.NewLocalCache(cache.LocalConfig{MaxSize: 128})
	t.Cleanup(func() { _ = local.Close() })

	return NewCoordinator(db, cache.NewLoader(local, 0), 5*time.Second), db, agent
}

const goodBlob = `{'intent_level': 'High', 'intent_score': 3, 'urgency_level': 'Medium', 'urgency_score': 2, 'budget_constraint': 'No', 'budget_score': 80, 'fit_alignment': 'High', 'fit_score': 90, 'engagement_health': 'Positive', 'engagement_score': 85, 'total_score': 82, 'lead_status_tag': 'Hot', 'cta_pricing_clicked': 'Yes', 'cta_demo_clicked': 'No', 'cta_followup_clicked': 'No', 'cta_escalated_to_human': 'No', 'reasoning': {'intent': 'asked about onboarding', 'urgency': None}}`

func completedPayload(agentID, convID, blob string) *analysis.WebhookPayload {
	p := &analysis.WebhookPayload{
		Type: "post_call_transcription",
		Data: analysis.WebhookConversation{
			AgentID:        agentID,
			ConversationID: convID,
			Status:         "done",
			Metadata: analysis.WebhookMetadata{
				StartTimeUnixSecs: time.Now().Add(-2 * time.Minute).Unix(),
				CallDurationSecs:  95,
			},
			ClientData: analysis.WebhookInitiationData{
				DynamicVariables: map[string]interface{}{
					"system__caller_id": "+14155550123",
					"system__call_type": "phone",
					"caller_name":       "Jordan",
				},
			},
		},
	}
	if blob != "" {
		p.Data.Analysis = analysis.WebhookAnalysis{
			DataCollectionResults: map[string]interface{}{
				"default": map[string]interface{}{"value": blob},
			},
		}
	}
	return p
}

func TestHandleCallCompletedPersistsCallAndAnalysis(t *testing.T) {
	co, db, agent := setupCoordinator(t)

	res, err := co.HandleCallCompleted(context.Background(), completedPayload(agent.ProviderAgentID, "conv_ok_1", goodBlob))
	require.NoError(t, err)
	assert.Equal(t, StateRolledUp, res.State)
	require.NotNil(t, res.CallRecord)
	require.NotNil(t, res.Analysis)

	rec := res.CallRecord
	assert.Equal(t, agent.TenantID, rec.TenantID)
	assert.Equal(t, agent.ID, rec.AgentID)
	assert.Equal(t, models.CallStatusCompleted, rec.Status)
	assert.Equal(t, analysis.SourcePhone, rec.CallSource)
	require.NotNil(t, rec.PhoneNumber)
	assert.Equal(t, "+14155550123", *rec.PhoneNumber)
	require.NotNil(t, rec.CallerName)
	assert.Equal(t, "Jordan", *rec.CallerName)
	assert.Equal(t, models.AnalysisStatusParsed, rec.AnalysisStatus)
	require.NotNil(t, rec.EndedAt)

	stored, err := models.GetCallAnalysis(db, agent.TenantID, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.TotalScore)
	assert.Equal(t, 82, *stored.TotalScore)
	require.NotNil(t, stored.LeadStatusTag)
	assert.Equal(t, models.LeadStatusHot, *stored.LeadStatusTag)
	require.NotNil(t, stored.CTAPricingClicked)
	assert.True(t, *stored.CTAPricingClicked)

	// aggregates were touched in the same transaction
	dayStart := models.PeriodStartOf(models.PeriodDay, rec.StartedAt)
	aggs, err := models.GetAggregates(db, agent.TenantID, models.PeriodDay, dayStart, dayStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, int64(1), aggs[0].TotalCalls)
	assert.Equal(t, int64(1), aggs[0].HotLeads)
}

func TestHandleCallCompletedIdempotentRedelivery(t *testing.T) {
	co, db, agent := setupCoordinator(t)
	payload := completedPayload(agent.ProviderAgentID, "conv_dup_1", goodBlob)

	first, err := co.HandleCallCompleted(context.Background(), payload)
	require.NoError(t, err)
	second, err := co.HandleCallCompleted(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, first.CallRecord.ID, second.CallRecord.ID)

	var callCount int64
	require.NoError(t, db.Model(&models.CallRecord{}).Where("tenant_id = ?", agent.TenantID).Count(&callCount).Error)
	assert.Equal(t, int64(1), callCount)

	var analysisCount int64
	require.NoError(t, db.Model(&models.CallAnalysis{}).Where("call_record_id = ?", first.CallRecord.ID).Count(&analysisCount).Error)
	assert.Equal(t, int64(1), analysisCount)

	// aggregates are recomputed, not incremented, so redelivery does not double count
	dayStart := models.PeriodStartOf(models.PeriodDay, first.CallRecord.StartedAt)
	aggs, err := models.GetAggregates(db, agent.TenantID, models.PeriodDay, dayStart, dayStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, int64(1), aggs[0].TotalCalls)
}

func TestHandleCallCompletedParseFailureStillPersistsCall(t *testing.T) {
	co, db, agent := setupCoordinator(t)

	payload := completedPayload(agent.ProviderAgentID, "conv_bad_1", "{'intent_level': }")
	res, err := co.HandleCallCompleted(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, StateParseFailed, res.State)
	assert.Error(t, res.ParseErr)
	require.NotNil(t, res.CallRecord)
	assert.Nil(t, res.Analysis)

	rec, err := models.GetCallRecordByConversationID(db, agent.TenantID, "conv_bad_1")
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusFailed, rec.AnalysisStatus)
	assert.NotEmpty(t, rec.AnalysisError)

	stored, err := models.GetCallAnalysis(db, agent.TenantID, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestHandleCallCompletedMissingAnalysisSection(t *testing.T) {
	co, _, agent := setupCoordinator(t)

	res, err := co.HandleCallCompleted(context.Background(), completedPayload(agent.ProviderAgentID, "conv_noanalysis_1", ""))
	require.NoError(t, err)
	assert.Equal(t, StateParseFailed, res.State)

	var missing *analysis.MissingAnalysisDataError
	assert.True(t, errors.As(res.ParseErr, &missing))
}

func TestHandleCallCompletedUnknownAgent(t *testing.T) {
	co, _, _ := setupCoordinator(t)

	_, err := co.HandleCallCompleted(context.Background(), completedPayload("agent_nobody", "conv_orphan_1", goodBlob))
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestHandleCallCompletedInternetCallKeepsPhoneNull(t *testing.T) {
	co, db, agent := setupCoordinator(t)

	payload := completedPayload(agent.ProviderAgentID, "conv_web_1", goodBlob)
	payload.Data.ClientData.DynamicVariables = map[string]interface{}{
		"system__caller_id": "internal",
		"system__call_type": "browser",
	}

	res, err := co.HandleCallCompleted(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, analysis.SourceInternet, res.CallRecord.CallSource)
	assert.Nil(t, res.CallRecord.PhoneNumber)

	rec, err := models.GetCallRecordByConversationID(db, agent.TenantID, "conv_web_1")
	require.NoError(t, err)
	assert.Nil(t, rec.PhoneNumber)
}

func TestHandleCallCompletedRejectsIncompletePayload(t *testing.T) {
	co, _, agent := setupCoordinator(t)

	payload := completedPayload(agent.ProviderAgentID, "", goodBlob)
	_, err := co.HandleCallCompleted(context.Background(), payload)
	assert.Error(t, err)
}

func TestMapProviderStatus(t *testing.T) {
	cases := map[string]string{
		"done":        models.CallStatusCompleted,
		"Completed":   models.CallStatusCompleted,
		"in-progress": models.CallStatusInProgress,
		"processing":  models.CallStatusInProgress,
		"ringing":     models.CallStatusRinging,
		"failed":      models.CallStatusFailed,
		"":            models.CallStatusCompleted,
		"mystery":     models.CallStatusCompleted,
	}
	for in, want := range cases {
		assert.Equal(t, want, mapProviderStatus(in), "status %q", in)
	}
}
