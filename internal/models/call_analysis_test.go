package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func TestUpsertCallAnalysis_OnePerCallRecord(t *testing.T) {
	db := setupTestDB(t)
	tenant, agent := seedTenantWithAgent(t, db, "acme", "agent-a")

	rec := &CallRecord{
		TenantID:               tenant.ID,
		AgentID:                agent.ID,
		ExternalConversationID: "conv-1",
		Status:                 CallStatusCompleted,
		AnalysisStatus:         AnalysisStatusParsed,
		StartedAt:              time.Now().UTC(),
	}
	require.NoError(t, UpsertCallRecord(db, rec))
	stored, err := GetCallRecordByConversationID(db, tenant.ID, "conv-1")
	require.NoError(t, err)

	first := &CallAnalysis{
		TenantID:      tenant.ID,
		CallRecordID:  stored.ID,
		IntentLabel:   strp("High"),
		IntentScore:   intp(90),
		TotalScore:    intp(75),
		LeadStatusTag: strp(LeadStatusHot),
	}
	require.NoError(t, UpsertCallAnalysis(db, first))

	// Re-delivery with different values: last write wins, still one row
	second := &CallAnalysis{
		TenantID:      tenant.ID,
		CallRecordID:  stored.ID,
		IntentLabel:   strp("Medium"),
		IntentScore:   intp(60),
		TotalScore:    intp(55),
		LeadStatusTag: strp(LeadStatusWarm),
	}
	require.NoError(t, UpsertCallAnalysis(db, second))

	var count int64
	require.NoError(t, db.Model(&CallAnalysis{}).
		Where("call_record_id = ?", stored.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := GetCallAnalysis(db, tenant.ID, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Medium", *got.IntentLabel)
	assert.Equal(t, LeadStatusWarm, *got.LeadStatusTag)
}

func TestGetCallAnalysis_NilWhenAbsent(t *testing.T) {
	db := setupTestDB(t)
	tenant, _ := seedTenantWithAgent(t, db, "acme", "agent-a")

	got, err := GetCallAnalysis(db, tenant.ID, 99999)
	require.NoError(t, err)
	assert.Nil(t, got, "missing analysis is not an error")
}

func TestCallAnalysis_NullableFieldsStayNull(t *testing.T) {
	db := setupTestDB(t)
	tenant, agent := seedTenantWithAgent(t, db, "acme", "agent-a")

	rec := &CallRecord{
		TenantID:               tenant.ID,
		AgentID:                agent.ID,
		ExternalConversationID: "conv-2",
		Status:                 CallStatusCompleted,
		AnalysisStatus:         AnalysisStatusParsed,
		StartedAt:              time.Now().UTC(),
	}
	require.NoError(t, UpsertCallRecord(db, rec))
	stored, err := GetCallRecordByConversationID(db, tenant.ID, "conv-2")
	require.NoError(t, err)

	require.NoError(t, UpsertCallAnalysis(db, &CallAnalysis{
		TenantID:     tenant.ID,
		CallRecordID: stored.ID,
		// everything else unrecognized upstream -> stays NULL
	}))

	got, err := GetCallAnalysis(db, tenant.ID, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.IntentLabel)
	assert.Nil(t, got.IntentScore)
	assert.Nil(t, got.TotalScore)
	assert.Nil(t, got.CTAPricingClicked)
}
