package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 通话生命周期状态
const (
	CallStatusInitiated    = "initiated"
	CallStatusRinging      = "ringing"
	CallStatusInProgress   = "in_progress"
	CallStatusDisconnected = "disconnected"
	CallStatusCompleted    = "completed"
	CallStatusFailed       = "failed"
)

// 分析解析状态
const (
	AnalysisStatusPending = "pending"
	AnalysisStatusParsed  = "parsed"
	AnalysisStatusFailed  = "failed"
)

// CallRecord 一次外部执行的通话
// (tenant_id, external_conversation_id) 为幂等 upsert 键；
// 记录只软删除，不做物理删除
type CallRecord struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	TenantID               uint   `json:"tenantId" gorm:"uniqueIndex:idx_call_tenant_conv,priority:1"`
	AgentID                uint   `json:"agentId" gorm:"index"`
	ExternalConversationID string `json:"externalConversationId" gorm:"size:200;uniqueIndex:idx_call_tenant_conv,priority:2"`

	PhoneNumber *string `json:"phoneNumber,omitempty" gorm:"size:64"`
	CallerName  *string `json:"callerName,omitempty" gorm:"size:200"`

	DurationSec int64  `json:"durationSec"`
	Status      string `json:"status" gorm:"size:50;index"`
	CallSource  string `json:"callSource" gorm:"size:20"`

	AnalysisStatus string `json:"analysisStatus" gorm:"size:20;default:'pending'"`
	AnalysisError  string `json:"analysisError,omitempty" gorm:"size:1000"`

	StartedAt time.Time  `json:"startedAt" gorm:"index"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

func (CallRecord) TableName() string {
	return "call_records"
}

// callRecordUpdateColumns 再投递时允许覆盖的列
// 至少一次投递语义下，最终状态与投递次数无关
var callRecordUpdateColumns = []string{
	"agent_id", "phone_number", "caller_name", "duration_sec",
	"status", "call_source", "analysis_status", "analysis_error",
	"started_at", "ended_at", "updated_at",
}

// UpsertCallRecord 幂等写入通话记录
// 同键并发写入由存储层的冲突解决串行化，应用层不加锁
func UpsertCallRecord(db *gorm.DB, rec *CallRecord) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "external_conversation_id"},
		},
		DoUpdates: clause.AssignmentColumns(callRecordUpdateColumns),
	}).Create(rec).Error
}

// GetCallRecordByConversationID 按幂等键读取通话记录
func GetCallRecordByConversationID(db *gorm.DB, tenantID uint, conversationID string) (*CallRecord, error) {
	var rec CallRecord
	err := db.Where("tenant_id = ? AND external_conversation_id = ?", tenantID, conversationID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecentCalls 列出租户最近的通话
func ListRecentCalls(db *gorm.DB, tenantID uint, limit int) ([]CallRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var records []CallRecord
	err := db.Where("tenant_id = ?", tenantID).
		Order("started_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// CountLiveCalls 统计租户当前进行中的通话数
func CountLiveCalls(db *gorm.DB, tenantID uint) (int64, error) {
	var n int64
	err := db.Model(&CallRecord{}).
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]string{CallStatusInitiated, CallStatusRinging, CallStatusInProgress}).
		Count(&n).Error
	return n, err
}
