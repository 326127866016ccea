package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 线索质量标签
const (
	LeadStatusHot  = "Hot"
	LeadStatusWarm = "Warm"
	LeadStatusCold = "Cold"
)

// CallAnalysis 一条通话记录的线索评分结果，与 CallRecord 一一对应
// 所有子字段可空：未识别的值存 NULL，不编造默认值
type CallAnalysis struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	TenantID     uint `json:"tenantId" gorm:"index"`
	CallRecordID uint `json:"callRecordId" gorm:"uniqueIndex"`

	IntentLabel     *string `json:"intentLabel,omitempty" gorm:"size:50"`
	IntentScore     *int    `json:"intentScore,omitempty"`
	IntentReasoning *string `json:"intentReasoning,omitempty" gorm:"type:text"`

	UrgencyLabel     *string `json:"urgencyLabel,omitempty" gorm:"size:50"`
	UrgencyScore     *int    `json:"urgencyScore,omitempty"`
	UrgencyReasoning *string `json:"urgencyReasoning,omitempty" gorm:"type:text"`

	BudgetLabel     *string `json:"budgetLabel,omitempty" gorm:"size:50"`
	BudgetScore     *int    `json:"budgetScore,omitempty"`
	BudgetReasoning *string `json:"budgetReasoning,omitempty" gorm:"type:text"`

	FitLabel     *string `json:"fitLabel,omitempty" gorm:"size:50"`
	FitScore     *int    `json:"fitScore,omitempty"`
	FitReasoning *string `json:"fitReasoning,omitempty" gorm:"type:text"`

	EngagementLabel     *string `json:"engagementLabel,omitempty" gorm:"size:50"`
	EngagementScore     *int    `json:"engagementScore,omitempty"`
	EngagementReasoning *string `json:"engagementReasoning,omitempty" gorm:"type:text"`

	TotalScore    *int    `json:"totalScore,omitempty"`
	LeadStatusTag *string `json:"leadStatusTag,omitempty" gorm:"size:50;index"`

	CTAPricingClicked   *bool `json:"ctaPricingClicked,omitempty"`
	CTADemoClicked      *bool `json:"ctaDemoClicked,omitempty"`
	CTAFollowupClicked  *bool `json:"ctaFollowupClicked,omitempty"`
	CTAEscalatedToHuman *bool `json:"ctaEscalatedToHuman,omitempty"`
}

func (CallAnalysis) TableName() string {
	return "call_analyses"
}

var callAnalysisUpdateColumns = []string{
	"tenant_id",
	"intent_label", "intent_score", "intent_reasoning",
	"urgency_label", "urgency_score", "urgency_reasoning",
	"budget_label", "budget_score", "budget_reasoning",
	"fit_label", "fit_score", "fit_reasoning",
	"engagement_label", "engagement_score", "engagement_reasoning",
	"total_score", "lead_status_tag",
	"cta_pricing_clicked", "cta_demo_clicked", "cta_followup_clicked", "cta_escalated_to_human",
	"updated_at",
}

// UpsertCallAnalysis 幂等写入分析结果
// 每条 CallRecord 至多一条分析；真实的重复投递按最后写入为准
func UpsertCallAnalysis(db *gorm.DB, a *CallAnalysis) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "call_record_id"}},
		DoUpdates: clause.AssignmentColumns(callAnalysisUpdateColumns),
	}).Create(a).Error
}

// GetCallAnalysis 读取通话的分析结果，未生成时返回 nil
func GetCallAnalysis(db *gorm.DB, tenantID, callRecordID uint) (*CallAnalysis, error) {
	var a CallAnalysis
	err := db.Where("tenant_id = ? AND call_record_id = ?", tenantID, callRecordID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
