package models

import (
	"time"

	"github.com/sddhantjaiii/calling-agent-backend/pkg/logger"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 汇总粒度
const (
	PeriodHour = "hour"
	PeriodDay  = "day"
)

// CallAggregate 租户 + 时间段的通话汇总行
// 永远可以通过对同租户同时段的原始行重新求和推导出来，
// 只是原始数据上确定性函数的缓存，不是独立的事实来源
type CallAggregate struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	TenantID    uint      `json:"tenantId" gorm:"uniqueIndex:idx_agg_tenant_period,priority:1"`
	PeriodKind  string    `json:"periodKind" gorm:"size:10;uniqueIndex:idx_agg_tenant_period,priority:2"`
	PeriodStart time.Time `json:"periodStart" gorm:"uniqueIndex:idx_agg_tenant_period,priority:3"`

	TotalCalls       int64 `json:"totalCalls"`
	CompletedCalls   int64 `json:"completedCalls"`
	FailedCalls      int64 `json:"failedCalls"`
	TotalDurationSec int64 `json:"totalDurationSec"`

	HotLeads  int64 `json:"hotLeads"`
	WarmLeads int64 `json:"warmLeads"`
	ColdLeads int64 `json:"coldLeads"`

	CTAPricingTotal   int64 `json:"ctaPricingTotal"`
	CTADemoTotal      int64 `json:"ctaDemoTotal"`
	CTAFollowupTotal  int64 `json:"ctaFollowupTotal"`
	CTAEscalatedTotal int64 `json:"ctaEscalatedTotal"`
}

func (CallAggregate) TableName() string {
	return "call_aggregates"
}

// PeriodStartOf 计算时间所属的汇总时段起点（UTC）
func PeriodStartOf(kind string, t time.Time) time.Time {
	t = t.UTC()
	if kind == PeriodDay {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.Truncate(time.Hour)
}

func periodEndOf(kind string, start time.Time) time.Time {
	if kind == PeriodDay {
		return start.AddDate(0, 0, 1)
	}
	return start.Add(time.Hour)
}

// TouchAggregatesForCall 在通话或分析写入后，于同一事务内更新受影响的汇总行
// 数据质量问题（租户缺失）降级为 warning；汇总自身的写入错误被
// 记录后吞掉，汇总失败只影响看板新鲜度，绝不拖垮通话写入
func TouchAggregatesForCall(tx *gorm.DB, rec *CallRecord) {
	if rec == nil || rec.TenantID == 0 {
		logger.Warn("aggregate rollup skipped: call record missing tenant id",
			zap.Any("record", rec))
		return
	}

	for _, kind := range []string{PeriodHour, PeriodDay} {
		start := PeriodStartOf(kind, rec.StartedAt)
		if err := RecomputeAggregate(tx, rec.TenantID, kind, start); err != nil {
			metrics.RollupFailures.Inc()
			logger.Error("aggregate rollup failed",
				zap.Uint("tenantId", rec.TenantID),
				zap.String("periodKind", kind),
				zap.Time("periodStart", start),
				zap.Error(err))
		}
	}
}

// RecomputeAggregate 对单个 (tenant, period) 重新求和并合并写入
// 只扫描受影响时段的原始行，不做全表重扫；
// 合并语义（ON CONFLICT DO UPDATE）保证同键并发更新在存储层串行化
func RecomputeAggregate(db *gorm.DB, tenantID uint, periodKind string, periodStart time.Time) error {
	periodEnd := periodEndOf(periodKind, periodStart)

	var callTotals struct {
		TotalCalls       int64
		CompletedCalls   int64
		FailedCalls      int64
		TotalDurationSec int64
	}
	err := db.Model(&CallRecord{}).
		Where("tenant_id = ? AND started_at >= ? AND started_at < ?", tenantID, periodStart, periodEnd).
		Select(`
			COUNT(*) as total_calls,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) as completed_calls,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) as failed_calls,
			COALESCE(SUM(duration_sec), 0) as total_duration_sec
		`, CallStatusCompleted, CallStatusFailed).
		Scan(&callTotals).Error
	if err != nil {
		return err
	}

	var leadTotals struct {
		HotLeads          int64
		WarmLeads         int64
		ColdLeads         int64
		CTAPricingTotal   int64
		CTADemoTotal      int64
		CTAFollowupTotal  int64
		CTAEscalatedTotal int64
	}
	err = db.Model(&CallAnalysis{}).
		Joins("JOIN call_records ON call_records.id = call_analyses.call_record_id").
		Where("call_records.tenant_id = ? AND call_records.started_at >= ? AND call_records.started_at < ? AND call_records.deleted_at IS NULL",
			tenantID, periodStart, periodEnd).
		Select(`
			SUM(CASE WHEN call_analyses.lead_status_tag = ? THEN 1 ELSE 0 END) as hot_leads,
			SUM(CASE WHEN call_analyses.lead_status_tag = ? THEN 1 ELSE 0 END) as warm_leads,
			SUM(CASE WHEN call_analyses.lead_status_tag = ? THEN 1 ELSE 0 END) as cold_leads,
			SUM(CASE WHEN call_analyses.cta_pricing_clicked = ? THEN 1 ELSE 0 END) as cta_pricing_total,
			SUM(CASE WHEN call_analyses.cta_demo_clicked = ? THEN 1 ELSE 0 END) as cta_demo_total,
			SUM(CASE WHEN call_analyses.cta_followup_clicked = ? THEN 1 ELSE 0 END) as cta_followup_total,
			SUM(CASE WHEN call_analyses.cta_escalated_to_human = ? THEN 1 ELSE 0 END) as cta_escalated_total
		`, LeadStatusHot, LeadStatusWarm, LeadStatusCold, true, true, true, true).
		Scan(&leadTotals).Error
	if err != nil {
		return err
	}

	agg := CallAggregate{
		TenantID:    tenantID,
		PeriodKind:  periodKind,
		PeriodStart: periodStart,

		TotalCalls:       callTotals.TotalCalls,
		CompletedCalls:   callTotals.CompletedCalls,
		FailedCalls:      callTotals.FailedCalls,
		TotalDurationSec: callTotals.TotalDurationSec,

		HotLeads:  leadTotals.HotLeads,
		WarmLeads: leadTotals.WarmLeads,
		ColdLeads: leadTotals.ColdLeads,

		CTAPricingTotal:   leadTotals.CTAPricingTotal,
		CTADemoTotal:      leadTotals.CTADemoTotal,
		CTAFollowupTotal:  leadTotals.CTAFollowupTotal,
		CTAEscalatedTotal: leadTotals.CTAEscalatedTotal,
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "period_kind"},
			{Name: "period_start"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_calls", "completed_calls", "failed_calls", "total_duration_sec",
			"hot_leads", "warm_leads", "cold_leads",
			"cta_pricing_total", "cta_demo_total", "cta_followup_total", "cta_escalated_total",
			"updated_at",
		}),
	}).Create(&agg).Error
}

// GetAggregates 读取租户某时段范围内的汇总行
func GetAggregates(db *gorm.DB, tenantID uint, periodKind string, from, to time.Time) ([]CallAggregate, error) {
	var rows []CallAggregate
	err := db.Where("tenant_id = ? AND period_kind = ? AND period_start >= ? AND period_start < ?",
		tenantID, periodKind, from, to).
		Order("period_start ASC").
		Find(&rows).Error
	return rows, err
}
