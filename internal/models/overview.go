package models

import (
	"time"

	"gorm.io/gorm"
)

// TenantOverview 租户概览快照，由预计算汇总与实时计数拼装
type TenantOverview struct {
	TotalCalls       int64 `json:"totalCalls"`
	CompletedCalls   int64 `json:"completedCalls"`
	FailedCalls      int64 `json:"failedCalls"`
	LiveCalls        int64 `json:"liveCalls"`
	TotalDurationSec int64 `json:"totalDurationSec"`
	AvgDurationSec   int64 `json:"avgDurationSec"`

	HotLeads  int64 `json:"hotLeads"`
	WarmLeads int64 `json:"warmLeads"`
	ColdLeads int64 `json:"coldLeads"`

	CTAPricingTotal   int64 `json:"ctaPricingTotal"`
	CTADemoTotal      int64 `json:"ctaDemoTotal"`
	CTAFollowupTotal  int64 `json:"ctaFollowupTotal"`
	CTAEscalatedTotal int64 `json:"ctaEscalatedTotal"`

	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	ComputedAt time.Time `json:"computedAt"`
}

// GetTenantOverview 计算租户在时间范围内的概览
// 历史部分读预计算的日汇总，进行中的通话实时计数
// 范围对 to 所在的那一天取闭区间，默认窗口必须包含当天
func GetTenantOverview(db *gorm.DB, tenantID uint, from, to time.Time) (*TenantOverview, error) {
	fromStart := PeriodStartOf(PeriodDay, from)
	toEnd := periodEndOf(PeriodDay, PeriodStartOf(PeriodDay, to))

	aggs, err := GetAggregates(db, tenantID, PeriodDay, fromStart, toEnd)
	if err != nil {
		return nil, err
	}

	overview := &TenantOverview{
		From:       fromStart,
		To:         to,
		ComputedAt: time.Now().UTC(),
	}
	for _, agg := range aggs {
		overview.TotalCalls += agg.TotalCalls
		overview.CompletedCalls += agg.CompletedCalls
		overview.FailedCalls += agg.FailedCalls
		overview.TotalDurationSec += agg.TotalDurationSec
		overview.HotLeads += agg.HotLeads
		overview.WarmLeads += agg.WarmLeads
		overview.ColdLeads += agg.ColdLeads
		overview.CTAPricingTotal += agg.CTAPricingTotal
		overview.CTADemoTotal += agg.CTADemoTotal
		overview.CTAFollowupTotal += agg.CTAFollowupTotal
		overview.CTAEscalatedTotal += agg.CTAEscalatedTotal
	}
	if overview.TotalCalls > 0 {
		overview.AvgDurationSec = overview.TotalDurationSec / overview.TotalCalls
	}

	live, err := CountLiveCalls(db, tenantID)
	if err != nil {
		return nil, err
	}
	overview.LiveCalls = live

	return overview, nil
}

// AgentMetrics 单个坐席的通话与线索指标
type AgentMetrics struct {
	AgentID   uint   `json:"agentId"`
	AgentName string `json:"agentName"`

	TotalCalls     int64 `json:"totalCalls"`
	CompletedCalls int64 `json:"completedCalls"`
	FailedCalls    int64 `json:"failedCalls"`
	AvgDurationSec int64 `json:"avgDurationSec"`

	HotLeads  int64 `json:"hotLeads"`
	WarmLeads int64 `json:"warmLeads"`
	ColdLeads int64 `json:"coldLeads"`

	AvgTotalScore *float64 `json:"avgTotalScore,omitempty"`

	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	ComputedAt time.Time `json:"computedAt"`
}

// GetAgentMetrics 计算坐席在时间范围内的指标
// 汇总表是租户粒度的，坐席粒度直接扫原始通话行
func GetAgentMetrics(db *gorm.DB, agent *Agent, from, to time.Time) (*AgentMetrics, error) {
	metrics := &AgentMetrics{
		AgentID:    agent.ID,
		AgentName:  agent.Name,
		From:       from,
		To:         to,
		ComputedAt: time.Now().UTC(),
	}

	var callTotals struct {
		TotalCalls       int64
		CompletedCalls   int64
		FailedCalls      int64
		TotalDurationSec int64
	}
	err := db.Model(&CallRecord{}).
		Select(
			"COUNT(*) AS total_calls, "+
				"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed_calls, "+
				"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS failed_calls, "+
				"COALESCE(SUM(duration_sec), 0) AS total_duration_sec",
			CallStatusCompleted, CallStatusFailed).
		Where("tenant_id = ? AND agent_id = ? AND started_at >= ? AND started_at < ?",
			agent.TenantID, agent.ID, from, to).
		Scan(&callTotals).Error
	if err != nil {
		return nil, err
	}

	metrics.TotalCalls = callTotals.TotalCalls
	metrics.CompletedCalls = callTotals.CompletedCalls
	metrics.FailedCalls = callTotals.FailedCalls
	if callTotals.TotalCalls > 0 {
		metrics.AvgDurationSec = callTotals.TotalDurationSec / callTotals.TotalCalls
	}

	var leadTotals struct {
		HotLeads   int64
		WarmLeads  int64
		ColdLeads  int64
		ScoreSum   int64
		ScoreCount int64
	}
	err = db.Model(&CallAnalysis{}).
		Joins("JOIN call_records ON call_records.id = call_analyses.call_record_id AND call_records.deleted_at IS NULL").
		Select(
			"SUM(CASE WHEN call_analyses.lead_status_tag = ? THEN 1 ELSE 0 END) AS hot_leads, "+
				"SUM(CASE WHEN call_analyses.lead_status_tag = ? THEN 1 ELSE 0 END) AS warm_leads, "+
				"SUM(CASE WHEN call_analyses.lead_status_tag = ? THEN 1 ELSE 0 END) AS cold_leads, "+
				"COALESCE(SUM(call_analyses.total_score), 0) AS score_sum, "+
				"SUM(CASE WHEN call_analyses.total_score IS NOT NULL THEN 1 ELSE 0 END) AS score_count",
			LeadStatusHot, LeadStatusWarm, LeadStatusCold).
		Where("call_analyses.tenant_id = ? AND call_records.agent_id = ? AND call_records.started_at >= ? AND call_records.started_at < ?",
			agent.TenantID, agent.ID, from, to).
		Scan(&leadTotals).Error
	if err != nil {
		return nil, err
	}

	metrics.HotLeads = leadTotals.HotLeads
	metrics.WarmLeads = leadTotals.WarmLeads
	metrics.ColdLeads = leadTotals.ColdLeads
	if leadTotals.ScoreCount > 0 {
		avg := float64(leadTotals.ScoreSum) / float64(leadTotals.ScoreCount)
		metrics.AvgTotalScore = &avg
	}

	return metrics, nil
}
