package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sddhantjaiii/calling-agent-backend/internal/models"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/analysis"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/cache"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/logger"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/metrics"
	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// State 单个回调事件的流水线终态
type State string

const (
	StateRolledUp      State = "rolled_up"     // 通话与分析均已落库
	StateParseFailed   State = "parse_failed"  // 通话已落库，分析解析失败并记录在案
	StatePersistFailed State = "persist_failed"
)

// ErrUnknownAgent 回调引用的坐席未在任何租户下注册
var ErrUnknownAgent = errors.New("webhook references an unregistered agent")

// PersistError 持久化阶段的瞬时失败，提供商重投即可重试
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist failed: %v", e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Result 一次摄取的结果
type Result struct {
	State      State
	CallRecord *models.CallRecord
	Analysis   *models.CallAnalysis
	ParseErr   error // 分析解析失败时记录，不阻断通话落库
}

// Coordinator 回调事件摄取协调器
// 编排 解析 -> 分类 -> 落库 -> 汇总，事务提交后异步做尽力而为的缓存失效
type Coordinator struct {
	db      *gorm.DB
	loader  *cache.Loader
	timeout time.Duration
}

// NewCoordinator 创建协调器，timeout <= 0 时默认 10 秒
func NewCoordinator(db *gorm.DB, loader *cache.Loader, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{db: db, loader: loader, timeout: timeout}
}

// HandleCallCompleted 处理一次通话结束回调
// 幂等：同一 (tenant, conversation) 的重复投递收敛到同一最终状态
func (co *Coordinator) HandleCallCompleted(ctx context.Context, payload *analysis.WebhookPayload) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, co.timeout)
	defer cancel()

	conv := &payload.Data
	if conv.ConversationID == "" || conv.AgentID == "" {
		return nil, fmt.Errorf("webhook payload missing conversation or agent id")
	}

	// 租户归属由坐席注册关系决定，回调本身不携带租户身份
	agent, err := models.FindAgentByProviderID(co.db.WithContext(ctx), conv.AgentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownAgent
		}
		return nil, &PersistError{Err: err}
	}

	// 解析失败不阻断：通话确实发生了，分析是可选的
	parsed, parseErr := analysis.ParseAnalysis(conv.Analysis.DataCollectionResults)
	if parseErr != nil {
		metrics.AnalysisParseFailures.Inc()
		logger.Warn("call analysis parse failed, persisting call without analysis",
			zap.Uint("tenantId", agent.TenantID),
			zap.String("conversationId", conv.ConversationID),
			zap.Error(parseErr))
	}

	source, callerID := analysis.ClassifySource(conv.ClientData.DynamicVariables)

	rec := buildCallRecord(agent, conv, source, callerID, parseErr)

	var stored *models.CallRecord
	var storedAnalysis *models.CallAnalysis

	// 通话 upsert、分析 upsert、汇总更新在同一事务内
	err = co.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := models.UpsertCallRecord(tx, rec); err != nil {
			return err
		}
		persisted, err := models.GetCallRecordByConversationID(tx, agent.TenantID, conv.ConversationID)
		if err != nil {
			return err
		}
		stored = persisted

		if parsed != nil {
			storedAnalysis = analysisRow(agent.TenantID, persisted.ID, parsed)
			if err := models.UpsertCallAnalysis(tx, storedAnalysis); err != nil {
				return err
			}
		}

		// 汇总失败在引擎内部被记录并吞掉，不会打断本事务
		models.TouchAggregatesForCall(tx, persisted)
		return nil
	})
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(string(StatePersistFailed)).Inc()
		return &Result{State: StatePersistFailed}, &PersistError{Err: err}
	}

	// 事务已提交，缓存失效尽力而为，失败绝不回滚已提交的数据
	go co.invalidateCaches(stored)

	result := &Result{
		State:      StateRolledUp,
		CallRecord: stored,
		Analysis:   storedAnalysis,
		ParseErr:   parseErr,
	}
	if parseErr != nil {
		result.State = StateParseFailed
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(result.State)).Inc()
	return result, nil
}

// invalidateCaches 精确失效受本次写入影响的租户缓存键
func (co *Coordinator) invalidateCaches(rec *models.CallRecord) {
	if co.loader == nil || rec == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	keys := []string{
		cache.TenantKey(rec.TenantID, cache.MetricOverview),
		cache.TenantKey(rec.TenantID, cache.MetricLiveCalls),
		cache.TenantKey(rec.TenantID, cache.MetricRecentCalls),
		cache.TenantKey(rec.TenantID, cache.MetricAgentStats, strconv.FormatUint(uint64(rec.AgentID), 10)),
		cache.TenantKey(rec.TenantID, cache.MetricCallDetail, strconv.FormatUint(uint64(rec.ID), 10)),
	}
	if err := co.loader.Invalidate(ctx, keys...); err != nil {
		logger.Warn("cache invalidation failed",
			zap.Uint("tenantId", rec.TenantID),
			zap.Error(err))
	}
}

// buildCallRecord 将回调数据组装为通话记录
func buildCallRecord(agent *models.Agent, conv *analysis.WebhookConversation, source string, callerID *string, parseErr error) *models.CallRecord {
	startedAt := time.Now().UTC()
	if conv.Metadata.StartTimeUnixSecs > 0 {
		startedAt = time.Unix(conv.Metadata.StartTimeUnixSecs, 0).UTC()
	}

	rec := &models.CallRecord{
		TenantID:               agent.TenantID,
		AgentID:                agent.ID,
		ExternalConversationID: conv.ConversationID,
		DurationSec:            conv.Metadata.CallDurationSecs,
		Status:                 mapProviderStatus(conv.Status),
		CallSource:             source,
		AnalysisStatus:         models.AnalysisStatusParsed,
		StartedAt:              startedAt,
	}

	if source == analysis.SourcePhone {
		rec.PhoneNumber = callerID
	}
	// 提供商单独给出的展示名；缺失时保持 NULL，不编造占位身份
	if name := strings.TrimSpace(cast.ToString(conv.ClientData.DynamicVariables["caller_name"])); name != "" {
		rec.CallerName = &name
	}

	if rec.Status == models.CallStatusCompleted || rec.Status == models.CallStatusFailed {
		endedAt := startedAt.Add(time.Duration(conv.Metadata.CallDurationSecs) * time.Second)
		rec.EndedAt = &endedAt
	}

	if parseErr != nil {
		rec.AnalysisStatus = models.AnalysisStatusFailed
		msg := parseErr.Error()
		if len(msg) > 1000 {
			msg = msg[:1000]
		}
		rec.AnalysisError = msg
	}
	return rec
}

// mapProviderStatus 提供商状态词汇到本地生命周期状态的映射
func mapProviderStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "initiated", "queued":
		return models.CallStatusInitiated
	case "ringing":
		return models.CallStatusRinging
	case "in-progress", "in_progress", "processing":
		return models.CallStatusInProgress
	case "disconnected":
		return models.CallStatusDisconnected
	case "done", "completed", "success":
		return models.CallStatusCompleted
	case "failed", "error":
		return models.CallStatusFailed
	default:
		return models.CallStatusCompleted
	}
}

// analysisRow 将解析结果映射到持久化模型
func analysisRow(tenantID, callRecordID uint, r *analysis.Result) *models.CallAnalysis {
	return &models.CallAnalysis{
		TenantID:     tenantID,
		CallRecordID: callRecordID,

		IntentLabel:     r.Intent.Label,
		IntentScore:     r.Intent.Score,
		IntentReasoning: r.Intent.Reasoning,

		UrgencyLabel:     r.Urgency.Label,
		UrgencyScore:     r.Urgency.Score,
		UrgencyReasoning: r.Urgency.Reasoning,

		BudgetLabel:     r.Budget.Label,
		BudgetScore:     r.Budget.Score,
		BudgetReasoning: r.Budget.Reasoning,

		FitLabel:     r.Fit.Label,
		FitScore:     r.Fit.Score,
		FitReasoning: r.Fit.Reasoning,

		EngagementLabel:     r.Engagement.Label,
		EngagementScore:     r.Engagement.Score,
		EngagementReasoning: r.Engagement.Reasoning,

		TotalScore:    r.TotalScore,
		LeadStatusTag: r.LeadStatusTag,

		CTAPricingClicked:   r.CTAPricingClicked,
		CTADemoClicked:      r.CTADemoClicked,
		CTAFollowupClicked:  r.CTAFollowupClicked,
		CTAEscalatedToHuman: r.CTAEscalatedToHuman,
	}
}
