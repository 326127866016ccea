package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 摄取与缓存指标
var (
	// WebhookEventsTotal 按终态统计回调事件
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calling_agent_webhook_events_total",
			Help: "Total webhook events by terminal pipeline state",
		},
		[]string{"state"},
	)

	// AnalysisParseFailures 分析 blob 解析失败计数
	AnalysisParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calling_agent_analysis_parse_failures_total",
			Help: "Total call analysis payloads that failed to parse",
		},
	)

	// IngestDuration 单个回调事件的端到端处理耗时
	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "calling_agent_ingest_duration_seconds",
			Help:    "End-to-end webhook ingestion duration",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CacheRequests 按指标名与结果（hit/miss）统计缓存访问
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calling_agent_cache_requests_total",
			Help: "Dashboard cache requests by metric and outcome",
		},
		[]string{"metric", "outcome"},
	)

	// RollupFailures 汇总写入失败计数（被吞掉但可观测）
	RollupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calling_agent_rollup_failures_total",
			Help: "Total aggregate rollup write failures",
		},
	)
)

// Handler 暴露 prometheus 指标端点
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
