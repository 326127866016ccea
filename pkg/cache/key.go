package cache

import (
	"fmt"
	"strings"
	"time"
)

// 指标名称常量，缓存键与失效逻辑共用
const (
	MetricOverview    = "overview"
	MetricAgentStats  = "agent_stats"
	MetricRecentCalls = "recent_calls"
	MetricCallDetail  = "call_detail"
	MetricLiveCalls   = "live_calls"
	MetricReference   = "reference"
)

// metricTTLs 各指标的过期时间
// 实时指标短 TTL，低频变化的参考数据长 TTL
var metricTTLs = map[string]time.Duration{
	MetricLiveCalls:   30 * time.Second,
	MetricOverview:    5 * time.Minute,
	MetricAgentStats:  5 * time.Minute,
	MetricRecentCalls: 1 * time.Minute,
	MetricCallDetail:  10 * time.Minute,
	MetricReference:   30 * time.Minute,
}

// DefaultTTL 未注册指标的默认过期时间
const DefaultTTL = 5 * time.Minute

// TTLFor 返回指标对应的 TTL
func TTLFor(metric string) time.Duration {
	if ttl, ok := metricTTLs[metric]; ok {
		return ttl
	}
	return DefaultTTL
}

// TenantKey 构造租户隔离的缓存键
// 键空间始终以租户 ID 开头，不存在全局键，结构上杜绝跨租户读取
func TenantKey(tenantID uint, metric string, subkeys ...string) string {
	key := fmt.Sprintf("t:%d:%s", tenantID, metric)
	if len(subkeys) > 0 {
		key += ":" + strings.Join(subkeys, ":")
	}
	return key
}
