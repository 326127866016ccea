package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL 提供商 API 的默认入口
const DefaultBaseURL = "https://api.elevenlabs.io"

const (
	defaultTimeout      = 15 * time.Second
	defaultRetryCount   = 2
	defaultRetryWait    = 500 * time.Millisecond
	defaultRetryMaxWait = 3 * time.Second

	agentConfigTTL     = 10 * time.Minute
	agentConfigCleanup = 30 * time.Minute

	fetchConcurrency = 4
)

// APIError 提供商侧返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider api error: status=%d body=%s", e.StatusCode, e.Body)
}

// AgentConfig 提供商侧的坐席配置
type AgentConfig struct {
	AgentID  string `json:"agent_id"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

// ConversationDetail 提供商侧的通话详情，用于对账缺失的回调
type ConversationDetail struct {
	AgentID           string `json:"agent_id"`
	ConversationID    string `json:"conversation_id"`
	Status            string `json:"status"`
	CallDurationSecs  int64  `json:"call_duration_secs"`
	StartTimeUnixSecs int64  `json:"start_time_unix_secs"`
}

// Client 通话提供商的 API 客户端
// 坐席配置近乎不变，走本地 TTL 备忘缓存以避免重复拉取
type Client struct {
	http *resty.Client
	memo *gocache.Cache
}

// Config 客户端配置
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient 创建提供商客户端，带指数退避重试
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		SetHeader("xi-api-key", cfg.APIKey).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500 || r.StatusCode() == 429
		})

	return &Client{
		http: http,
		memo: gocache.New(agentConfigTTL, agentConfigCleanup),
	}
}

// GetAgentConfig 拉取单个坐席的配置，命中备忘缓存时不发请求
func (c *Client) GetAgentConfig(ctx context.Context, agentID string) (*AgentConfig, error) {
	if cached, ok := c.memo.Get(agentID); ok {
		return cached.(*AgentConfig), nil
	}

	var cfg AgentConfig
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&cfg).
		ForceContentType("application/json").
		Get("/v1/convai/agents/" + agentID)
	if err != nil {
		return nil, fmt.Errorf("fetch agent config: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	// 空 ID 说明响应体没有按预期反序列化，不能让零值占住缓存
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("fetch agent config: malformed response for %s", agentID)
	}

	c.memo.Set(agentID, &cfg, gocache.DefaultExpiration)
	return &cfg, nil
}

// FetchAgentConfigs 并发拉取多个坐席配置，任一失败整批失败
func (c *Client) FetchAgentConfigs(ctx context.Context, agentIDs []string) (map[string]*AgentConfig, error) {
	out := make([]*AgentConfig, len(agentIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range agentIDs {
		g.Go(func() error {
			cfg, err := c.GetAgentConfig(ctx, id)
			if err != nil {
				return err
			}
			out[i] = cfg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	configs := make(map[string]*AgentConfig, len(out))
	for _, cfg := range out {
		configs[cfg.AgentID] = cfg
	}
	return configs, nil
}

// GetConversation 拉取通话详情，供对账任务补齐遗漏的回调
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*ConversationDetail, error) {
	var detail ConversationDetail
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&detail).
		ForceContentType("application/json").
		Get("/v1/convai/conversations/" + conversationID)
	if err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return &detail, nil
}

// InvalidateAgentConfig 清除单个坐席的备忘缓存
func (c *Client) InvalidateAgentConfig(agentID string) {
	c.memo.Delete(agentID)
}
