package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sddhantjaiii/calling-agent-backend/internal/models"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/cache"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/metrics"
	"github.com/sddhantjaiii/calling-agent-backend/pkg/response"
)

// 租户 ID 在 gin 上下文中的键
const tenantIDField = "tenant_id"

// RequireTenant 校验路径中的租户并注入上下文
// 租户不存在、已停用与格式非法走同一拒绝路径
func (h *Handlers) RequireTenant(c *gin.Context) {
	tenantID, err := models.ParseResourceID(c.Param("tenantId"))
	if err != nil {
		response.AbortWithStatusJSON(c, http.StatusNotFound, models.ErrAccessDenied)
		return
	}

	tenant, err := models.GetTenant(h.db, tenantID)
	if err != nil || !tenant.Active {
		response.AbortWithStatusJSON(c, http.StatusNotFound, models.ErrAccessDenied)
		return
	}

	c.Set(tenantIDField, tenant.ID)
	c.Next()
}

func currentTenantID(c *gin.Context) uint {
	return c.MustGet(tenantIDField).(uint)
}

// timeRange 解析查询参数中的时间范围，默认最近 30 天
func timeRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if s := c.Query("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, errors.New("invalid from format, use YYYY-MM-DD")
		}
		from = t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, errors.New("invalid to format, use YYYY-MM-DD")
		}
		// 取到当天末尾
		to = t.Add(24*time.Hour - time.Second)
	}
	return from, to, nil
}

// cachedCompute 统一的读缓存入口，记录命中情况
func (h *Handlers) cachedCompute(c *gin.Context, metric, key string, compute func(context.Context) (interface{}, error)) (interface{}, error) {
	value, cached, err := h.loader.GetOrCompute(c.Request.Context(), key, cache.TTLFor(metric), compute)
	if err != nil {
		metrics.CacheRequests.WithLabelValues(metric, "error").Inc()
		return nil, err
	}
	if cached {
		metrics.CacheRequests.WithLabelValues(metric, "hit").Inc()
	} else {
		metrics.CacheRequests.WithLabelValues(metric, "miss").Inc()
	}
	return value, nil
}

// GetOverview 租户概览
func (h *Handlers) GetOverview(c *gin.Context) {
	tenantID := currentTenantID(c)

	from, to, err := timeRange(c)
	if err != nil {
		response.Fail(c, err.Error(), nil)
		return
	}

	// 自定义时间范围绕过缓存，缓存只服务默认窗口
	defaultWindow := c.Query("from") == "" && c.Query("to") == ""
	if !defaultWindow {
		overview, err := models.GetTenantOverview(h.db, tenantID, from, to)
		if err != nil {
			response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
			return
		}
		response.Success(c, "success", overview)
		return
	}

	value, err := h.cachedCompute(c, cache.MetricOverview, cache.TenantKey(tenantID, cache.MetricOverview),
		func(ctx context.Context) (interface{}, error) {
			return models.GetTenantOverview(h.db.WithContext(ctx), tenantID, from, to)
		})
	if err != nil {
		response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, "success", value)
}

// ListTenantAgents 租户坐席列表
func (h *Handlers) ListTenantAgents(c *gin.Context) {
	tenantID := currentTenantID(c)

	value, err := h.cachedCompute(c, cache.MetricReference, cache.TenantKey(tenantID, cache.MetricReference, "agents"),
		func(ctx context.Context) (interface{}, error) {
			return models.ListAgents(h.db.WithContext(ctx), tenantID)
		})
	if err != nil {
		response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, "success", value)
}

// GetAgentMetrics 单个坐席的指标
func (h *Handlers) GetAgentMetrics(c *gin.Context) {
	tenantID := currentTenantID(c)

	agentID, err := models.ParseResourceID(c.Param("agentId"))
	if err != nil {
		response.AbortWithStatusJSON(c, http.StatusNotFound, models.ErrAccessDenied)
		return
	}

	agent, err := models.AuthorizeAgent(h.db, tenantID, agentID)
	if err != nil {
		if errors.Is(err, models.ErrAccessDenied) {
			response.AbortWithStatusJSON(c, http.StatusNotFound, err)
			return
		}
		response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
		return
	}

	from, to, err := timeRange(c)
	if err != nil {
		response.Fail(c, err.Error(), nil)
		return
	}

	defaultWindow := c.Query("from") == "" && c.Query("to") == ""
	if !defaultWindow {
		stats, err := models.GetAgentMetrics(h.db, agent, from, to)
		if err != nil {
			response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
			return
		}
		response.Success(c, "success", stats)
		return
	}

	key := cache.TenantKey(tenantID, cache.MetricAgentStats, strconv.FormatUint(uint64(agent.ID), 10))
	value, err := h.cachedCompute(c, cache.MetricAgentStats, key,
		func(ctx context.Context) (interface{}, error) {
			return models.GetAgentMetrics(h.db.WithContext(ctx), agent, from, to)
		})
	if err != nil {
		response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, "success", value)
}

// GetRecentCalls 最近通话列表
func (h *Handlers) GetRecentCalls(c *gin.Context) {
	tenantID := currentTenantID(c)

	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			response.Fail(c, "invalid limit", nil)
			return
		}
		limit = n
	}

	// 非默认分页绕过缓存
	if limit != 0 {
		records, err := models.ListRecentCalls(h.db, tenantID, limit)
		if err != nil {
			response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
			return
		}
		response.Success(c, "success", records)
		return
	}

	value, err := h.cachedCompute(c, cache.MetricRecentCalls, cache.TenantKey(tenantID, cache.MetricRecentCalls),
		func(ctx context.Context) (interface{}, error) {
			return models.ListRecentCalls(h.db.WithContext(ctx), tenantID, 0)
		})
	if err != nil {
		response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, "success", value)
}

// callDetail 通话详情与其分析结果
type callDetail struct {
	Call     *models.CallRecord   `json:"call"`
	Analysis *models.CallAnalysis `json:"analysis,omitempty"`
}

// GetCallDetail 单次通话详情
// 归属校验先于缓存读取，缓存命中不能绕过租户隔离
func (h *Handlers) GetCallDetail(c *gin.Context) {
	tenantID := currentTenantID(c)

	callID, err := models.ParseResourceID(c.Param("callId"))
	if err != nil {
		response.AbortWithStatusJSON(c, http.StatusNotFound, models.ErrAccessDenied)
		return
	}

	rec, err := models.AuthorizeCall(h.db, tenantID, callID)
	if err != nil {
		if errors.Is(err, models.ErrAccessDenied) {
			response.AbortWithStatusJSON(c, http.StatusNotFound, err)
			return
		}
		response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
		return
	}

	key := cache.TenantKey(tenantID, cache.MetricCallDetail, strconv.FormatUint(uint64(rec.ID), 10))
	value, err := h.cachedCompute(c, cache.MetricCallDetail, key,
		func(ctx context.Context) (interface{}, error) {
			analysisRow, err := models.GetCallAnalysis(h.db.WithContext(ctx), tenantID, rec.ID)
			if err != nil {
				return nil, err
			}
			return &callDetail{Call: rec, Analysis: analysisRow}, nil
		})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.AbortWithStatusJSON(c, http.StatusNotFound, models.ErrAccessDenied)
			return
		}
		response.AbortWithStatusJSON(c, http.StatusInternalServerError, err)
		return
	}
	response.Success(c, "success", value)
}
