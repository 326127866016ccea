package analysis

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// analysisKeyCandidates data_collection_results 中分析结果的候选键名
// 按序尝试，首个命中者生效；提供商侧的采集项命名历史上出现过多个变体
var analysisKeyCandidates = []string{
	"default",
	"call_analysis",
	"lead_analysis",
	"analysis",
	"extraction",
}

const (
	minScore = 0
	maxScore = 100
)

// CategoryScore 单个评分维度，未识别的子字段保持 nil 而不是编造默认值
type CategoryScore struct {
	Label     *string `json:"label"`
	Score     *int    `json:"score"`
	Reasoning *string `json:"reasoning"`
}

// Result 归一化后的通话分析结果
type Result struct {
	Intent     CategoryScore `json:"intent"`
	Urgency    CategoryScore `json:"urgency"`
	Budget     CategoryScore `json:"budget"`
	Fit        CategoryScore `json:"fit"`
	Engagement CategoryScore `json:"engagement"`

	TotalScore    *int    `json:"totalScore"`
	LeadStatusTag *string `json:"leadStatusTag"`

	CTAPricingClicked   *bool `json:"ctaPricingClicked"`
	CTADemoClicked      *bool `json:"ctaDemoClicked"`
	CTAFollowupClicked  *bool `json:"ctaFollowupClicked"`
	CTAEscalatedToHuman *bool `json:"ctaEscalatedToHuman"`
}

// ExtractAnalysisValue 在 data_collection_results 容器中定位分析文本
// 采集项的值可能是 {"value": "..."} 对象或裸字符串
func ExtractAnalysisValue(results map[string]interface{}) (string, error) {
	for _, key := range analysisKeyCandidates {
		raw, ok := results[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			return v, nil
		case map[string]interface{}:
			if s, ok := v["value"].(string); ok {
				return s, nil
			}
		}
	}

	observed := make([]string, 0, len(results))
	for k := range results {
		observed = append(observed, k)
	}
	sort.Strings(observed)
	return "", &MissingAnalysisDataError{ObservedKeys: observed}
}

// ParseAnalysis 定位、归一化并解析分析文本
// 纯函数：相同输入总是产生相同输出或相同错误
func ParseAnalysis(results map[string]interface{}) (*Result, error) {
	value, err := ExtractAnalysisValue(results)
	if err != nil {
		return nil, err
	}

	normalized := NormalizeLiteral(value)

	var m map[string]interface{}
	if err := json.Unmarshal([]byte(normalized), &m); err != nil {
		return nil, newParseError(normalized, err)
	}

	reasoning, _ := m["reasoning"].(map[string]interface{})

	result := &Result{
		Intent:     categoryOf(m, reasoning, "intent_level", "intent_score", "intent"),
		Urgency:    categoryOf(m, reasoning, "urgency_level", "urgency_score", "urgency"),
		Budget:     categoryOf(m, reasoning, "budget_constraint", "budget_score", "budget"),
		Fit:        categoryOf(m, reasoning, "fit_alignment", "fit_score", "fit"),
		Engagement: categoryOf(m, reasoning, "engagement_health", "engagement_score", "engagement"),

		TotalScore:    scorePtr(m["total_score"]),
		LeadStatusTag: stringPtr(m["lead_status_tag"]),

		CTAPricingClicked:   yesNoPtr(m["cta_pricing_clicked"]),
		CTADemoClicked:      yesNoPtr(m["cta_demo_clicked"]),
		CTAFollowupClicked:  yesNoPtr(m["cta_followup_clicked"]),
		CTAEscalatedToHuman: yesNoPtr(m["cta_escalated_to_human"]),
	}

	return result, nil
}

func categoryOf(m, reasoning map[string]interface{}, labelKey, scoreKey, reasoningKey string) CategoryScore {
	var r *string
	if reasoning != nil {
		r = stringPtr(reasoning[reasoningKey])
	}
	return CategoryScore{
		Label:     stringPtr(m[labelKey]),
		Score:     scorePtr(m[scoreKey]),
		Reasoning: r,
	}
}

// stringPtr 字符串字段，空值或非字符串类值归 nil
func stringPtr(v interface{}) *string {
	if v == nil {
		return nil
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return nil
	}
	return &s
}

// scorePtr 数值评分，不可解析时归 nil，可解析时钳制到 [0, 100]
func scorePtr(v interface{}) *int {
	if v == nil {
		return nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return nil
	}
	if n < minScore {
		n = minScore
	}
	if n > maxScore {
		n = maxScore
	}
	return &n
}

// yesNoPtr 显式的 "Yes"/"No" 转布尔，绝不依赖真值判断
// 其他取值（包括空串）归 nil
func yesNoPtr(v interface{}) *bool {
	if v == nil {
		return nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		b := true
		return &b
	case "no":
		b := false
		return &b
	default:
		return nil
	}
}
