package analysis

import (
	"strings"

	"github.com/spf13/cast"
)

// 通话渠道归属
const (
	SourcePhone    = "phone"
	SourceInternet = "internet"
	SourceUnknown  = "unknown"
)

// 动态变量里的来电标识与通话类型键名
const (
	varCallerID = "system__caller_id"
	varCallType = "system__call_type"

	// 浏览器发起的通话，提供商把 caller_id 置为该哨兵值
	callerIDInternal = "internal"
)

// webCallTypes 判定为浏览器/网页来源的 call_type 取值
var webCallTypes = map[string]bool{
	"browser":  true,
	"web":      true,
	"webcall":  true,
	"internet": true,
}

// ClassifySource 从动态变量推导通话渠道与可选的来电标识
// 规则按序匹配，首个命中生效：
//  1. 存在非哨兵的 caller_id -> phone，caller_id 即来电标识
//  2. call_type 表明浏览器来源，或 caller_id 为哨兵值 -> internet
//  3. 其余 -> unknown
//
// 全函数：任何输入都返回三个渠道之一；缺失字段以 nil 传递，
// 绝不编造联系方式占位值
func ClassifySource(vars map[string]interface{}) (source string, callerID *string) {
	caller := strings.TrimSpace(cast.ToString(vars[varCallerID]))
	if caller != "" && !strings.EqualFold(caller, callerIDInternal) {
		return SourcePhone, &caller
	}

	callType := strings.ToLower(strings.TrimSpace(cast.ToString(vars[varCallType])))
	if webCallTypes[callType] || strings.EqualFold(caller, callerIDInternal) {
		return SourceInternet, nil
	}

	return SourceUnknown, nil
}
