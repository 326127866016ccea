package analysis

import (
	"fmt"
	"strings"
)

// MissingAnalysisDataError 在 data_collection_results 中找不到任何候选键时返回
// 携带实际观察到的键集合，便于排查提供商侧的配置变更
type MissingAnalysisDataError struct {
	ObservedKeys []string
}

func (e *MissingAnalysisDataError) Error() string {
	if len(e.ObservedKeys) == 0 {
		return "analysis data not found: data_collection_results is empty"
	}
	return fmt.Sprintf("analysis data not found: tried %s, observed keys [%s]",
		strings.Join(analysisKeyCandidates, ", "), strings.Join(e.ObservedKeys, ", "))
}

// maxNormalizedInError ParseError 中保留的归一化文本长度上限
const maxNormalizedInError = 500

// ParseError 归一化后的文本仍无法解析为 JSON 时返回
// Normalized 为截断后的归一化文本，仅用于调试
type ParseError struct {
	Normalized string
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("analysis payload parse failed: %v (normalized: %q)", e.Err, e.Normalized)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(normalized string, err error) *ParseError {
	if len(normalized) > maxNormalizedInError {
		normalized = normalized[:maxNormalizedInError] + "..."
	}
	return &ParseError{Normalized: normalized, Err: err}
}
