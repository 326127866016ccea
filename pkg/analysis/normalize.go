package analysis

import (
	"regexp"
	"strconv"
	"strings"
)

// 提供商的分析 blob 来自其脚本环境，字面量词汇与引号风格均不是标准 JSON：
// True/False/None 裸词、单双引号混用。归一化分两步：
// 先把字符串字面量抽取为占位符（避免替换波及字符串内容），
// 再替换裸词字面量，最后以 JSON 双引号形式还原字符串。

var bareLiteralRe = regexp.MustCompile(`\b(True|False|None)\b`)

// NormalizeLiteral 将提供商的类 JSON 文本归一化为标准 JSON
func NormalizeLiteral(s string) string {
	text, literals := protectStringLiterals(s)
	text = normalizeBareLiterals(text)
	return restoreStringLiterals(text, literals)
}

func placeholder(i int) string {
	return "\x00" + strconv.Itoa(i) + "\x00"
}

// protectStringLiterals 抽取全部字符串字面量并替换为占位符
// 双引号字面量原样保留；单引号字面量转换为合法的 JSON 双引号字面量：
// 反转义 \' 为 '、\" 为 "，再把内嵌的 " 统一转义为 \"
func protectStringLiterals(s string) (string, []string) {
	var (
		out      strings.Builder
		literals []string
	)

	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '"':
			j := scanString(s, i, '"')
			literals = append(literals, s[i:j])
			out.WriteString(placeholder(len(literals) - 1))
			i = j
		case '\'':
			j := scanString(s, i, '\'')
			inner := s[i+1 : j-1]
			inner = strings.ReplaceAll(inner, `\'`, `'`)
			inner = strings.ReplaceAll(inner, `\"`, `"`)
			inner = strings.ReplaceAll(inner, `"`, `\"`)
			literals = append(literals, `"`+inner+`"`)
			out.WriteString(placeholder(len(literals) - 1))
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String(), literals
}

// scanString 从 start（指向开引号）扫描到闭引号之后，返回下一个位置
// 反斜杠转义不终结字面量；未闭合时返回文本末尾
func scanString(s string, start int, quote byte) int {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++ // 跳过被转义的字符
		case quote:
			return i + 1
		}
	}
	return len(s)
}

// normalizeBareLiterals 替换裸词字面量为 JSON 词汇
// 调用前必须已抽走字符串字面量，否则会破坏字符串内容
func normalizeBareLiterals(s string) string {
	return bareLiteralRe.ReplaceAllStringFunc(s, func(m string) string {
		switch m {
		case "True":
			return "true"
		case "False":
			return "false"
		default:
			return "null"
		}
	})
}

// restoreStringLiterals 将占位符还原为 JSON 字符串字面量
func restoreStringLiterals(s string, literals []string) string {
	for i, lit := range literals {
		s = strings.Replace(s, placeholder(i), lit, 1)
	}
	return s
}
