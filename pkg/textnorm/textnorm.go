// Package textnorm 提供曲名/艺人名匹配用的字符串归一化。
//
// 规则：
//   - Unicode NFKC 兼容分解后再组合（全角字母、连字等统一形态）
//   - Unicode 大小写折叠（cases.Fold），比 strings.ToLower 覆盖更多语言
//   - 首尾空白去除，连续空白折叠为单个空格
//
// 标点与括号内容不做剔除：曲名中的 "(Live)"、"Remastered" 属于区分不同版本的信息。
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold 返回归一化后的字符串。
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// cases.Caser 非并发安全，每次调用新建
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}

// Equal 判断两个字符串在归一化后是否完全相同。
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Contains 判断 needle 归一化后是否为 haystack 归一化后的子串。
// needle 归一化后为空时返回 false。
func Contains(haystack, needle string) bool {
	n := Fold(needle)
	if n == "" {
		return false
	}
	return strings.Contains(Fold(haystack), n)
}
