// Package fuzzy 负责把 OCR 文本校正为目录中的标准键名
package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 直接删除、不产生分词的字符
var dropped = map[rune]bool{
	'\'': true, '’': true, '‘': true, '`': true, '´': true,
	'"': true, '“': true, '”': true,
	'(': true, ')': true, '（': true, '）': true,
	':': true, '：': true,
}

// Normalize 把任意文本转换为 PascalCase 键名，如 "Wolf's Gravestone" -> "WolfsGravestone"。
// 去除变音符号与引号括号冒号，其余非字母数字字符视为分词符，每个词首字母大写后拼接。
// 结果只包含字母与数字，再次 Normalize 不会改变。
func Normalize(s string) string {
	s = stripDiacritics(s)

	var b strings.Builder
	b.Grow(len(s))
	upperNext := true
	for _, r := range s {
		switch {
		case dropped[r]:
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upperNext {
				r = unicode.ToUpper(r)
				upperNext = false
			}
			b.WriteRune(r)
		default:
			upperNext = true
		}
	}
	return stripDiacritics(b.String())
}

// Fold 归一化后再转小写，用于大小写无关的比较
func Fold(s string) string {
	return strings.ToLower(Normalize(s))
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
