package fuzzy

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zoeyai/goodscan/internal/logger"
)

// DefaultThreshold 默认相似度阈值
const DefaultThreshold = 0.8

// Match 校正结果
type Match struct {
	// Key 目录键名；未命中时为归一化后的原始文本
	Key string
	// Raw OCR 原始文本
	Raw string
	// Score 相似度 (0-1)
	Score float64
	// Found 是否命中目录
	Found bool
}

// Similarity 计算两个字符串的相似度，1 - 编辑距离/较长串长度，大小写无关
func Similarity(a, b string) float64 {
	a, b = Fold(a), Fold(b)
	if a == b {
		return 1
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	dist := dmp.DiffLevenshtein(diffs)

	score := 1 - float64(dist)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

// Matcher 目录匹配器
type Matcher struct {
	// Threshold 相似度阈值
	Threshold float64
	// Corrections OCR 易混淆名称的直接修正表，键为归一化小写文本
	Corrections map[string]string
}

// NewMatcher 创建匹配器，corrections 的键会被归一化
func NewMatcher(threshold float64, corrections map[string]string) *Matcher {
	fixed := make(map[string]string, len(corrections))
	for raw, key := range corrections {
		fixed[Fold(raw)] = key
	}
	return &Matcher{Threshold: threshold, Corrections: fixed}
}

// Resolve 使用包级默认设置匹配
func Resolve(raw string, catalog []string, threshold float64) (Match, bool) {
	m := Matcher{Threshold: threshold}
	return m.Resolve(raw, catalog)
}

// Resolve 把 raw 匹配到 catalog 中的键名。
// 顺序：易混淆修正表 -> 归一化后完全相同 -> 按目录顺序第一个分数达到阈值的条目。
func (m *Matcher) Resolve(raw string, catalog []string) (Match, bool) {
	folded := Fold(raw)
	result := Match{Key: Normalize(raw), Raw: raw}
	if folded == "" {
		return result, false
	}

	if key, ok := m.Corrections[folded]; ok {
		result.Key, result.Score, result.Found = key, 1, true
		return result, true
	}

	for _, entry := range catalog {
		if Fold(entry) == folded {
			result.Key, result.Score, result.Found = entry, 1, true
			return result, true
		}
	}

	best := 0.0
	for _, entry := range catalog {
		score := Similarity(folded, entry)
		if score >= m.Threshold {
			result.Key, result.Score, result.Found = entry, score, true
			return result, true
		}
		if score > best {
			best = score
		}
	}

	result.Score = best
	return result, false
}

// Policy OCR 重试策略：二值化阈值从 Start 起每次递减 Step，共 Attempts 次
type Policy struct {
	Start    int
	Step     int
	Attempts int
}

// DefaultPolicy 默认重试策略
var DefaultPolicy = Policy{Start: 170, Step: 10, Attempts: 5}

// Thresholds 返回按顺序尝试的阈值
func (p Policy) Thresholds() []int {
	n := max(p.Attempts, 1)
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		t := p.Start - i*p.Step
		if t < 0 {
			break
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		out = append(out, 0)
	}
	return out
}

// Reader 以给定二值化阈值读取一次文本
type Reader func(threshold int) string

// Retry 逐步放宽阈值重读文本直到命中目录。
// 全部失败时返回得分最高一次的归一化原文，Found 为 false。
func (m *Matcher) Retry(read Reader, catalog []string, p Policy) Match {
	var best Match
	for _, threshold := range p.Thresholds() {
		raw := read(threshold)
		match, ok := m.Resolve(raw, catalog)
		if ok {
			if threshold != p.Start {
				logger.Debug("OCR 在阈值 %d 命中: %q -> %s", threshold, raw, match.Key)
			}
			return match
		}
		if best.Key == "" || match.Score > best.Score {
			best = match
		}
	}

	logger.Warn("目录中未找到匹配，保留原文: %q (最高相似度 %.2f)", best.Raw, best.Score)
	return best
}
