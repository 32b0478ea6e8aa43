package scan

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/bot"
	"github.com/zoeyai/goodscan/pkg/fuzzy"
)

// Field 相对锚点的识别区域
type Field struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// At 转换为屏幕区域
func (f Field) At(anchor auto.Point) auto.Region {
	return auto.Region{X: anchor.X + f.X, Y: anchor.Y + f.Y, Width: f.Width, Height: f.Height}
}

// Below 向下平移 n 行，每行 step 像素
func (f Field) Below(n, step int) Field {
	f.Y += n * step
	return f
}

// reader 带阈值回退的字段读取
type reader struct {
	b      *bot.Bot
	m      *fuzzy.Matcher
	policy fuzzy.Policy
	log    *logger.Logger
}

// text 以初始阈值读取一次
func (r *reader) text(ctx context.Context, region auto.Region, opts ...auto.Option) (string, error) {
	opts = append([]auto.Option{auto.WithThreshold(r.policy.Start)}, opts...)
	s, err := r.b.Read(ctx, region, opts...)
	return strings.TrimSpace(s), err
}

// match 读取文字并匹配目录，阈值逐步放宽
func (r *reader) match(ctx context.Context, region auto.Region, catalog []string) (fuzzy.Match, error) {
	m := r.m.Retry(func(threshold int) string {
		s, _ := r.b.Read(ctx, region, auto.WithThreshold(threshold))
		return s
	}, catalog, r.policy)
	return m, ctx.Err()
}

// number 读取数字字段，全部阈值解析失败时 ok 为 false
func (r *reader) number(ctx context.Context, region auto.Region, parse func(string) (int, bool)) (int, bool, error) {
	var last string
	for _, threshold := range r.policy.Thresholds() {
		s, err := r.b.Read(ctx, region, auto.WithThreshold(threshold), auto.DigitsOnly())
		if err != nil {
			return 0, false, err
		}
		if v, ok := parse(s); ok {
			return v, true, nil
		}
		last = s
	}
	r.log.Warn("数字解析失败 %s: %q", region, last)
	return 0, false, ctx.Err()
}

// level 读取 "Lv. 80/90" 形式的等级，等级须在 [1, limit] 内
func (r *reader) level(ctx context.Context, region auto.Region, limit int) (level, maxLevel int, ok bool, err error) {
	for _, threshold := range r.policy.Thresholds() {
		raw, err := r.b.Read(ctx, region, auto.WithThreshold(threshold))
		if err != nil {
			return 0, 0, false, err
		}
		if lv, mx, ok := ParseLevel(raw); ok && lv >= 1 && lv <= limit {
			return lv, mx, true, nil
		}
	}
	return 0, 0, false, ctx.Err()
}

// count 统计区域内模板出现次数
func (r *reader) count(ctx context.Context, template string, region auto.Region) (int, error) {
	matches, err := r.b.FindAll(ctx, template, auto.InRegion(region))
	return len(matches), err
}

var digitRun = regexp.MustCompile(`\d+`)

// ParseInt 提取文本中的第一段数字
func ParseInt(s string) (int, bool) {
	m := digitRun.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseLevel 解析等级文本，如 "Lv. 80/90"、"80/90"、"Lv.80"
func ParseLevel(s string) (level, maxLevel int, ok bool) {
	nums := digitRun.FindAllString(s, 2)
	if len(nums) == 0 {
		return 0, 0, false
	}
	level, _ = strconv.Atoi(nums[0])
	if len(nums) > 1 {
		maxLevel, _ = strconv.Atoi(nums[1])
	}
	return level, maxLevel, true
}

// CorrectArtifactLevel 修正圣遗物等级：OCR 常把 "+" 识别成 "4" 或 "1"，
// 超过 20 时去掉首位数字，仍超过 20 时取 20。无法解析时为 0。
func CorrectArtifactLevel(s string) int {
	m := digitRun.FindString(strings.TrimPrefix(strings.TrimSpace(s), "+"))
	if m == "" {
		return 0
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	if v > 20 && len(m) > 1 {
		v, _ = strconv.Atoi(m[1:])
	}
	if v > 20 {
		v = 20
	}
	return v
}

// CheckValidCharacterLevel 按突破等级校验角色等级，超出区间时取最近的边界
func CheckValidCharacterLevel(level, ascension int) int {
	var lo, hi int
	switch ascension {
	case 6:
		lo, hi = 80, 90
	case 5:
		lo, hi = 70, 80
	case 4:
		lo, hi = 60, 70
	case 3:
		lo, hi = 50, 60
	case 2:
		lo, hi = 40, 50
	case 1:
		lo, hi = 20, 40
	default:
		return level
	}
	if level < lo || level > hi {
		logger.Debug("角色等级 %d 不符合突破 %d 的区间 [%d, %d]，已修正", level, ascension, lo, hi)
	}
	return auto.Clamp(level, lo, hi)
}

// AscensionFromMaxLevel 由等级上限推算突破等级
func AscensionFromMaxLevel(maxLevel int) (int, bool) {
	switch maxLevel {
	case 90:
		return 6, true
	case 80:
		return 5, true
	case 70:
		return 4, true
	case 60:
		return 3, true
	case 50:
		return 2, true
	case 40:
		return 1, true
	case 20:
		return 0, true
	}
	return 0, false
}

// ClampRefinement 精炼等级：无法解析或为 0 时取 1，超过 5 时取 5
func ClampRefinement(s string) int {
	v, ok := ParseInt(s)
	if !ok || v <= 0 {
		return 1
	}
	return min(v, 5)
}

// parseEquipped 提取 "Equipped: Hu Tao" 中的角色名
func parseEquipped(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ":："); i >= 0 {
		_, size := utf8.DecodeRuneInString(s[i:])
		s = s[i+size:]
	}
	return strings.TrimSpace(s)
}
