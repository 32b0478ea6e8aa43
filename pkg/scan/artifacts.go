package scan

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/zoeyai/goodscan/pkg/catalog"
	"github.com/zoeyai/goodscan/pkg/fuzzy"
	"github.com/zoeyai/goodscan/pkg/scroll"
)

// MaxSubstats 圣遗物副属性数量上限
const MaxSubstats = 4

// ArtifactScanner 圣遗物扫描
type ArtifactScanner struct {
	itemPanel
	opts   TierOptions
	scroll *scroll.Controller
}

// NewArtifactScanner 创建圣遗物扫描器
func NewArtifactScanner(d Deps, opts TierOptions) *ArtifactScanner {
	return &ArtifactScanner{
		itemPanel: itemPanel{d: d, r: d.reader(CategoryArtifacts), layout: d.itemLayout()},
		opts:      opts,
		scroll:    scroll.New(d.Bot, d.Scroll),
	}
}

// Run 扫描所有启用星级的圣遗物
func (s *ArtifactScanner) Run(ctx context.Context) ([]Artifact, error) {
	if err := EnterCategory(ctx, s.d.Bot, CategoryArtifacts); err != nil {
		return nil, err
	}
	if err := s.locate(ctx, CategoryArtifacts); err != nil {
		return nil, err
	}
	if err := s.scroll.ResetToTop(ctx, true); err != nil {
		return nil, wrapCancel(CategoryArtifacts, err)
	}

	engine := NewTierScanner[Artifact](s.d.Bot, s.scroll, s, TierConfig{
		Category:     CategoryArtifacts,
		Tiers:        s.opts.Tiers,
		OnlyLocked:   s.opts.OnlyLocked,
		MaxEmptyRows: s.opts.MaxEmptyRows,
	})
	return engine.Run(ctx)
}

// ReadSingle 只读取当前选中的圣遗物
func (s *ArtifactScanner) ReadSingle(ctx context.Context) (Artifact, error) {
	if err := s.locate(ctx, CategoryArtifacts); err != nil {
		return Artifact{}, err
	}
	name, err := s.ReadName(ctx)
	if err != nil {
		return Artifact{}, wrapCancel(CategoryArtifacts, err)
	}
	rarity, err := s.ReadRarity(ctx)
	if err != nil {
		return Artifact{}, wrapCancel(CategoryArtifacts, err)
	}
	a, err := s.ReadFields(ctx, name, rarity)
	return a, wrapCancel(CategoryArtifacts, err)
}

// ReadName 读取套装名称并匹配目录
func (s *ArtifactScanner) ReadName(ctx context.Context) (string, error) {
	m, err := s.r.match(ctx, s.region(s.layout.Set), s.d.Ref.SetKeys())
	return m.Key, err
}

// ReadFields 读取部位、主属性、等级、副属性、装备者与锁定状态
func (s *ArtifactScanner) ReadFields(ctx context.Context, set string, rarity int) (Artifact, error) {
	ref := s.d.Ref
	a := Artifact{SetKey: set, Rarity: rarity}

	slot, err := s.r.match(ctx, s.region(s.layout.Slot), ref.SlotTexts())
	if err != nil {
		return a, err
	}
	a.SlotKey, _ = ref.SlotKey(slot.Key)
	if a.SlotKey == "" {
		s.r.log.Warn("无法识别圣遗物部位: %q", slot.Raw)
	}

	if a.MainStatKey, err = s.mainStat(ctx, a.SlotKey); err != nil {
		return a, err
	}

	level, ok, err := s.r.number(ctx, s.region(s.layout.ArtifactLvl), func(raw string) (int, bool) {
		if _, ok := ParseInt(raw); !ok {
			return 0, false
		}
		return CorrectArtifactLevel(raw), true
	})
	if err != nil {
		return a, err
	}
	if ok {
		a.Level = min(level, ref.MaxArtifactLevel(rarity))
	}
	if v, ok := ref.MainStatValue(rarity, a.MainStatKey, a.Level); ok {
		a.MainStatValue = v
	}

	if a.Substats, err = s.substats(ctx); err != nil {
		return a, err
	}
	if a.Location, err = s.equipped(ctx); err != nil {
		return a, err
	}
	if a.Lock, err = s.Locked(ctx); err != nil {
		return a, err
	}
	return a, nil
}

// mainStat 生之花固定为生命值，死之羽固定为攻击力，其余部位识别主属性名称
func (s *ArtifactScanner) mainStat(ctx context.Context, slot string) (string, error) {
	switch slot {
	case catalog.SlotFlower:
		return "hp", nil
	case catalog.SlotPlume:
		return "atk", nil
	}

	m, err := s.r.match(ctx, s.region(s.layout.MainStat), s.d.Ref.StatTexts())
	if err != nil || !m.Found {
		if err == nil {
			s.r.log.Warn("无法识别主属性: %q", m.Raw)
		}
		return "", err
	}
	return MainStatKey(s.d.Ref, slot, m.Key), nil
}

// MainStatKey 主属性显示名转换为键名：优先取该部位允许的百分比属性
func MainStatKey(ref *catalog.ReferenceData, slot, text string) string {
	allowed := ref.MainStats(slot)
	percent, _ := ref.StatKey(text, true)
	flat, _ := ref.StatKey(text, false)
	if lo.Contains(allowed, percent) {
		return percent
	}
	if lo.Contains(allowed, flat) {
		return flat
	}
	return percent
}

// substats 逐行读取副属性，遇到空行或无法解析的行停止
func (s *ArtifactScanner) substats(ctx context.Context) ([]Substat, error) {
	subs := make([]Substat, 0, MaxSubstats)
	for i := 0; i < MaxSubstats; i++ {
		field := s.layout.Substat.Below(i, s.layout.SubstatStep)
		line, err := s.r.text(ctx, s.region(field))
		if err != nil {
			return nil, err
		}
		sub, ok := ParseSubstat(s.d.Ref, s.r.m, line)
		if !ok {
			if line != "" {
				s.r.log.Warn("副属性解析失败: %q", line)
			}
			break
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// ParseSubstat 解析副属性行，如 "CRIT Rate+3.9%"、"HP+1"。
// 名称按 '+' 分割后匹配属性表，带 '%' 时使用百分比键名。
// 固定值属性只有一位数字时视为 OCR 漏读了重复数字，d 修正为 d*11。
func ParseSubstat(ref *catalog.ReferenceData, m *fuzzy.Matcher, line string) (Substat, bool) {
	line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "·•-"))
	i := strings.LastIndex(line, "+")
	if i <= 0 {
		return Substat{}, false
	}

	name := strings.TrimSpace(line[:i])
	valueText := strings.TrimSpace(line[i+1:])
	percent := strings.Contains(valueText, "%")
	valueText = strings.NewReplacer("%", "", ",", "", " ", "").Replace(valueText)

	value, err := strconv.ParseFloat(valueText, 64)
	if err != nil || value <= 0 {
		return Substat{}, false
	}

	match, ok := m.Resolve(name, ref.StatTexts())
	if !ok {
		return Substat{}, false
	}
	key, ok := ref.StatKey(match.Key, percent)
	if !ok {
		return Substat{}, false
	}

	if !catalog.IsPercentStat(key) && value < 10 && value == math.Trunc(value) {
		value *= 11
	}
	return Substat{Key: key, Value: value}, true
}

var (
	_ Extractor[Artifact] = (*ArtifactScanner)(nil)
	_ LockReader          = (*ArtifactScanner)(nil)
)
