package scan

import (
	"context"
	"fmt"

	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/fuzzy"
	"github.com/zoeyai/goodscan/pkg/scroll"
)

// ItemLayout 武器与圣遗物详情面板的识别区域，相对背包图标
type ItemLayout struct {
	Anchor   string `json:"anchor"`
	Name     Field  `json:"name"`
	Stars    Field  `json:"stars"`
	Level    Field  `json:"level"`
	Equipped Field  `json:"equipped"`
	Lock     Field  `json:"lock"`

	// 武器
	Ascension  Field `json:"ascension"`
	Refinement Field `json:"refinement"`

	// 圣遗物
	Set         Field `json:"set"`
	Slot        Field `json:"slot"`
	MainStat    Field `json:"main_stat"`
	ArtifactLvl Field `json:"artifact_level"`
	Substat     Field `json:"substat"`
	SubstatStep int   `json:"substat_step"`
}

// DefaultItemLayout 1920x1080 下的默认区域
func DefaultItemLayout() ItemLayout {
	return ItemLayout{
		Anchor:   "backpack",
		Name:     Field{1480, 97, 550, 55},
		Stars:    Field{1480, 330, 300, 50},
		Level:    Field{1535, 480, 105, 30},
		Equipped: Field{1450, 960, 450, 45},
		Lock:     Field{1850, 470, 80, 80},

		Ascension:  Field{1480, 440, 350, 40},
		Refinement: Field{1490, 530, 35, 35},

		Set:         Field{1480, 700, 550, 45},
		Slot:        Field{1480, 170, 350, 40},
		MainStat:    Field{1480, 250, 350, 40},
		ArtifactLvl: Field{1490, 420, 90, 35},
		Substat:     Field{1495, 470, 500, 40},
		SubstatStep: 45,
	}
}

// 武器突破失败次数达到该值时降低起始探测等级
const ascensionFailureLimit = 5

// TierOptions 星级扫描选项
type TierOptions struct {
	Tiers        []int
	OnlyLocked   bool
	MaxEmptyRows int
}

// itemPanel 武器与圣遗物共用的读取逻辑
type itemPanel struct {
	d      Deps
	r      *reader
	layout ItemLayout
	anchor auto.Point
}

func (p *itemPanel) locate(ctx context.Context, category string) error {
	m, err := p.d.Bot.Find(ctx, p.layout.Anchor, auto.WithAttempts(3))
	if err != nil {
		return wrapCancel(category, err)
	}
	if m == nil {
		return &NavigationError{Category: category, Template: p.layout.Anchor}
	}
	p.anchor = m.Center
	return nil
}

func (p *itemPanel) region(f Field) auto.Region {
	return f.At(p.anchor)
}

// ReadRarity 统计详情面板中的星星数
func (p *itemPanel) ReadRarity(ctx context.Context) (int, error) {
	return p.r.count(ctx, "detail_star", p.region(p.layout.Stars))
}

// Locked 详情面板是否显示锁定图标
func (p *itemPanel) Locked(ctx context.Context) (bool, error) {
	return p.d.Bot.Exists(ctx, "locked", auto.InRegion(p.region(p.layout.Lock)))
}

// equipped 读取装备者，返回角色键名，未装备时为空
func (p *itemPanel) equipped(ctx context.Context) (string, error) {
	raw, err := p.r.text(ctx, p.region(p.layout.Equipped))
	if err != nil {
		return "", err
	}
	name := parseEquipped(raw)
	if name == "" || raw == name {
		return "", nil
	}
	return resolveCharacter(p.d, p.r.m, name), nil
}

// resolveCharacter 把角色名转换为键名，自定义的旅行者与流浪者名称优先
func resolveCharacter(d Deps, m *fuzzy.Matcher, raw string) string {
	if key, ok := d.Aliases[fuzzy.Fold(raw)]; ok {
		return key
	}
	match, _ := m.Resolve(raw, d.Ref.CharacterKeys())
	return match.Key
}

// WeaponScanner 武器扫描
type WeaponScanner struct {
	itemPanel
	opts   TierOptions
	scroll *scroll.Controller

	ascStart    int
	ascFailures int
}

// NewWeaponScanner 创建武器扫描器
func NewWeaponScanner(d Deps, opts TierOptions) *WeaponScanner {
	return &WeaponScanner{
		itemPanel: itemPanel{d: d, r: d.reader(CategoryWeapons), layout: d.itemLayout()},
		opts:      opts,
		scroll:    scroll.New(d.Bot, d.Scroll),
	}
}

// Reset 每次扫描开始时恢复突破探测的起始等级
func (s *WeaponScanner) Reset() {
	s.ascStart, s.ascFailures = 6, 0
}

// AscensionStart 当前突破探测起始等级
func (s *WeaponScanner) AscensionStart() int {
	return s.ascStart
}

// Run 扫描所有启用星级的武器
func (s *WeaponScanner) Run(ctx context.Context) ([]Weapon, error) {
	if err := EnterCategory(ctx, s.d.Bot, CategoryWeapons); err != nil {
		return nil, err
	}
	if err := s.locate(ctx, CategoryWeapons); err != nil {
		return nil, err
	}
	if err := s.scroll.ResetToTop(ctx, true); err != nil {
		return nil, wrapCancel(CategoryWeapons, err)
	}

	engine := NewTierScanner[Weapon](s.d.Bot, s.scroll, s, TierConfig{
		Category:     CategoryWeapons,
		Tiers:        s.opts.Tiers,
		OnlyLocked:   s.opts.OnlyLocked,
		MaxEmptyRows: s.opts.MaxEmptyRows,
	})
	return engine.Run(ctx)
}

// ReadSingle 只读取当前选中的武器
func (s *WeaponScanner) ReadSingle(ctx context.Context) (Weapon, error) {
	s.Reset()
	if err := s.locate(ctx, CategoryWeapons); err != nil {
		return Weapon{}, err
	}
	name, err := s.ReadName(ctx)
	if err != nil {
		return Weapon{}, wrapCancel(CategoryWeapons, err)
	}
	rarity, err := s.ReadRarity(ctx)
	if err != nil {
		return Weapon{}, wrapCancel(CategoryWeapons, err)
	}
	w, err := s.ReadFields(ctx, name, rarity)
	return w, wrapCancel(CategoryWeapons, err)
}

// ReadName 读取武器名称并匹配目录
func (s *WeaponScanner) ReadName(ctx context.Context) (string, error) {
	m, err := s.r.match(ctx, s.region(s.layout.Name), s.d.Ref.WeaponKeys())
	return m.Key, err
}

// ReadFields 读取等级、突破、精炼、装备者与锁定状态
func (s *WeaponScanner) ReadFields(ctx context.Context, name string, rarity int) (Weapon, error) {
	w := Weapon{Key: name, Rarity: rarity, Level: 1, Refinement: 1}

	level, maxLevel, ok, err := s.r.level(ctx, s.region(s.layout.Level), 90)
	if err != nil {
		return w, err
	}
	if ok {
		w.Level = level
	}

	asc, found, err := s.detectAscension(ctx)
	if err != nil {
		return w, err
	}
	if !found {
		asc, _ = AscensionFromMaxLevel(maxLevel)
	}
	w.Ascension = asc

	raw, err := s.r.text(ctx, s.region(s.layout.Refinement), auto.DigitsOnly())
	if err != nil {
		return w, err
	}
	w.Refinement = ClampRefinement(raw)
	if rarity <= 2 {
		// 1-2 星武器不能精炼
		w.Refinement = 1
	}

	if w.Location, err = s.equipped(ctx); err != nil {
		return w, err
	}
	if w.Lock, err = s.Locked(ctx); err != nil {
		return w, err
	}
	return w, nil
}

// detectAscension 从起始等级向下探测突破星标，起始等级连续失败多次后永久降低
func (s *WeaponScanner) detectAscension(ctx context.Context) (int, bool, error) {
	region := auto.InRegion(s.region(s.layout.Ascension))
	start := s.ascStart
	for level := start; level >= 0; level-- {
		found, err := s.d.Bot.Exists(ctx, fmt.Sprintf("weapon_ascension_%d", level), region)
		if err != nil {
			return 0, false, err
		}
		if level == start {
			if found {
				s.ascFailures = 0
			} else {
				s.ascFailures++
				if s.ascFailures >= ascensionFailureLimit && start > 0 {
					s.ascStart = start - 1
					s.ascFailures = 0
					s.r.log.Debug("突破 %d 连续 %d 次未命中，起始探测等级降为 %d", level, ascensionFailureLimit, s.ascStart)
				}
			}
		}
		if found {
			return level, true, nil
		}
	}
	return 0, false, nil
}

// itemLayout 返回详情面板布局，未配置时使用默认值
func (d Deps) itemLayout() ItemLayout {
	if d.Items.Anchor == "" {
		return DefaultItemLayout()
	}
	return d.Items
}

// 保证 WeaponScanner 实现了扫描引擎需要的接口
var (
	_ Extractor[Weapon] = (*WeaponScanner)(nil)
	_ LockReader        = (*WeaponScanner)(nil)
	_ Resetter          = (*WeaponScanner)(nil)
)
