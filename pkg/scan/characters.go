package scan

import (
	"context"
	"time"

	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/auto/grid"
	"github.com/zoeyai/goodscan/pkg/catalog"
	"github.com/zoeyai/goodscan/pkg/scroll"
)

// 天赋等级上限
const (
	MinTalent = 1
	MaxTalent = 13
)

// CharacterLayout 角色列表与详情页布局。详情页字段相对 Exit 模板
type CharacterLayout struct {
	// Anchor 角色列表起始位置模板
	Anchor string      `json:"anchor"`
	Grid   grid.Layout `json:"grid"`
	// Entry 从背包进入角色页的按钮
	Entry string `json:"entry"`
	// Back 详情页返回列表的按钮
	Back string `json:"back"`
	// Exit 详情页关闭按钮，字段区域的原点
	Exit string `json:"exit"`
	// Confirm、LevelUp 打开详情页的按钮，优先 Confirm
	Confirm string `json:"confirm"`
	LevelUp string `json:"level_up"`

	Name           Field `json:"name"`
	Level          Field `json:"level"`
	AscensionStars Field `json:"ascension_stars"`

	ConstellationTab string `json:"constellation_tab"`
	Constellations   Field  `json:"constellations"`

	TalentTab  string `json:"talent_tab"`
	Talent     Field  `json:"talent"`
	TalentStep int    `json:"talent_step"`

	// OpenDelay 打开详情或切换标签后的等待
	OpenDelay time.Duration `json:"open_delay"`
}

// DefaultCharacterLayout 1920x1080 下的默认布局
func DefaultCharacterLayout() CharacterLayout {
	return CharacterLayout{
		Anchor:  "character_grid_starting_location",
		Grid:    grid.CharacterLayout,
		Entry:   "character",
		Back:    "character_grid",
		Exit:    "exit_inventory",
		Confirm: "character_confirm",
		LevelUp: "character_level_up",

		Name:           Field{-1780, 70, 420, 55},
		Level:          Field{-1780, 200, 260, 40},
		AscensionStars: Field{-1780, 250, 300, 40},

		ConstellationTab: "character_constellation",
		Constellations:   Field{-700, 120, 560, 820},

		TalentTab:  "character_talents",
		Talent:     Field{-330, 150, 120, 40},
		TalentStep: 110,

		OpenDelay: time.Second,
	}
}

func (d Deps) characterLayout() CharacterLayout {
	if d.Characters.Anchor == "" {
		return DefaultCharacterLayout()
	}
	return d.Characters
}

// CharacterScanner 角色扫描
type CharacterScanner struct {
	d      Deps
	r      *reader
	layout CharacterLayout
	scroll *scroll.Controller

	// 当前详情页的关闭按钮位置，找不到时 opened 为 false
	exit   auto.Point
	opened bool
}

// NewCharacterScanner 创建角色扫描器
func NewCharacterScanner(d Deps) *CharacterScanner {
	return &CharacterScanner{
		d:      d,
		r:      d.reader(CategoryCharacters),
		layout: d.characterLayout(),
		scroll: scroll.New(d.Bot, d.Scroll),
	}
}

// EnterCharacters 从背包进入角色列表：关闭背包，打开角色页，切换到列表视图
func EnterCharacters(ctx context.Context, d Deps) error {
	layout := d.characterLayout()
	for _, template := range []string{layout.Exit, layout.Entry, layout.Back} {
		pressed, err := d.Bot.FindAndPress(ctx, template, auto.WithAttempts(3))
		if err != nil {
			return wrapCancel(CategoryCharacters, err)
		}
		if !pressed {
			return &NavigationError{Category: CategoryCharacters, Template: template}
		}
		if err := d.Bot.Wait(ctx, layout.OpenDelay); err != nil {
			return wrapCancel(CategoryCharacters, err)
		}
	}
	return nil
}

// Run 逐格扫描角色列表，重复角色出现时结束
func (s *CharacterScanner) Run(ctx context.Context) ([]Character, error) {
	if err := EnterCharacters(ctx, s.d); err != nil {
		return nil, err
	}

	g := NewGridScanner[Character](s.d.Bot, s, GridConfig{
		Category: CategoryCharacters,
		Layout:   s.layout.Grid,
		Anchor:   s.layout.Anchor,
	}, func(ctx context.Context, _ int) error {
		return s.scroll.ScrollCharacterRow(ctx)
	})
	return g.Run(ctx)
}

// ReadSingle 读取当前打开的角色详情
func (s *CharacterScanner) ReadSingle(ctx context.Context) (Character, error) {
	if err := s.locateExit(ctx); err != nil {
		return Character{}, wrapCancel(CategoryCharacters, err)
	}
	if !s.opened {
		return Character{}, &NavigationError{Category: CategoryCharacters, Template: s.layout.Exit}
	}
	name, err := s.ReadName(ctx)
	if err != nil || name == "" {
		return Character{}, wrapCancel(CategoryCharacters, err)
	}
	c, err := s.ReadFields(ctx, name, auto.Point{}, 0)
	return c, wrapCancel(CategoryCharacters, err)
}

// Select 打开角色详情页
func (s *CharacterScanner) Select(ctx context.Context, _ auto.Point) error {
	s.opened = false
	pressed, err := s.d.Bot.FindAndPress(ctx, s.layout.Confirm)
	if err != nil {
		return err
	}
	if !pressed {
		if _, err := s.d.Bot.FindAndPress(ctx, s.layout.LevelUp); err != nil {
			return err
		}
	}
	if err := s.d.Bot.Wait(ctx, s.layout.OpenDelay); err != nil {
		return err
	}
	return s.locateExit(ctx)
}

func (s *CharacterScanner) locateExit(ctx context.Context) error {
	m, err := s.d.Bot.Find(ctx, s.layout.Exit, auto.WithAttempts(2))
	if err != nil {
		return err
	}
	if m == nil {
		s.r.log.Warn("没有找到角色详情页")
		return nil
	}
	s.exit, s.opened = m.Center, true
	return nil
}

// Deselect 返回角色列表
func (s *CharacterScanner) Deselect(ctx context.Context) error {
	pressed, err := s.d.Bot.FindAndPress(ctx, s.layout.Back, auto.WithAttempts(2))
	if err != nil {
		return err
	}
	if !pressed {
		s.r.log.Warn("没有找到返回角色列表的按钮")
	}
	return nil
}

func (s *CharacterScanner) region(f Field) auto.Region {
	return f.At(s.exit)
}

// ReadName 读取角色名称，自定义名称优先
func (s *CharacterScanner) ReadName(ctx context.Context) (string, error) {
	if !s.opened {
		return "", nil
	}
	raw, err := s.r.text(ctx, s.region(s.layout.Name))
	if err != nil || raw == "" {
		return "", err
	}
	return resolveCharacter(s.d, s.r.m, raw), nil
}

// ReadFields 读取等级、突破、命座与天赋
func (s *CharacterScanner) ReadFields(ctx context.Context, name string, _ auto.Point, _ int) (Character, error) {
	c := Character{Key: name, Level: 1}

	level, maxLevel, ok, err := s.r.level(ctx, s.region(s.layout.Level), 90)
	if err != nil {
		return c, err
	}
	if ok {
		c.Level = level
	}

	asc, ok := AscensionFromMaxLevel(maxLevel)
	if !ok {
		if asc, err = s.r.count(ctx, "character_ascension_star", s.region(s.layout.AscensionStars)); err != nil {
			return c, err
		}
		asc = auto.Clamp(asc, 0, 6)
	}
	c.Ascension = asc
	c.Level = CheckValidCharacterLevel(c.Level, c.Ascension)

	if c.Constellation, err = s.constellation(ctx); err != nil {
		return c, err
	}
	raw, err := s.talents(ctx)
	if err != nil {
		return c, err
	}
	info, _ := s.d.Ref.Character(name)
	c.Talent = AdjustTalents(info, c.Constellation, raw)
	return c, nil
}

// constellation 6 减去未解锁的命座数
func (s *CharacterScanner) constellation(ctx context.Context) (int, error) {
	if _, err := s.d.Bot.FindAndPress(ctx, s.layout.ConstellationTab, auto.WithAttempts(2)); err != nil {
		return 0, err
	}
	if err := s.d.Bot.Wait(ctx, s.layout.OpenDelay); err != nil {
		return 0, err
	}
	locked, err := s.r.count(ctx, "constellation_locked", s.region(s.layout.Constellations))
	if err != nil {
		return 0, err
	}
	return auto.Clamp(6-locked, 0, 6), nil
}

// talents 读取天赋页前四行的等级
func (s *CharacterScanner) talents(ctx context.Context) ([4]int, error) {
	var levels [4]int
	if _, err := s.d.Bot.FindAndPress(ctx, s.layout.TalentTab, auto.WithAttempts(2)); err != nil {
		return levels, err
	}
	if err := s.d.Bot.Wait(ctx, s.layout.OpenDelay); err != nil {
		return levels, err
	}
	for i := range levels {
		field := s.layout.Talent.Below(i, s.layout.TalentStep)
		v, ok, err := s.r.number(ctx, s.region(field), ParseInt)
		if err != nil {
			return levels, err
		}
		if ok {
			levels[i] = v
		}
	}
	return levels, nil
}

// AdjustTalents 把天赋页显示的等级换算为基础等级。
// rows 依次为天赋页各行；有替代冲刺的角色爆发在第 4 行。
// 命座 3/5 提升的天赋减 3，固有天赋的普攻加成同样扣除，结果限制在 [1, 13]。
func AdjustTalents(info catalog.Character, constellation int, rows [4]int) Talent {
	t := Talent{Auto: rows[0], Skill: rows[1], Burst: rows[2]}
	if info.Layout == "sprint" {
		t.Burst = rows[3]
	}

	boost := func(b catalog.TalentBoost) {
		switch b {
		case catalog.BoostSkill:
			t.Skill -= 3
		case catalog.BoostBurst:
			t.Burst -= 3
		}
	}
	if constellation >= 3 {
		boost(info.C3)
	}
	if constellation >= 5 {
		boost(info.C5())
	}
	t.Auto -= info.AutoBonus

	t.Auto = auto.Clamp(t.Auto, MinTalent, MaxTalent)
	t.Skill = auto.Clamp(t.Skill, MinTalent, MaxTalent)
	t.Burst = auto.Clamp(t.Burst, MinTalent, MaxTalent)
	return t
}

var (
	_ GridExtractor[Character] = (*CharacterScanner)(nil)
)
