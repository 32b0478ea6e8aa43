package scan

import (
	"context"

	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/auto/grid"
	"github.com/zoeyai/goodscan/pkg/catalog"
	"github.com/zoeyai/goodscan/pkg/scroll"
)

// MaterialLayout 材料页布局
type MaterialLayout struct {
	// Anchor 网格锚点，同时是名称区域的原点
	Anchor string      `json:"anchor"`
	Grid   grid.Layout `json:"grid"`
	// Panel 右侧详情面板，相对锚点
	Panel Field `json:"panel"`
	// Name 详情面板名称，相对锚点
	Name Field `json:"name"`
	// Amount 首轮格子下方的数量，相对格子中心
	Amount Field `json:"amount"`
	// AmountLabel 滚动后用于定位数量的标签模板，数量区域相对标签中心
	AmountLabel       string `json:"amount_label"`
	AmountLabelOffset Field  `json:"amount_label_offset"`
	// Sentinel 材料页结束标志
	Sentinel string `json:"sentinel"`
}

// DefaultMaterialLayout 1920x1080 下的默认布局
func DefaultMaterialLayout() MaterialLayout {
	return MaterialLayout{
		Anchor:            "backpack",
		Grid:              grid.MaterialLayout,
		Panel:             Field{1440, 60, 480, 960},
		Name:              Field{1480, 97, 550, 55},
		Amount:            Field{-60, 55, 120, 35},
		AmountLabel:       "material_amount",
		AmountLabelOffset: Field{40, -18, 120, 35},
		Sentinel:          "cooking_ingredient",
	}
}

func (d Deps) materialLayout() MaterialLayout {
	if d.Materials.Anchor == "" {
		return DefaultMaterialLayout()
	}
	return d.Materials
}

// MaterialScanner 材料与角色培养素材扫描
type MaterialScanner struct {
	d        Deps
	r        *reader
	layout   MaterialLayout
	category string
	group    string
	scroll   *scroll.Controller

	anchor auto.Point
}

// NewMaterialScanner 创建材料扫描器，group 为 catalog.GroupMaterial 或 catalog.GroupDevelopment
func NewMaterialScanner(d Deps, group string) *MaterialScanner {
	category := CategoryMaterials
	if group == catalog.GroupDevelopment {
		category = CategoryDevelopmentItems
	}
	return &MaterialScanner{
		d:        d,
		r:        d.reader(category),
		layout:   d.materialLayout(),
		category: category,
		group:    group,
		scroll:   scroll.New(d.Bot, d.Scroll),
	}
}

// Category 扫描的类别名称
func (s *MaterialScanner) Category() string {
	return s.category
}

// Run 从顶部开始逐格扫描，遇到重复材料或结束标志时停止
func (s *MaterialScanner) Run(ctx context.Context) ([]Material, error) {
	if err := EnterCategory(ctx, s.d.Bot, s.category); err != nil {
		return nil, err
	}
	if err := s.scroll.ResetToTop(ctx, false); err != nil {
		return nil, wrapCancel(s.category, err)
	}

	g := NewGridScanner[Material](s.d.Bot, s, GridConfig{
		Category: s.category,
		Layout:   s.layout.Grid,
		Anchor:   s.layout.Anchor,
		Sentinel: s.layout.Sentinel,
	}, func(ctx context.Context, pass int) error {
		if pass == 0 {
			return s.scroll.ScrollFirstRow(ctx)
		}
		return s.scroll.ScrollSubsequentRow(ctx)
	})
	return g.Run(ctx)
}

// ReadSingle 读取当前选中的材料，数量区域按标签定位
func (s *MaterialScanner) ReadSingle(ctx context.Context) (Material, error) {
	m, err := s.d.Bot.Find(ctx, s.layout.Anchor, auto.WithAttempts(3))
	if err != nil {
		return Material{}, wrapCancel(s.category, err)
	}
	if m == nil {
		return Material{}, &NavigationError{Category: s.category, Template: s.layout.Anchor}
	}
	s.anchor = m.Center

	name, err := s.ReadName(ctx)
	if err != nil || name == "" {
		return Material{}, wrapCancel(s.category, err)
	}
	mat, err := s.ReadFields(ctx, name, m.Center, 1)
	return mat, wrapCancel(s.category, err)
}

// SetAnchor 记录网格锚点，名称区域相对该点
func (s *MaterialScanner) SetAnchor(p auto.Point) {
	s.anchor = p
}

// Select 材料格子点击后无需额外操作
func (s *MaterialScanner) Select(context.Context, auto.Point) error {
	return nil
}

// Deselect 无需返回操作
func (s *MaterialScanner) Deselect(context.Context) error {
	return nil
}

// ReadName 读取材料名称，不在目录中时返回空字符串
func (s *MaterialScanner) ReadName(ctx context.Context) (string, error) {
	m, err := s.r.match(ctx, s.layout.Name.At(s.anchor), s.d.Ref.MaterialKeys(s.group))
	if err != nil {
		return "", err
	}
	if !m.Found {
		if m.Raw != "" {
			s.r.log.Warn("未知材料 %q，跳过", m.Raw)
		}
		return "", nil
	}
	return m.Key, nil
}

// ReadFields 读取数量。首轮按格子偏移读取，滚动后格子位置不准，在详情面板中找数量标签
func (s *MaterialScanner) ReadFields(ctx context.Context, name string, cell auto.Point, pass int) (Material, error) {
	region := s.layout.Amount.At(cell)
	if pass > 0 && s.layout.AmountLabel != "" {
		label, err := s.d.Bot.Find(ctx, s.layout.AmountLabel, auto.InRegion(s.panel()))
		if err != nil {
			return Material{}, err
		}
		if label != nil {
			region = s.layout.AmountLabelOffset.At(label.Center)
		}
	}

	amount, ok, err := s.r.number(ctx, region, ParseInt)
	if err != nil {
		return Material{}, err
	}
	if !ok || amount <= 0 {
		amount = 1
	}
	return Material{Key: name, Amount: amount}, nil
}

// panel 详情面板在屏幕上的区域，未配置时为整个屏幕
func (s *MaterialScanner) panel() auto.Region {
	w, h := s.d.Bot.Size()
	screen := auto.Region{Width: w, Height: h}
	if s.layout.Panel.Width <= 0 || s.layout.Panel.Height <= 0 {
		return screen
	}
	return s.layout.Panel.At(s.anchor).Clip(screen)
}

var (
	_ GridExtractor[Material] = (*MaterialScanner)(nil)
	_ Anchored                = (*MaterialScanner)(nil)
)
