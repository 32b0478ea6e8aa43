package scan_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/auto/grid"
	"github.com/zoeyai/goodscan/pkg/bot"
	"github.com/zoeyai/goodscan/pkg/bot/bottest"
	"github.com/zoeyai/goodscan/pkg/catalog"
	"github.com/zoeyai/goodscan/pkg/fuzzy"
	"github.com/zoeyai/goodscan/pkg/scan"
)

// fakeGrid 模拟背包的格子相对屏幕中心 (800, 450) 的偏移
var fakeGrid = grid.Layout{
	Columns:   []int{-720, -580, -440, -300, -160, -20, 120},
	FirstRows: []int{-250, 0, 250},
	NextRows:  []int{250},
}

// cellOf 第 i 个物品在视口顶部为 0 时的坐标
func cellOf(i int) auto.Point {
	return auto.Point{X: 80 + (i%7)*140, Y: 200 + (i/7)*250}
}

type gridExtractor struct {
	inv       *bottest.Inventory
	selects   int
	deselects int
}

func (e *gridExtractor) Select(context.Context, auto.Point) error {
	e.selects++
	return nil
}

func (e *gridExtractor) ReadName(context.Context) (string, error) {
	if it := e.inv.Selected(); it != nil {
		return it.Name, nil
	}
	return "", nil
}

func (e *gridExtractor) ReadFields(_ context.Context, name string, _ auto.Point, pass int) (scan.Material, error) {
	return scan.Material{Key: name, Amount: pass + 1}, nil
}

func (e *gridExtractor) Deselect(context.Context) error {
	e.deselects++
	return nil
}

func newGridScanner(inv *bottest.Inventory, b *bot.Bot, ex *gridExtractor) *scan.GridScanner[scan.Material] {
	return scan.NewGridScanner[scan.Material](b, ex, scan.GridConfig{
		Category: scan.CategoryMaterials,
		Layout:   fakeGrid,
		Anchor:   "grid_anchor",
		Sentinel: "cooking_ingredient",
	}, func(ctx context.Context, _ int) error {
		return b.Swipe(ctx, auto.Point{X: 900, Y: 800}, auto.Point{X: 900, Y: 580}, 0)
	})
}

func TestGridScan(t *testing.T) {
	withSentinel := bottest.Tier("m", 1, 12)
	withSentinel[5].Templates = map[string]int{"cooking_ingredient": 1}

	tests := []struct {
		name       string
		items      []bottest.Item
		wantCount  int
		wantScroll int
	}{
		{"不足一屏，重复名称结束", bottest.Tier("m", 1, 10), 10, 0},
		{"滚动两次后重复", bottest.Tier("m", 1, 28), 28, 2},
		{"遇到结束标志", withSentinel, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := bottest.NewInventory(tt.items)
			inv.Screen["grid_anchor"] = 1
			ex := &gridExtractor{inv: inv}
			s := newGridScanner(inv, newBot(inv), ex)

			records, err := s.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() 返回错误: %v", err)
			}
			if len(records) != tt.wantCount {
				t.Errorf("记录数 = %d, 期望 %d", len(records), tt.wantCount)
			}
			if got := s.Counters().Scrolls; got != tt.wantScroll {
				t.Errorf("滚动次数 = %d, 期望 %d", got, tt.wantScroll)
			}
			if ex.selects != ex.deselects {
				t.Errorf("Select %d 次, Deselect %d 次", ex.selects, ex.deselects)
			}
			seen := map[string]bool{}
			for _, r := range records {
				if seen[r.Key] {
					t.Errorf("%s 重复记录", r.Key)
				}
				seen[r.Key] = true
			}
		})
	}
}

func TestGridScanMissingAnchor(t *testing.T) {
	inv := bottest.NewInventory(bottest.Tier("m", 1, 3))
	s := newGridScanner(inv, newBot(inv), &gridExtractor{inv: inv})

	_, err := s.Run(context.Background())
	if !errors.Is(err, scan.ErrNavigation) {
		t.Errorf("找不到锚点应返回 ErrNavigation: %v", err)
	}
}

func TestGridScanCancel(t *testing.T) {
	inv := bottest.NewInventory(bottest.Tier("m", 1, 28))
	inv.Screen["grid_anchor"] = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	taps := 0
	inv.BeforeTap = func(auto.Point) {
		if taps++; taps == 3 {
			cancel()
		}
	}
	s := newGridScanner(inv, newBot(inv), &gridExtractor{inv: inv})

	records, err := s.Run(ctx)
	if records != nil || !errors.Is(err, scan.ErrCancelled) {
		t.Errorf("取消后应返回 nil 与 ErrCancelled: %d 条, %v", len(records), err)
	}
}

func TestMaterialScanner(t *testing.T) {
	names := []string{
		"Hero's Wit", "Adventurer's Experience", "Wanderer's Advice", "Mystic Enhancement Ore",
		"Fine Enhancement Ore", "Enhancement Ore", "Crown of Insight", "Teachings of Freedom",
	}
	layout := scan.DefaultMaterialLayout()
	layout.Grid = fakeGrid
	layout.AmountLabel = ""
	layout.Name = scan.Field{X: 0, Y: -400, Width: 400, Height: 40}
	layout.Amount = scan.Field{X: -30, Y: 40, Width: 60, Height: 30}

	items := make([]bottest.Item, len(names))
	for i, name := range names {
		amount := fmt.Sprint(i + 1)
		if i == 4 {
			amount = ""
		}
		items[i] = bottest.Item{Name: name, Texts: map[auto.Region]string{
			layout.Name.At(panelAnchor):  name,
			layout.Amount.At(cellOf(i)): amount,
		}}
	}
	inv := bottest.NewInventory(items)
	inv.Screen["category_selected_characterdevelopmentitems"] = 1
	inv.Screen["backpack"] = 1

	d := newDeps(inv)
	d.Materials = layout
	s := scan.NewMaterialScanner(d, catalog.GroupDevelopment)
	if s.Category() != scan.CategoryDevelopmentItems {
		t.Errorf("Category() = %s", s.Category())
	}

	records, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() 返回错误: %v", err)
	}
	if len(records) != len(names) {
		t.Fatalf("记录数 = %d, 期望 %d", len(records), len(names))
	}
	for i, r := range records {
		want := i + 1
		if i == 4 {
			want = 1
		}
		if r.Key != fuzzy.Normalize(names[i]) || r.Amount != want {
			t.Errorf("第 %d 条 = %+v, 期望 %s x%d", i, r, fuzzy.Normalize(names[i]), want)
		}
	}
}

func TestMaterialScannerAmountLabel(t *testing.T) {
	keys := catalog.MustLoad().MaterialKeys(catalog.GroupDevelopment)[:28]

	layout := scan.DefaultMaterialLayout()
	layout.Grid = fakeGrid
	layout.Name = scan.Field{X: 0, Y: -400, Width: 400, Height: 40}
	layout.Amount = scan.Field{X: -30, Y: 40, Width: 60, Height: 30}
	layout.Panel = scan.Field{X: 300, Y: -400, Width: 400, Height: 800}
	layout.AmountLabel = "material_amount"
	layout.AmountLabelOffset = scan.Field{X: 40, Y: -18, Width: 120, Height: 35}

	// 常驻模板匹配在查找区域中心：面板内的标签在 (1300, 450)，整屏查找则落在 (800, 450)
	label := layout.AmountLabelOffset.At(layout.Panel.At(panelAnchor).Center())
	elsewhere := layout.AmountLabelOffset.At(panelAnchor)

	items := make([]bottest.Item, len(keys))
	for i, key := range keys {
		texts := map[auto.Region]string{
			layout.Name.At(panelAnchor): key,
			elsewhere:                   "999",
		}
		if i < 21 {
			texts[layout.Amount.At(cellOf(i))] = fmt.Sprint(i + 1)
		} else {
			texts[label] = fmt.Sprint(i + 1)
		}
		items[i] = bottest.Item{Name: key, Texts: texts}
	}
	inv := bottest.NewInventory(items)
	inv.Screen["category_selected_characterdevelopmentitems"] = 1
	inv.Screen["backpack"] = 1
	inv.Screen["material_amount"] = 1

	d := newDeps(inv)
	d.Materials = layout
	records, err := scan.NewMaterialScanner(d, catalog.GroupDevelopment).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() 返回错误: %v", err)
	}
	if len(records) != len(keys) {
		t.Fatalf("记录数 = %d, 期望 %d", len(records), len(keys))
	}
	for i, r := range records {
		if r.Key != keys[i] || r.Amount != i+1 {
			t.Errorf("第 %d 条 = %+v, 期望 %s x%d", i, r, keys[i], i+1)
		}
	}
}

func TestMaterialsMerge(t *testing.T) {
	got := scan.Materials(
		[]scan.Material{{Key: "Mora", Amount: 100}, {Key: "HerosWit", Amount: 3}},
		[]scan.Material{{Key: "HerosWit", Amount: 2}},
		nil,
	)
	if got["Mora"] != 100 || got["HerosWit"] != 5 || len(got) != 2 {
		t.Errorf("Materials() = %v", got)
	}
}

func TestCharacterScanner(t *testing.T) {
	layout := scan.DefaultCharacterLayout()
	layout.Grid = fakeGrid
	exit := auto.Point{X: 1550, Y: 50}
	at := func(f scan.Field) auto.Region { return f.At(exit) }
	talent := func(i int) auto.Region { return at(layout.Talent.Below(i, layout.TalentStep)) }

	character := func(name string, locked int, talents ...string) bottest.Item {
		texts := map[auto.Region]string{
			at(layout.Name):  name,
			at(layout.Level): "Lv. 90/90",
		}
		for i, v := range talents {
			texts[talent(i)] = v
		}
		return bottest.Item{Name: name, Texts: texts, Templates: map[string]int{"constellation_locked": locked}}
	}
	inv := bottest.NewInventory([]bottest.Item{
		character("Hu Tao", 5, "10", "9", "8"),
		character("Kamisato Ayaka", 0, "10", "13", "1", "13"),
		character("Tartaglia", 6, "11", "9", "8"),
		character("Aether", 6, "6", "6", "6"),
	})
	inv.Screen[layout.Anchor] = 1
	for i, name := range []string{layout.Exit, layout.Entry, layout.Back, layout.Confirm} {
		p := exit
		if name != layout.Exit {
			p = auto.Point{X: 1500, Y: 100 + i*60}
		}
		inv.Buttons[name] = &bottest.Button{Pos: p}
	}

	d := newDeps(inv)
	d.Characters = layout
	d.Aliases = scan.NewAliases("Aether", "")
	records, err := scan.NewCharacterScanner(d).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() 返回错误: %v", err)
	}

	want := []scan.Character{
		{Key: "HuTao", Level: 90, Ascension: 6, Constellation: 1, Talent: scan.Talent{Auto: 10, Skill: 9, Burst: 8}},
		{Key: "KamisatoAyaka", Level: 90, Ascension: 6, Constellation: 6, Talent: scan.Talent{Auto: 10, Skill: 10, Burst: 10}},
		{Key: "Tartaglia", Level: 90, Ascension: 6, Constellation: 0, Talent: scan.Talent{Auto: 10, Skill: 9, Burst: 8}},
		{Key: "Traveler", Level: 90, Ascension: 6, Constellation: 0, Talent: scan.Talent{Auto: 6, Skill: 6, Burst: 6}},
	}
	if len(records) != len(want) {
		t.Fatalf("记录数 = %d, 期望 %d: %v", len(records), len(want), records)
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("第 %d 个角色 = %v, 期望 %v", i, records[i], want[i])
		}
	}
}

func TestAdjustTalents(t *testing.T) {
	ref := catalog.MustLoad()
	info := func(name string) catalog.Character {
		c, ok := ref.Character(fuzzy.Normalize(name))
		if !ok {
			t.Fatalf("目录中没有 %s", name)
		}
		return c
	}

	tests := []struct {
		name          string
		constellation int
		rows          [4]int
		want          scan.Talent
	}{
		{"Hu Tao", 0, [4]int{10, 10, 10, 0}, scan.Talent{Auto: 10, Skill: 10, Burst: 10}},
		{"Hu Tao", 3, [4]int{10, 13, 10, 0}, scan.Talent{Auto: 10, Skill: 10, Burst: 10}},
		{"Hu Tao", 5, [4]int{10, 13, 13, 0}, scan.Talent{Auto: 10, Skill: 10, Burst: 10}},
		{"Raiden Shogun", 3, [4]int{6, 9, 13, 0}, scan.Talent{Auto: 6, Skill: 9, Burst: 10}},
		{"Kamisato Ayaka", 6, [4]int{10, 13, 1, 13}, scan.Talent{Auto: 10, Skill: 10, Burst: 10}},
		{"Tartaglia", 0, [4]int{11, 9, 8, 0}, scan.Talent{Auto: 10, Skill: 9, Burst: 8}},
		{"Tartaglia", 0, [4]int{0, 0, 0, 0}, scan.Talent{Auto: 1, Skill: 1, Burst: 1}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s C%d", tt.name, tt.constellation), func(t *testing.T) {
			got := scan.AdjustTalents(info(tt.name), tt.constellation, tt.rows)
			if got != tt.want {
				t.Errorf("AdjustTalents() = %+v, 期望 %+v", got, tt.want)
			}
		})
	}
}
