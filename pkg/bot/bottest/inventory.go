// Package bottest 提供模拟背包界面，实现 bot.Perception、bot.Actuation 与 bot.Fingerprinter，
// 用于在没有模拟器的情况下测试扫描流程。
package bottest

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/bot"
)

// Item 背包中的一个物品
type Item struct {
	Name   string
	Rarity int
	// Texts 选中后各识别区域的文字
	Texts map[auto.Region]string
	// Templates 选中后可见的模板及其匹配数量，匹配位置为查询区域中心
	Templates map[string]int
}

// Button 屏幕上固定位置的按钮
type Button struct {
	Pos auto.Point
	// OnTap 点击回调，可为空
	OnTap func(inv *Inventory)
}

// Inventory 模拟背包：物品按行优先排列，视口显示 Rows 行
type Inventory struct {
	mu sync.Mutex

	Width, Height int
	Columns, Rows int
	// CellX 第 c 列中心的 x 坐标
	CellX func(c int) int
	// RowY 视口顶部为 top 时第 r 行中心的 y 坐标
	RowY func(r, top int) int
	// SwipeStep 移动一行所需的最小滑动距离
	SwipeStep int

	Items   []Item
	Buttons map[string]*Button
	// Screen 与选中物品无关的常驻模板
	Screen map[string]int

	// BeforeTap 每次点击前调用，可用于模拟中途取消
	BeforeTap func(p auto.Point)

	top      int
	selected *Item

	Taps   []auto.Point
	Swipes int
	Moves  int
	Reads  int
}

// NewInventory 创建 1600x900 的模拟背包，3 行 7 列
func NewInventory(items []Item) *Inventory {
	return &Inventory{
		Width:     1600,
		Height:    900,
		Columns:   7,
		Rows:      3,
		CellX:     func(c int) int { return 80 + c*140 },
		RowY:      func(r, top int) int { return 200 + (r-top)*250 },
		SwipeStep: 50,
		Items:     items,
		Buttons:   map[string]*Button{},
		Screen:    map[string]int{},
	}
}

// Tier 生成 n 个指定星级的物品，名称为 prefix+序号
func Tier(prefix string, rarity, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{Name: fmt.Sprintf("%s%02d", prefix, i), Rarity: rarity}
	}
	return items
}

// Top 当前视口顶部行
func (inv *Inventory) Top() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.top
}

// SetTop 设置视口顶部行
func (inv *Inventory) SetTop(top int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.top = auto.Clamp(top, 0, inv.maxTop())
}

// Selected 当前选中的物品
func (inv *Inventory) Selected() *Item {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.selected
}

// Select 直接选中物品
func (inv *Inventory) Select(i int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if i >= 0 && i < len(inv.Items) {
		inv.selected = &inv.Items[i]
	}
}

func (inv *Inventory) totalRows() int {
	return (len(inv.Items) + inv.Columns - 1) / inv.Columns
}

func (inv *Inventory) maxTop() int {
	return max(inv.totalRows()-inv.Rows, 0)
}

// visible 视口内的物品索引及其中心
func (inv *Inventory) visible() map[int]auto.Point {
	cells := map[int]auto.Point{}
	for r := inv.top; r < inv.top+inv.Rows; r++ {
		for c := 0; c < inv.Columns; c++ {
			i := r*inv.Columns + c
			if i >= len(inv.Items) {
				return cells
			}
			cells[i] = auto.Point{X: inv.CellX(c), Y: inv.RowY(r, inv.top)}
		}
	}
	return cells
}

func (inv *Inventory) screen() auto.Region {
	return auto.Region{Width: inv.Width, Height: inv.Height}
}

// Size 实现 bot.Perception
func (inv *Inventory) Size() (int, int) {
	return inv.Width, inv.Height
}

// MatchOne 实现 bot.Perception
func (inv *Inventory) MatchOne(template string, opts ...auto.Option) (*bot.Match, error) {
	all, err := inv.MatchAll(template, opts...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return &all[0], nil
}

// MatchAll 实现 bot.Perception。
// rarity_<t> 返回视口内该星级物品的位置，其余模板依次查找按钮、常驻模板、选中物品的模板。
func (inv *Inventory) MatchAll(template string, opts ...auto.Option) ([]bot.Match, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	o := auto.ApplyOptions(opts...)
	region := inv.screen()
	if o.Region != nil {
		region = *o.Region
	}

	var out []bot.Match
	add := func(p auto.Point) {
		if region.Contains(p) {
			out = append(out, bot.Match{Center: p, Box: auto.Region{X: p.X - 20, Y: p.Y - 20, Width: 40, Height: 40}, Confidence: 0.99})
		}
	}

	var rarity int
	if _, err := fmt.Sscanf(template, "rarity_%d", &rarity); err == nil {
		vis := inv.visible()
		for i := 0; i < len(inv.Items); i++ {
			if p, ok := vis[i]; ok && inv.Items[i].Rarity == rarity {
				add(p)
			}
		}
		return out, nil
	}

	if b, ok := inv.Buttons[template]; ok {
		add(b.Pos)
		return out, nil
	}

	n := inv.Screen[template]
	if inv.selected != nil {
		n += inv.selected.Templates[template]
	}
	for i := 0; i < n; i++ {
		add(region.Center().Add(i, 0))
	}
	return out, nil
}

// ReadText 实现 bot.Perception，返回选中物品在该区域的文字
func (inv *Inventory) ReadText(region auto.Region, opts ...auto.Option) (string, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.Reads++
	if inv.selected == nil {
		return "", nil
	}
	return inv.selected.Texts[region], nil
}

// Tap 实现 bot.Actuation：点中按钮触发回调，点中格子选中物品，点空白处保持原选中
func (inv *Inventory) Tap(x, y int) error {
	p := auto.Point{X: x, Y: y}
	if inv.BeforeTap != nil {
		inv.BeforeTap(p)
	}

	inv.mu.Lock()
	inv.Taps = append(inv.Taps, p)

	for _, b := range inv.Buttons {
		if b.Pos == p {
			inv.mu.Unlock()
			if b.OnTap != nil {
				b.OnTap(inv)
			}
			return nil
		}
	}
	defer inv.mu.Unlock()

	for i, c := range inv.visible() {
		if abs(c.X-x) <= 40 && abs(c.Y-y) <= 40 {
			inv.selected = &inv.Items[i]
			return nil
		}
	}
	return nil
}

// Swipe 实现 bot.Actuation：向上滑动至少 SwipeStep 像素时视口下移一行，向下则上移一行
func (inv *Inventory) Swipe(x1, y1, x2, y2 int, _ time.Duration) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.Swipes++
	dy := y2 - y1
	before := inv.top
	switch {
	case dy <= -inv.SwipeStep:
		inv.top = auto.Clamp(inv.top+1, 0, inv.maxTop())
	case dy >= inv.SwipeStep:
		inv.top = auto.Clamp(inv.top-1, 0, inv.maxTop())
	}
	if inv.top != before {
		inv.Moves++
	}
	return nil
}

// Fingerprint 实现 bot.Fingerprinter：对区域内可见物品的名称与位置做哈希
func (inv *Inventory) Fingerprint(region auto.Region) (uint64, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	var b strings.Builder
	vis := inv.visible()
	for i := 0; i < len(inv.Items); i++ {
		if p, ok := vis[i]; ok && region.Contains(p) {
			fmt.Fprintf(&b, "%s@%d,%d;", inv.Items[i].Name, p.X, p.Y)
		}
	}
	h := fnv.New64a()
	h.Write([]byte(b.String()))
	return h.Sum64(), nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
