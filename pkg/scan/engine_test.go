package scan_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/bot"
	"github.com/zoeyai/goodscan/pkg/bot/bottest"
	"github.com/zoeyai/goodscan/pkg/scan"
	"github.com/zoeyai/goodscan/pkg/scroll"
)

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newBot(inv *bottest.Inventory) *bot.Bot {
	return bot.New(inv, inv, bot.DefaultConfig(), bot.WithSleeper(noSleep), bot.WithRand(rand.New(rand.NewSource(1))))
}

// testGeometry 模拟背包最后一行在 y=700
func testGeometry() scroll.Geometry {
	geo := scroll.DefaultGeometry()
	geo.RecoveryAnchorY = 700
	return geo
}

// invExtractor 直接读取模拟背包中选中的物品
type invExtractor struct {
	inv    *bottest.Inventory
	rarity map[string]int
	locked map[string]bool
}

func (e *invExtractor) ReadName(context.Context) (string, error) {
	it := e.inv.Selected()
	if it == nil {
		return "", nil
	}
	return it.Name, nil
}

func (e *invExtractor) ReadRarity(context.Context) (int, error) {
	it := e.inv.Selected()
	if it == nil {
		return 0, nil
	}
	if r, ok := e.rarity[it.Name]; ok {
		return r, nil
	}
	return it.Rarity, nil
}

func (e *invExtractor) ReadFields(_ context.Context, name string, rarity int) (scan.Weapon, error) {
	return scan.Weapon{Key: name, Rarity: rarity, Level: 1, Refinement: 1}, nil
}

func (e *invExtractor) Locked(context.Context) (bool, error) {
	it := e.inv.Selected()
	return it != nil && e.locked[it.Name], nil
}

func newTierScanner(inv *bottest.Inventory, ex *invExtractor, cfg scan.TierConfig) *scan.TierScanner[scan.Weapon] {
	b := newBot(inv)
	if cfg.Category == "" {
		cfg.Category = scan.CategoryWeapons
	}
	return scan.NewTierScanner[scan.Weapon](b, scroll.New(b, testGeometry()), ex, cfg)
}

func concat(lists ...[]bottest.Item) []bottest.Item {
	var out []bottest.Item
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func TestTierScan(t *testing.T) {
	tests := []struct {
		name       string
		items      []bottest.Item
		tiers      []int
		maxEmpty   int
		wantCount  int
		wantScroll int
	}{
		{
			name:       "单星级 35 个",
			items:      bottest.Tier("w", 5, 35),
			tiers:      []int{5},
			wantCount:  35,
			wantScroll: 3,
		},
		{
			name:       "恰好一屏 21 个",
			items:      bottest.Tier("w", 5, 21),
			tiers:      []int{5},
			wantCount:  21,
			wantScroll: 1,
		},
		{
			name:       "不足一屏",
			items:      bottest.Tier("w", 5, 10),
			tiers:      []int{5},
			wantCount:  10,
			wantScroll: 0,
		},
		{
			name:       "两个星级共享屏幕",
			items:      concat(bottest.Tier("a", 5, 10), bottest.Tier("b", 4, 20)),
			tiers:      []int{5, 4},
			wantCount:  30,
			wantScroll: 2,
		},
		{
			name:       "更高星级未启用",
			items:      concat(bottest.Tier("a", 5, 14), bottest.Tier("b", 4, 21)),
			tiers:      []int{4},
			wantCount:  21,
			wantScroll: 3,
		},
		{
			name:       "前面多行更高星级",
			items:      concat(bottest.Tier("a", 5, 49), bottest.Tier("b", 4, 14)),
			tiers:      []int{4},
			wantCount:  14,
			wantScroll: 7,
		},
		{
			name:       "中间隔着多行未启用星级",
			items:      concat(bottest.Tier("a", 5, 7), bottest.Tier("b", 4, 35), bottest.Tier("c", 3, 7)),
			tiers:      []int{5, 3},
			wantCount:  14,
			wantScroll: 5,
		},
		{
			name:       "连续空行结束",
			items:      concat(bottest.Tier("a", 5, 21), bottest.Tier("x", 0, 21)),
			tiers:      []int{5},
			maxEmpty:   3,
			wantCount:  21,
			wantScroll: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := bottest.NewInventory(tt.items)
			s := newTierScanner(inv, &invExtractor{inv: inv}, scan.TierConfig{Tiers: tt.tiers, MaxEmptyRows: tt.maxEmpty})

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
			if s.State() != scan.AllDone {
				t.Errorf("结束状态 = %s", s.State())
			}
			t.Logf("counters: %+v", s.Counters())
		})
	}
}

func TestTierScanOrder(t *testing.T) {
	inv := bottest.NewInventory(bottest.Tier("w", 5, 35))
	s := newTierScanner(inv, &invExtractor{inv: inv}, scan.TierConfig{Tiers: []int{5}})

	records, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for i, r := range records {
		want := fmt.Sprintf("w%02d", i)
		if r.Key != want {
			t.Errorf("第 %d 条 = %s, 期望 %s", i, r.Key, want)
		}
		if seen[r.Key] {
			t.Errorf("%s 重复记录", r.Key)
		}
		seen[r.Key] = true
	}
}

func TestTierScanRarityMismatch(t *testing.T) {
	inv := bottest.NewInventory(bottest.Tier("w", 5, 10))
	ex := &invExtractor{inv: inv, rarity: map[string]int{"w03": 4, "w07": 3}}
	s := newTierScanner(inv, ex, scan.TierConfig{Tiers: []int{5}})

	records, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 8 {
		t.Errorf("记录数 = %d, 期望 8", len(records))
	}
	if s.Counters().Discarded != 2 {
		t.Errorf("丢弃数 = %d, 期望 2", s.Counters().Discarded)
	}
	for _, r := range records {
		if r.Rarity != 5 {
			t.Errorf("%s 星级 %d 不应被记录", r.Key, r.Rarity)
		}
	}
}

func TestTierScanOnlyLocked(t *testing.T) {
	inv := bottest.NewInventory(bottest.Tier("w", 5, 7))
	ex := &invExtractor{inv: inv, locked: map[string]bool{"w01": true, "w04": true}}
	s := newTierScanner(inv, ex, scan.TierConfig{Tiers: []int{5}, OnlyLocked: true})

	records, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Key != "w01" || records[1].Key != "w04" {
		t.Errorf("只记录锁定物品: %v", records)
	}
	if s.Counters().Skipped != 5 {
		t.Errorf("跳过数 = %d, 期望 5", s.Counters().Skipped)
	}
}

func TestTierScanNoTiers(t *testing.T) {
	inv := bottest.NewInventory(bottest.Tier("w", 5, 7))
	s := newTierScanner(inv, &invExtractor{inv: inv}, scan.TierConfig{Tiers: []int{0, 9}})

	records, err := s.Run(context.Background())
	if err != nil || records != nil {
		t.Errorf("没有有效星级时应直接返回: %v, %v", records, err)
	}
	if len(inv.Taps) != 0 {
		t.Errorf("不应点击任何格子, 实际 %d 次", len(inv.Taps))
	}
}

func TestTierScanCancel(t *testing.T) {
	inv := bottest.NewInventory(bottest.Tier("w", 5, 35))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taps := 0
	inv.BeforeTap = func(auto.Point) {
		taps++
		if taps == 5 {
			cancel()
		}
	}
	s := newTierScanner(inv, &invExtractor{inv: inv}, scan.TierConfig{Tiers: []int{5}})

	records, err := s.Run(ctx)
	if records != nil {
		t.Errorf("取消后不应返回记录, 实际 %d 条", len(records))
	}
	if !errors.Is(err, scan.ErrCancelled) {
		t.Fatalf("错误应为 ErrCancelled: %v", err)
	}
	var ce *scan.CancelledError
	if !errors.As(err, &ce) || ce.Category != scan.CategoryWeapons {
		t.Errorf("取消错误应带类别: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("取消错误应包装 context.Canceled: %v", err)
	}
	if taps != 5 {
		t.Errorf("取消后不应继续点击, 共点击 %d 次", taps)
	}
}

func TestTierConfigNormalize(t *testing.T) {
	cfg := scan.TierConfig{Tiers: []int{3, 5, 0, 4, 5, 6}}.Normalize()
	want := []int{5, 4, 3}
	if fmt.Sprint(cfg.Tiers) != fmt.Sprint(want) {
		t.Errorf("Tiers = %v, 期望 %v", cfg.Tiers, want)
	}
	if cfg.MaxEmptyRows != 3 || cfg.MaxScrolls != 1000 {
		t.Errorf("默认值错误: %+v", cfg)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state scan.State
		want  string
	}{
		{scan.FullRegionSearch, "FullRegionSearch"},
		{scan.SingleRowSearch, "SingleRowSearch"},
		{scan.TierComplete, "TierComplete"},
		{scan.AllDone, "AllDone"},
		{scan.State(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, 期望 %s", tt.state, got, tt.want)
		}
	}
}
