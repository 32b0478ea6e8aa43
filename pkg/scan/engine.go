package scan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/bot"
	"github.com/zoeyai/goodscan/pkg/scroll"
)

// Extractor 读取当前选中物品的字段
type Extractor[T any] interface {
	ReadName(ctx context.Context) (string, error)
	ReadRarity(ctx context.Context) (int, error)
	ReadFields(ctx context.Context, name string, rarity int) (T, error)
}

// LockReader 可选能力：读取锁定状态
type LockReader interface {
	Locked(ctx context.Context) (bool, error)
}

// Resetter 可选能力：每次扫描开始时重置内部状态
type Resetter interface {
	Reset()
}

// TierConfig 星级网格扫描配置
type TierConfig struct {
	Category string
	// Tiers 启用的星级，从高到低
	Tiers []int
	// OnlyLocked 只记录已锁定的物品
	OnlyLocked bool
	// MaxEmptyRows 连续空行上限
	MaxEmptyRows int
	// MaxScrolls 滚动次数上限，无法检测滚动停滞时兜底
	MaxScrolls int
	// RowTolerance 判断同一行的 y 误差
	RowTolerance int
	// CellDelay 点击格子后的等待
	CellDelay time.Duration
}

// Normalize 排序星级并补全默认值
func (c TierConfig) Normalize() TierConfig {
	c.Tiers = lo.Uniq(lo.Filter(c.Tiers, func(t int, _ int) bool { return t >= 1 && t <= 5 }))
	sort.Sort(sort.Reverse(sort.IntSlice(c.Tiers)))
	if c.MaxEmptyRows <= 0 {
		c.MaxEmptyRows = 3
	}
	if c.MaxScrolls <= 0 {
		c.MaxScrolls = 1000
	}
	if c.RowTolerance <= 0 {
		c.RowTolerance = 1
	}
	if c.CellDelay <= 0 {
		c.CellDelay = 100 * time.Millisecond
	}
	return c
}

// TierScanner 按星级标记在网格中逐行扫描
type TierScanner[T any] struct {
	b      *bot.Bot
	scroll *scroll.Controller
	ex     Extractor[T]
	cfg    TierConfig
	log    *logger.Logger

	// 单次扫描状态
	state    State
	resume   State
	tierIdx  int
	fullCap  int
	rowCap   int
	counters Counters
	records  []T
}

// NewTierScanner 创建星级网格扫描器
func NewTierScanner[T any](b *bot.Bot, sc *scroll.Controller, ex Extractor[T], cfg TierConfig) *TierScanner[T] {
	cfg = cfg.Normalize()
	return &TierScanner[T]{
		b:      b,
		scroll: sc,
		ex:     ex,
		cfg:    cfg,
		log:    logger.With(map[string]any{"category": cfg.Category}),
	}
}

// Counters 最近一次扫描的计数
func (s *TierScanner[T]) Counters() Counters {
	return s.counters
}

// State 当前状态
func (s *TierScanner[T]) State() State {
	return s.state
}

// Run 执行扫描。取消时返回 nil 与 *CancelledError
func (s *TierScanner[T]) Run(ctx context.Context) ([]T, error) {
	s.state, s.resume = FullRegionSearch, FullRegionSearch
	s.tierIdx, s.fullCap, s.rowCap = 0, FullCapacity, RowCapacity
	s.counters = Counters{}
	s.records = nil
	if r, ok := s.ex.(Resetter); ok {
		r.Reset()
	}

	if len(s.cfg.Tiers) == 0 {
		s.log.Warn("没有启用任何星级，跳过扫描")
		return nil, nil
	}
	s.log.Info("开始扫描，星级 %v", s.cfg.Tiers)

	for s.state != AllDone {
		if err := checkpoint(ctx, s.cfg.Category); err != nil {
			return nil, err
		}

		var err error
		switch s.state {
		case FullRegionSearch:
			err = s.searchFull(ctx)
		case SingleRowSearch:
			err = s.searchRow(ctx)
		case TierComplete:
			err = s.completeTier(ctx)
		}
		if err != nil {
			return nil, wrapCancel(s.cfg.Category, err)
		}
	}

	s.log.Info("扫描完成，共 %d 条 (丢弃 %d，跳过 %d，滚动 %d 次)",
		len(s.records), s.counters.Discarded, s.counters.Skipped, s.counters.Scrolls)
	return s.records, nil
}

func (s *TierScanner[T]) tier() int {
	return s.cfg.Tiers[s.tierIdx]
}

func (s *TierScanner[T]) fullArea() auto.Region {
	w, h := s.b.Size()
	return auto.Region{X: 0, Y: 0, Width: w - w/3, Height: h}
}

func (s *TierScanner[T]) rowArea() auto.Region {
	w, h := s.b.Size()
	return auto.Region{X: 0, Y: h - h/3, Width: w, Height: h / 3}
}

// find 查找星级标记，按阅读顺序返回
func (s *TierScanner[T]) find(ctx context.Context, tier int, region auto.Region) ([]auto.Point, error) {
	matches, err := s.b.FindAll(ctx, fmt.Sprintf("rarity_%d", tier), auto.InRegion(region))
	if err != nil {
		return nil, err
	}
	points := lo.Map(matches, func(m bot.Match, _ int) auto.Point { return m.Center })
	auto.SortReadingOrder(points, s.cfg.RowTolerance)
	return points, nil
}

// presence 区域内其他星级标记的情况
type presence int

const (
	// noMarker 没有任何星级标记
	noMarker presence = iota
	// higherOnly 只有更高或未启用的星级
	higherOnly
	// lowerPresent 存在更低星级，当前星级已结束
	lowerPresent
)

// others 查找当前星级以外的全部星级标记，不论是否启用。先查更低星级
func (s *TierScanner[T]) others(ctx context.Context, region auto.Region) (presence, error) {
	cur := s.tier()
	order := make([]int, 0, 4)
	for t := cur - 1; t >= 1; t-- {
		order = append(order, t)
	}
	for t := cur + 1; t <= 5; t++ {
		order = append(order, t)
	}

	for _, t := range order {
		points, err := s.find(ctx, t, region)
		if err != nil {
			return noMarker, err
		}
		if len(points) == 0 {
			continue
		}
		if t < cur {
			return lowerPresent, nil
		}
		return higherOnly, nil
	}
	return noMarker, nil
}

func (s *TierScanner[T]) searchFull(ctx context.Context) error {
	region := s.fullArea()
	points, err := s.find(ctx, s.tier(), region)
	if err != nil {
		return err
	}
	n := len(points)
	s.log.Debug("整屏查找 %d★: %d 个 (剩余容量 %d)", s.tier(), n, s.fullCap)

	switch {
	case n >= s.fullCap || (n > 0 && s.lastRowFull(points)):
		if n > s.fullCap {
			points = points[:s.fullCap]
		}
		if err := s.collect(ctx, points); err != nil {
			return err
		}
		return s.advance(ctx, true)

	case n > 0:
		if err := s.collect(ctx, points); err != nil {
			return err
		}
		s.fullCap -= n
		s.state, s.resume = TierComplete, FullRegionSearch
		return nil

	default:
		p, err := s.others(ctx, region)
		if err != nil {
			return err
		}
		if p == lowerPresent {
			s.state, s.resume = TierComplete, FullRegionSearch
			return nil
		}
		// 更高或未启用的星级占满了屏幕
		return s.advance(ctx, true)
	}
}

// lastRowFull 匹配的最后一行是否是屏幕底部的满行，若是则该星级可能延续到屏幕外
func (s *TierScanner[T]) lastRowFull(points []auto.Point) bool {
	row := auto.LastRow(points, s.cfg.RowTolerance)
	return len(row) >= RowCapacity && s.rowArea().Contains(row[0])
}

func (s *TierScanner[T]) searchRow(ctx context.Context) error {
	region := s.rowArea()
	points, err := s.find(ctx, s.tier(), region)
	if err != nil {
		return err
	}
	points = auto.LastRow(points, s.cfg.RowTolerance)
	n := len(points)
	s.log.Debug("单行查找 %d★: %d 个 (剩余容量 %d)", s.tier(), n, s.rowCap)

	switch {
	case n >= s.rowCap:
		s.counters.EmptyRows = 0
		if n > s.rowCap {
			points = points[n-s.rowCap:]
		}
		if err := s.collect(ctx, points); err != nil {
			return err
		}
		recovered, err := s.scroll.ScrollRecovery(ctx, points[0].Y)
		if err != nil {
			return err
		}
		if recovered {
			s.counters.Recoveries++
		}
		return s.advance(ctx, false)

	case n > 0:
		s.counters.EmptyRows = 0
		if err := s.collect(ctx, points); err != nil {
			return err
		}
		s.rowCap -= n
		s.state, s.resume = TierComplete, SingleRowSearch
		return nil

	default:
		p, err := s.others(ctx, region)
		if err != nil {
			return err
		}
		switch p {
		case lowerPresent:
			s.state, s.resume = TierComplete, SingleRowSearch
			return nil
		case higherOnly:
			// 这一行被更高或未启用的星级占据，不算空行
			s.counters.EmptyRows = 0
			s.log.Debug("最后一行只有其他星级，继续滚动")
			return s.advance(ctx, false)
		}
		s.counters.EmptyRows++
		if s.counters.EmptyRows >= s.cfg.MaxEmptyRows {
			s.log.Info("连续 %d 行没有找到物品，结束扫描", s.counters.EmptyRows)
			s.state = AllDone
			return nil
		}
		return s.advance(ctx, false)
	}
}

// completeTier 当前星级完成，切换到下一个启用的星级
func (s *TierScanner[T]) completeTier(ctx context.Context) error {
	s.log.Info("%d★ 扫描完成", s.tier())
	s.tierIdx++
	if s.tierIdx >= len(s.cfg.Tiers) {
		s.state = AllDone
		return nil
	}

	if s.resume == SingleRowSearch {
		s.state = SingleRowSearch
		return nil
	}

	points, err := s.find(ctx, s.tier(), s.fullArea())
	if err != nil {
		return err
	}
	if len(points) > 0 {
		s.state = FullRegionSearch
		return nil
	}
	return s.advance(ctx, true)
}

// advance 滚动一行并进入单行查找。滚动前后最后一行哈希相同时说明已到底
func (s *TierScanner[T]) advance(ctx context.Context, first bool) error {
	if s.counters.Scrolls >= s.cfg.MaxScrolls {
		s.log.Warn("滚动次数达到上限 %d，结束扫描", s.cfg.MaxScrolls)
		s.state = AllDone
		return nil
	}

	region := s.rowArea()
	before, canCompare := s.b.Fingerprint(region)

	var err error
	if first {
		err = s.scroll.ScrollFirstRow(ctx)
	} else {
		err = s.scroll.ScrollSubsequentRow(ctx)
	}
	if err != nil {
		return err
	}
	s.counters.Scrolls++
	s.rowCap = RowCapacity

	if canCompare {
		if after, ok := s.b.Fingerprint(region); ok && after == before {
			s.log.Info("滚动后画面未变化，已到达列表底部")
			s.state = AllDone
			return nil
		}
	}
	s.state = SingleRowSearch
	return nil
}

// collect 依次点击格子并读取物品
func (s *TierScanner[T]) collect(ctx context.Context, points []auto.Point) error {
	for _, p := range points {
		if err := checkpoint(ctx, s.cfg.Category); err != nil {
			return err
		}
		if err := s.b.Tap(ctx, p); err != nil {
			return err
		}
		if err := s.b.Wait(ctx, s.cfg.CellDelay); err != nil {
			return err
		}
		s.counters.Cells++

		rec, ok, err := s.readCell(ctx)
		if err != nil {
			return err
		}
		if ok {
			s.records = append(s.records, rec)
			s.log.Info("已扫描: %v", rec)
		}
	}
	return nil
}

func (s *TierScanner[T]) readCell(ctx context.Context) (T, bool, error) {
	var zero T

	if s.cfg.OnlyLocked {
		if lp, ok := s.ex.(LockReader); ok {
			locked, err := lp.Locked(ctx)
			if err != nil {
				return zero, false, err
			}
			if !locked {
				s.counters.Skipped++
				s.log.Debug("物品未锁定，跳过")
				return zero, false, nil
			}
		}
	}

	name, err := s.ex.ReadName(ctx)
	if err != nil {
		return zero, false, err
	}
	rarity, err := s.ex.ReadRarity(ctx)
	if err != nil {
		return zero, false, err
	}
	if rarity != s.tier() {
		s.counters.Discarded++
		s.log.Warn("%s 星级 %d 与当前搜索的 %d★ 不符，丢弃", name, rarity, s.tier())
		return zero, false, nil
	}

	rec, err := s.ex.ReadFields(ctx, name, rarity)
	if err != nil {
		return zero, false, err
	}
	return rec, true, nil
}
