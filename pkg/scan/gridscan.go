package scan

import (
	"context"
	"time"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/auto/grid"
	"github.com/zoeyai/goodscan/pkg/bot"
)

// GridExtractor 读取固定偏移网格中选中的条目
type GridExtractor[T any] interface {
	// Select 点击格子后的额外操作，如打开角色详情
	Select(ctx context.Context, cell auto.Point) error
	// ReadName 读取名称，空字符串表示格子为空
	ReadName(ctx context.Context) (string, error)
	// ReadFields 读取其余字段，pass 为滚动轮次
	ReadFields(ctx context.Context, name string, cell auto.Point, pass int) (T, error)
	// Deselect 读取完成后的返回操作
	Deselect(ctx context.Context) error
}

// Anchored 可选能力：扫描开始时接收网格锚点
type Anchored interface {
	SetAnchor(p auto.Point)
}

// GridConfig 固定偏移网格扫描配置
type GridConfig struct {
	Category string
	Layout   grid.Layout
	// Anchor 网格锚点模板
	Anchor string
	// Sentinel 出现时结束扫描的模板，为空表示不检查
	Sentinel string
	// SentinelRegion 哨兵模板的查找区域
	SentinelRegion func(w, h int) auto.Region
	// MaxPasses 滚动轮次上限
	MaxPasses int
	CellDelay time.Duration
}

// GridScanner 按固定偏移逐格扫描，遇到重复名称或哨兵模板时结束
type GridScanner[T any] struct {
	b      *bot.Bot
	ex     GridExtractor[T]
	cfg    GridConfig
	scroll func(ctx context.Context, pass int) error
	log    *logger.Logger

	anchor   auto.Point
	seen     map[string]bool
	done     bool
	counters Counters
	records  []T
}

// NewGridScanner 创建网格扫描器，scroll 在每轮结束后滚动一行
func NewGridScanner[T any](b *bot.Bot, ex GridExtractor[T], cfg GridConfig, scroll func(ctx context.Context, pass int) error) *GridScanner[T] {
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = 200
	}
	if cfg.CellDelay <= 0 {
		cfg.CellDelay = 100 * time.Millisecond
	}
	return &GridScanner[T]{
		b:      b,
		ex:     ex,
		cfg:    cfg,
		scroll: scroll,
		log:    logger.With(map[string]any{"category": cfg.Category}),
	}
}

// Counters 最近一次扫描的计数
func (s *GridScanner[T]) Counters() Counters {
	return s.counters
}

// Anchor 最近一次扫描使用的锚点
func (s *GridScanner[T]) Anchor() auto.Point {
	return s.anchor
}

// Run 执行扫描。取消时返回 nil 与 *CancelledError，找不到锚点时返回 ErrNavigation
func (s *GridScanner[T]) Run(ctx context.Context) ([]T, error) {
	s.seen = map[string]bool{}
	s.done = false
	s.counters = Counters{}
	s.records = nil

	if err := s.cfg.Layout.Validate(); err != nil {
		return nil, err
	}

	m, err := s.b.Find(ctx, s.cfg.Anchor, auto.WithAttempts(3))
	if err != nil {
		return nil, wrapCancel(s.cfg.Category, err)
	}
	if m == nil {
		return nil, &NavigationError{Category: s.cfg.Category, Template: s.cfg.Anchor}
	}
	s.anchor = m.Center
	if a, ok := s.ex.(Anchored); ok {
		a.SetAnchor(s.anchor)
	}
	s.log.Info("开始扫描，锚点 %s", s.anchor)

	for pass := 0; !s.done; pass++ {
		if pass >= s.cfg.MaxPasses {
			s.log.Warn("滚动轮次达到上限 %d，结束扫描", s.cfg.MaxPasses)
			break
		}
		if err := s.runPass(ctx, pass); err != nil {
			return nil, wrapCancel(s.cfg.Category, err)
		}
		if s.done {
			break
		}

		if err := s.scroll(ctx, pass); err != nil {
			return nil, wrapCancel(s.cfg.Category, err)
		}
		s.counters.Scrolls++
	}

	s.log.Info("扫描完成，共 %d 条", len(s.records))
	return s.records, nil
}

func (s *GridScanner[T]) runPass(ctx context.Context, pass int) error {
	s.log.Debug("第 %d 轮，%d 个格子", pass+1, s.cfg.Layout.Capacity(pass))
	for _, cell := range s.cfg.Layout.Cells(s.anchor, pass) {
		if err := checkpoint(ctx, s.cfg.Category); err != nil {
			return err
		}
		if err := s.b.Tap(ctx, cell); err != nil {
			return err
		}
		if err := s.b.Wait(ctx, s.cfg.CellDelay); err != nil {
			return err
		}
		s.counters.Cells++

		if err := s.ex.Select(ctx, cell); err != nil {
			return err
		}
		err := s.readCell(ctx, cell, pass)
		if err != nil {
			return err
		}
		if err := s.ex.Deselect(ctx); err != nil {
			return err
		}
		if s.done {
			return nil
		}
	}
	return nil
}

func (s *GridScanner[T]) readCell(ctx context.Context, cell auto.Point, pass int) error {
	if s.cfg.Sentinel != "" {
		w, h := s.b.Size()
		region := auto.Region{X: w / 2, Width: w / 2, Height: h}
		if s.cfg.SentinelRegion != nil {
			region = s.cfg.SentinelRegion(w, h)
		}
		found, err := s.b.Exists(ctx, s.cfg.Sentinel, auto.InRegion(region))
		if err != nil {
			return err
		}
		if found {
			s.log.Info("遇到 %s，扫描结束", s.cfg.Sentinel)
			s.done = true
			return nil
		}
	}

	name, err := s.ex.ReadName(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		s.counters.Skipped++
		s.log.Debug("格子 %s 没有读到名称，跳过", cell)
		return nil
	}
	if s.seen[name] {
		s.log.Info("%s 已扫描过，扫描结束", name)
		s.done = true
		return nil
	}

	rec, err := s.ex.ReadFields(ctx, name, cell, pass)
	if err != nil {
		return err
	}
	s.seen[name] = true
	s.records = append(s.records, rec)
	s.log.Info("已扫描: %v", rec)
	return nil
}
