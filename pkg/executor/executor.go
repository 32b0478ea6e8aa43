// Package executor 按设置依次运行各类别扫描并组装 GOOD 文档
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/catalog"
	"github.com/zoeyai/goodscan/pkg/config"
	"github.com/zoeyai/goodscan/pkg/good"
	"github.com/zoeyai/goodscan/pkg/scan"
)

// DefaultSettleDelay 开始扫描前的等待，留给用户切回游戏窗口
const DefaultSettleDelay = 2500 * time.Millisecond

// ErrBusy 已有扫描在运行
var ErrBusy = errors.New("扫描正在运行")

// CategoryError 单个类别的扫描错误
type CategoryError struct {
	Category string
	Err      error
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *CategoryError) Unwrap() error {
	return e.Err
}

// Result 一次运行的结果
type Result struct {
	Document *good.Document
	// Export 为 false 时是测试模式，结果不应写入导出目录
	Export bool
	// Failures 因导航失败而跳过的类别
	Failures []*CategoryError
	Elapsed  time.Duration
}

// Status 执行器状态
type Status struct {
	Running   bool
	Category  string
	StartedAt time.Time
}

// Option 执行器选项
type Option func(*Executor)

// WithSettleDelay 设置开始前的等待
func WithSettleDelay(d time.Duration) Option {
	return func(e *Executor) {
		e.settle = d
	}
}

// Executor 扫描执行器，同一时间只运行一次扫描
type Executor struct {
	deps     scan.Deps
	settings *config.Settings
	settle   time.Duration

	mu        sync.Mutex
	running   bool
	category  string
	startedAt time.Time
	cancel    context.CancelFunc
}

// New 创建执行器
func New(deps scan.Deps, settings *config.Settings, opts ...Option) *Executor {
	e := &Executor{
		deps:     deps,
		settings: settings,
		settle:   DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status 返回当前状态
func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{Running: e.running, Category: e.category, StartedAt: e.startedAt}
}

// Cancel 取消正在运行的扫描，没有运行时返回 false
func (e *Executor) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.cancel == nil {
		return false
	}
	e.cancel()
	return true
}

func (e *Executor) start(cancel context.CancelFunc) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running, e.cancel, e.startedAt, e.category = true, cancel, time.Now(), ""
	return true
}

func (e *Executor) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running, e.cancel, e.category = false, nil, ""
}

func (e *Executor) enter(category string) {
	e.mu.Lock()
	e.category = category
	e.mu.Unlock()
}

// Run 运行扫描。
// 某个类别无法进入时记录错误并输出空结果，继续后面的类别；被取消时返回 ErrCancelled 且不返回文档。
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !e.start(cancel) {
		return nil, ErrBusy
	}
	defer e.finish()

	start := time.Now()
	var (
		res *Result
		err error
	)
	misc := e.settings.Misc
	switch {
	case misc.TestScrollRows || misc.TestScrollCharacterRows:
		res, err = e.testScroll(ctx)
	case misc.TestSingleSearch:
		res, err = e.singleSearch(ctx)
	default:
		res, err = e.scanAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// scanAll 依次扫描武器、圣遗物、材料、培养素材与角色
func (e *Executor) scanAll(ctx context.Context) (*Result, error) {
	if err := e.deps.Bot.Wait(ctx, e.settle); err != nil {
		return nil, &scan.CancelledError{Category: "start", Cause: err}
	}

	res := &Result{Export: true}
	s := e.settings
	tier := func(t config.TierSettings) scan.TierOptions {
		return scan.TierOptions{Tiers: t.Tiers(), OnlyLocked: t.OnlyLocked, MaxEmptyRows: t.MaxEmptyRows}
	}

	var (
		weapons    []scan.Weapon
		artifacts  []scan.Artifact
		materials  []scan.Material
		devItems   []scan.Material
		characters []scan.Character
		err        error
	)
	if s.Weapons.Enabled {
		weapons, err = runCategory(ctx, e, res, scan.CategoryWeapons, scan.NewWeaponScanner(e.deps, tier(s.Weapons)).Run)
		if err != nil {
			return nil, err
		}
	}
	if s.Artifacts.Enabled {
		artifacts, err = runCategory(ctx, e, res, scan.CategoryArtifacts, scan.NewArtifactScanner(e.deps, tier(s.Artifacts)).Run)
		if err != nil {
			return nil, err
		}
	}
	if s.Materials.Enabled {
		materials, err = runCategory(ctx, e, res, scan.CategoryMaterials, scan.NewMaterialScanner(e.deps, catalog.GroupMaterial).Run)
		if err != nil {
			return nil, err
		}
		if s.Materials.DevelopmentItems {
			devItems, err = runCategory(ctx, e, res, scan.CategoryDevelopmentItems, scan.NewMaterialScanner(e.deps, catalog.GroupDevelopment).Run)
			if err != nil {
				return nil, err
			}
		}
	}
	if s.Characters.Enabled {
		characters, err = runCategory(ctx, e, res, scan.CategoryCharacters, scan.NewCharacterScanner(e.deps).Run)
		if err != nil {
			return nil, err
		}
	}

	res.Document = good.Assemble(weapons, artifacts, scan.Materials(materials, devItems), characters)
	for category, n := range res.Document.Counts() {
		logger.Debug("%s: %d", category, n)
	}
	return res, nil
}

// runCategory 运行单个类别。导航失败时记录到 res.Failures 并返回空结果
func runCategory[T any](ctx context.Context, e *Executor, res *Result, category string, run func(context.Context) ([]T, error)) ([]T, error) {
	e.enter(category)
	start := time.Now()
	logger.Info("开始扫描 %s", category)

	records, err := run(ctx)
	switch {
	case err == nil:
		logger.LogEvent(category, true, logger.Since(start), fmt.Sprintf("%d 条", len(records)))
		return records, nil
	case errors.Is(err, scan.ErrNavigation):
		logger.Error("%s 扫描失败，跳过该类别: %v", category, err)
		logger.LogEvent(category, false, logger.Since(start), err.Error())
		res.Failures = append(res.Failures, &CategoryError{Category: category, Err: err})
		return nil, nil
	default:
		logger.LogEvent(category, false, logger.Since(start), err.Error())
		return nil, &CategoryError{Category: category, Err: err}
	}
}
