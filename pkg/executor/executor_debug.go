package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/catalog"
	"github.com/zoeyai/goodscan/pkg/good"
	"github.com/zoeyai/goodscan/pkg/scan"
	"github.com/zoeyai/goodscan/pkg/scroll"
)

// TestScrollCount 滚动测试的后续滚动次数
const TestScrollCount = 10

// singleSearch 只读取屏幕上当前选中的物品，结果不导出
func (e *Executor) singleSearch(ctx context.Context) (*Result, error) {
	misc := e.settings.Misc
	var (
		weapons    []scan.Weapon
		artifacts  []scan.Artifact
		materials  []scan.Material
		characters []scan.Character
	)

	type single struct {
		enabled  bool
		category string
		read     func(context.Context) (fmt.Stringer, error)
	}
	searches := []single{
		{misc.TestSearchWeapons, scan.CategoryWeapons, func(ctx context.Context) (fmt.Stringer, error) {
			w, err := scan.NewWeaponScanner(e.deps, scan.TierOptions{}).ReadSingle(ctx)
			if err == nil && w.Key != "" {
				weapons = append(weapons, w)
			}
			return w, err
		}},
		{misc.TestSearchArtifacts, scan.CategoryArtifacts, func(ctx context.Context) (fmt.Stringer, error) {
			a, err := scan.NewArtifactScanner(e.deps, scan.TierOptions{}).ReadSingle(ctx)
			if err == nil && a.SetKey != "" {
				artifacts = append(artifacts, a)
			}
			return a, err
		}},
		{misc.TestSearchMaterials, scan.CategoryMaterials, func(ctx context.Context) (fmt.Stringer, error) {
			m, err := scan.NewMaterialScanner(e.deps, catalog.GroupMaterial).ReadSingle(ctx)
			if err == nil && m.Key != "" {
				materials = append(materials, m)
			}
			return m, err
		}},
		{misc.TestSearchCharacters, scan.CategoryCharacters, func(ctx context.Context) (fmt.Stringer, error) {
			c, err := scan.NewCharacterScanner(e.deps).ReadSingle(ctx)
			if err == nil && c.Key != "" {
				characters = append(characters, c)
			}
			return c, err
		}},
	}

	res := &Result{}
	for _, s := range lo.Filter(searches, func(s single, _ int) bool { return s.enabled }) {
		e.enter(s.category)
		record, err := s.read(ctx)
		if err != nil {
			if ce := categoryFailure(s.category, err); ce != nil {
				res.Failures = append(res.Failures, ce)
				continue
			}
			return nil, &CategoryError{Category: s.category, Err: err}
		}
		logger.Info("%s 单项读取: %v", s.category, record)
	}

	res.Document = good.Assemble(weapons, artifacts, scan.Materials(materials), characters)
	return res, nil
}

// testScroll 按设置执行滚动测试，不读取物品也不导出
func (e *Executor) testScroll(ctx context.Context) (*Result, error) {
	c := scroll.New(e.deps.Bot, e.deps.Scroll)
	res := &Result{}

	if e.settings.Misc.TestScrollRows {
		e.enter("test_scroll_rows")
		if err := c.ScrollFirstRow(ctx); err != nil {
			return nil, scrollError(err)
		}
		recoveries := 0
		for i := 0; i < TestScrollCount; i++ {
			if err := c.ScrollSubsequentRow(ctx); err != nil {
				return nil, scrollError(err)
			}
			y, ok, err := e.lastRowY(ctx)
			if err != nil {
				return nil, scrollError(err)
			}
			if !ok {
				logger.Warn("第 %d 次滚动后没有找到星级标记", i+1)
				continue
			}
			recovered, err := c.ScrollRecovery(ctx, y)
			if err != nil {
				return nil, scrollError(err)
			}
			if recovered {
				recoveries++
			}
			logger.Info("第 %d 次滚动: 标记 y=%d, 漂移补偿 %d", i+1, y, c.Drift())
		}
		logger.Info("滚动测试完成，校正 %d 次", recoveries)
	}

	if e.settings.Misc.TestScrollCharacterRows {
		e.enter("test_scroll_character_rows")
		for i := 0; i < TestScrollCount; i++ {
			if err := c.ScrollCharacterRow(ctx); err != nil {
				return nil, scrollError(err)
			}
		}
		logger.Info("角色列表滚动测试完成，共 %d 次", c.Attempts())
	}
	return res, nil
}

// lastRowY 屏幕上最后一行星级标记的 y 坐标
func (e *Executor) lastRowY(ctx context.Context) (int, bool, error) {
	var points []auto.Point
	for tier := 5; tier >= 3; tier-- {
		matches, err := e.deps.Bot.FindAll(ctx, fmt.Sprintf("rarity_%d", tier))
		if err != nil {
			return 0, false, err
		}
		for _, m := range matches {
			points = append(points, m.Center)
		}
	}
	row := auto.LastRow(points, 10)
	if len(row) == 0 {
		return 0, false, nil
	}
	return row[0].Y, true, nil
}

// categoryFailure 导航失败时返回 CategoryError，其他错误返回 nil
func categoryFailure(category string, err error) *CategoryError {
	if !errors.Is(err, scan.ErrNavigation) {
		return nil
	}
	logger.Error("%s 读取失败: %v", category, err)
	return &CategoryError{Category: category, Err: err}
}

// scrollError 区分取消与操作失败
func scrollError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &scan.CancelledError{Category: "test_scroll", Cause: err}
	}
	return &CategoryError{Category: "test_scroll", Err: err}
}
