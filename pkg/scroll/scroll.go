// Package scroll 控制背包网格的滚动
//
// 游戏的惯性滚动每次会多走几个像素，连续滚动时误差累积。Controller 在每 DriftPeriod
// 次滚动后把距离缩短 DriftStep 像素，并在最后一行标记偏离锚点时做慢速校正。
package scroll

import (
	"context"
	"fmt"
	"time"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/auto"
)

// Driver 滚动所需的操作，*bot.Bot 实现了该接口
type Driver interface {
	Swipe(ctx context.Context, from, to auto.Point, d time.Duration) error
	FindAndPress(ctx context.Context, template string, opts ...auto.Option) (bool, error)
	Wait(ctx context.Context, d time.Duration) error
}

// Geometry 滚动参数，坐标基于 1920x1080 窗口
type Geometry struct {
	// 背包网格滑动起点
	StartX int `json:"start_x" mapstructure:"start_x"`
	StartY int `json:"start_y" mapstructure:"start_y"`
	// FirstRowDistance 首次滚动距离
	FirstRowDistance int `json:"first_row_distance" mapstructure:"first_row_distance"`
	// RowDistance 后续每行滚动距离
	RowDistance int `json:"row_distance" mapstructure:"row_distance"`
	// 漂移补偿：每 DriftPeriod 次滚动 drift 增加 DriftStep，超过 DriftLimit 归零
	DriftStep   int `json:"drift_step" mapstructure:"drift_step"`
	DriftPeriod int `json:"drift_period" mapstructure:"drift_period"`
	DriftLimit  int `json:"drift_limit" mapstructure:"drift_limit"`

	SwipeDuration    time.Duration `json:"swipe_duration" mapstructure:"swipe_duration"`
	RecoveryDuration time.Duration `json:"recovery_duration" mapstructure:"recovery_duration"`
	SettleDelay      time.Duration `json:"settle_delay" mapstructure:"settle_delay"`

	// 回到顶部的兜底滑动
	ResetSwipes   int `json:"reset_swipes" mapstructure:"reset_swipes"`
	ResetDistance int `json:"reset_distance" mapstructure:"reset_distance"`

	// RecoveryAnchorY 滚动后最后一行标记应在的 y 坐标
	RecoveryAnchorY int `json:"recovery_anchor_y" mapstructure:"recovery_anchor_y"`
	// RecoveryTolerance 允许的偏差
	RecoveryTolerance int `json:"recovery_tolerance" mapstructure:"recovery_tolerance"`

	// 角色列表
	CharacterStartX      int `json:"character_start_x" mapstructure:"character_start_x"`
	CharacterStartY      int `json:"character_start_y" mapstructure:"character_start_y"`
	CharacterRowDistance int `json:"character_row_distance" mapstructure:"character_row_distance"`
}

// DefaultGeometry 默认滚动参数
func DefaultGeometry() Geometry {
	return Geometry{
		StartX:            900,
		StartY:            800,
		FirstRowDistance:  120,
		RowDistance:       220,
		DriftStep:         2,
		DriftPeriod:       3,
		DriftLimit:        20,
		SwipeDuration:     1000 * time.Millisecond,
		RecoveryDuration:  1500 * time.Millisecond,
		SettleDelay:       500 * time.Millisecond,
		ResetSwipes:       10,
		ResetDistance:     700,
		RecoveryAnchorY:   880,
		RecoveryTolerance: 15,

		CharacterStartX:      240,
		CharacterStartY:      900,
		CharacterRowDistance: 220,
	}
}

// Validate 检查参数
func (g Geometry) Validate() error {
	switch {
	case g.RowDistance <= 0 || g.FirstRowDistance <= 0:
		return fmt.Errorf("滚动距离必须大于 0: first=%d, row=%d", g.FirstRowDistance, g.RowDistance)
	case g.DriftLimit < 0 || g.DriftStep < 0:
		return fmt.Errorf("漂移补偿参数不能为负: step=%d, limit=%d", g.DriftStep, g.DriftLimit)
	case g.DriftLimit >= g.RowDistance:
		return fmt.Errorf("漂移上限 %d 必须小于行距 %d", g.DriftLimit, g.RowDistance)
	case g.CharacterRowDistance <= 0:
		return fmt.Errorf("角色列表行距必须大于 0")
	}
	return nil
}

// Controller 滚动控制器，每次扫描新建
type Controller struct {
	d   Driver
	geo Geometry

	attempts     int
	drift        int
	firstRowDone bool
}

// New 创建滚动控制器
func New(d Driver, geo Geometry) *Controller {
	return &Controller{d: d, geo: geo}
}

// Geometry 返回滚动参数
func (c *Controller) Geometry() Geometry {
	return c.geo
}

// Attempts 首次滚动后的后续滚动次数
func (c *Controller) Attempts() int {
	return c.attempts
}

// Drift 当前漂移补偿像素
func (c *Controller) Drift() int {
	return c.drift
}

// FirstRowDone 是否已完成首次滚动
func (c *Controller) FirstRowDone() bool {
	return c.firstRowDone
}

// ResetToTop 回到列表顶部。
// pressReorder 为 true 时点击两次排序按钮，找不到按钮时改为多次向下滑动。
func (c *Controller) ResetToTop(ctx context.Context, pressReorder bool) error {
	c.attempts, c.drift, c.firstRowDone = 0, 0, false

	if pressReorder {
		ok, err := c.d.FindAndPress(ctx, "reorder", auto.WithAttempts(2))
		if err != nil {
			return err
		}
		if ok {
			if err := c.d.Wait(ctx, c.geo.SettleDelay); err != nil {
				return err
			}
			if _, err := c.d.FindAndPress(ctx, "reorder", auto.WithAttempts(2)); err != nil {
				return err
			}
			return c.d.Wait(ctx, c.geo.SettleDelay)
		}
		logger.Warn("未找到排序按钮，改为滑动回到顶部")
	}

	from := auto.Point{X: c.geo.StartX, Y: c.geo.StartY - c.geo.ResetDistance}
	to := auto.Point{X: c.geo.StartX, Y: c.geo.StartY}
	for i := 0; i < c.geo.ResetSwipes; i++ {
		if err := c.d.Swipe(ctx, from, to, c.geo.SwipeDuration/4); err != nil {
			return err
		}
	}
	return c.d.Wait(ctx, c.geo.SettleDelay)
}

// ScrollFirstRow 首次滚动，露出第一行下方的新行
func (c *Controller) ScrollFirstRow(ctx context.Context) error {
	c.attempts, c.drift = 0, 0
	c.firstRowDone = true
	return c.swipeUp(ctx, c.geo.StartX, c.geo.StartY, c.geo.FirstRowDistance, c.geo.SwipeDuration)
}

// ScrollSubsequentRow 后续滚动，距离为 RowDistance 减去漂移补偿
func (c *Controller) ScrollSubsequentRow(ctx context.Context) error {
	c.attempts++
	if c.geo.DriftPeriod > 0 && c.attempts%c.geo.DriftPeriod == 0 {
		c.drift += c.geo.DriftStep
		if c.drift > c.geo.DriftLimit {
			c.drift = 0
		}
	}
	return c.swipeUp(ctx, c.geo.StartX, c.geo.StartY, c.geo.RowDistance-c.drift, c.geo.SwipeDuration)
}

// ScrollRecovery 最后一行标记偏离锚点超过容差时慢速校正，返回是否执行了校正
func (c *Controller) ScrollRecovery(ctx context.Context, observedY int) (bool, error) {
	deficit := observedY - c.geo.RecoveryAnchorY
	if abs(deficit) <= c.geo.RecoveryTolerance {
		return false, nil
	}

	// 单次校正不超过半行
	limit := c.geo.RowDistance / 2
	deficit = auto.Clamp(deficit, -limit, limit)
	logger.Debug("滚动校正: 观测 y=%d, 锚点 y=%d, 校正 %d", observedY, c.geo.RecoveryAnchorY, deficit)

	// 标记偏下说明滚动不足，继续上滑；偏上则下滑
	if err := c.swipeUp(ctx, c.geo.StartX, c.geo.StartY, deficit, c.geo.RecoveryDuration); err != nil {
		return false, err
	}
	return true, nil
}

// ScrollCharacterRow 角色列表滚动一行
func (c *Controller) ScrollCharacterRow(ctx context.Context) error {
	c.attempts++
	return c.swipeUp(ctx, c.geo.CharacterStartX, c.geo.CharacterStartY, c.geo.CharacterRowDistance, c.geo.SwipeDuration)
}

// swipeUp 从 (x, y) 向上滑动 distance 像素，负值表示向下
func (c *Controller) swipeUp(ctx context.Context, x, y, distance int, d time.Duration) error {
	from := auto.Point{X: x, Y: y}
	to := auto.Point{X: x, Y: y - distance}
	if err := c.d.Swipe(ctx, from, to, d); err != nil {
		return err
	}
	return c.d.Wait(ctx, c.geo.SettleDelay)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
