// Package scan 实现各类别的背包扫描：武器、圣遗物、材料与角色
//
// 武器与圣遗物使用 TierScanner 按星级标记逐行扫描；材料与角色使用 GridScanner
// 按相对锚点的固定偏移逐格扫描。所有扫描在单个 goroutine 上顺序执行，
// 每个循环入口与每个格子都会检查取消。
package scan

import (
	"context"
	"time"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/bot"
	"github.com/zoeyai/goodscan/pkg/catalog"
	"github.com/zoeyai/goodscan/pkg/fuzzy"
	"github.com/zoeyai/goodscan/pkg/scroll"
)

// 类别名称
const (
	CategoryWeapons          = "weapons"
	CategoryArtifacts        = "artifacts"
	CategoryMaterials        = "materials"
	CategoryDevelopmentItems = "characterdevelopmentitems"
	CategoryCharacters       = "characters"
)

// Deps 扫描器共享的依赖
type Deps struct {
	Bot     *bot.Bot
	Ref     *catalog.ReferenceData
	Matcher *fuzzy.Matcher
	Policy  fuzzy.Policy
	Scroll  scroll.Geometry
	// Aliases 自定义角色名到键名的映射，键为 fuzzy.Fold 后的名称
	Aliases map[string]string

	// 界面布局，零值使用默认布局
	Items      ItemLayout
	Characters CharacterLayout
	Materials  MaterialLayout
}

// NewAliases 生成自定义旅行者与流浪者名称的映射
func NewAliases(travelerName, wandererName string) map[string]string {
	aliases := map[string]string{}
	if travelerName != "" {
		aliases[fuzzy.Fold(travelerName)] = "Traveler"
	}
	if wandererName != "" {
		aliases[fuzzy.Fold(wandererName)] = "Wanderer"
	}
	return aliases
}

func (d Deps) reader(category string) *reader {
	policy := d.Policy
	if policy.Attempts == 0 {
		policy = fuzzy.DefaultPolicy
	}
	m := d.Matcher
	if m == nil {
		m = fuzzy.NewMatcher(fuzzy.DefaultThreshold, d.Ref.Corrections())
	}
	return &reader{
		b:      d.Bot,
		m:      m,
		policy: policy,
		log:    logger.With(map[string]any{"category": category}),
	}
}

// EnterCategory 切换到类别页：已选中时直接返回，否则点击未选中的标签，两者都找不到时返回 ErrNavigation
func EnterCategory(ctx context.Context, b *bot.Bot, category string) error {
	selected := "category_selected_" + category
	ok, err := b.Exists(ctx, selected, auto.WithAttempts(2))
	if err != nil {
		return wrapCancel(category, err)
	}
	if ok {
		return nil
	}

	unselected := "category_unselected_" + category
	pressed, err := b.FindAndPress(ctx, unselected, auto.WithAttempts(2))
	if err != nil {
		return wrapCancel(category, err)
	}
	if !pressed {
		logger.Error("无法切换到 %s 页面", category)
		return &NavigationError{Category: category, Template: unselected}
	}
	return wrapCancel(category, b.Wait(ctx, 500*time.Millisecond))
}
