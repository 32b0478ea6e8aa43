package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/auto/input"
	"github.com/zoeyai/goodscan/pkg/auto/screen"
	"github.com/zoeyai/goodscan/pkg/auto/window"
	"github.com/zoeyai/goodscan/pkg/bot"
	"github.com/zoeyai/goodscan/pkg/catalog"
	"github.com/zoeyai/goodscan/pkg/config"
	"github.com/zoeyai/goodscan/pkg/fuzzy"
	"github.com/zoeyai/goodscan/pkg/process"
	"github.com/zoeyai/goodscan/pkg/scan"
	"github.com/zoeyai/goodscan/pkg/vision"
	"github.com/zoeyai/goodscan/pkg/vision/cv"
	"github.com/zoeyai/goodscan/pkg/vision/debug"
	"github.com/zoeyai/goodscan/pkg/vision/ocr"
)

// rgbTemplates 需要按颜色区分的模板
var rgbTemplates = []string{"detail_star", "locked", "rarity_3", "rarity_4", "rarity_5", "constellation_locked"}

// environment 一次扫描用到的外部资源
type environment struct {
	deps   scan.Deps
	lib    *cv.Library
	reader *ocr.Reader
}

func (e *environment) Close() error {
	e.lib.Close()
	return e.reader.Close()
}

// setup 定位模拟器窗口并创建识别与操作依赖
func setup(cfg *config.Settings) (*environment, error) {
	ref, err := loadCatalog(cfg.CatalogDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("参考数据: %v", ref.Counts())

	display, err := locateDisplay(cfg)
	if err != nil {
		return nil, err
	}
	b := display.Bounds()
	logger.Info("模拟器画面: %s, 缩放 %.2f", b, cfg.CustomScale)
	if w := auto.ScaleCoord(b.Width, cfg.CustomScale); w != vision.LogicalWidth {
		logger.Warn("画面宽度 %d 按 custom_scale 换算为 %d，与 %d 不一致，识别可能失败", b.Width, w, vision.LogicalWidth)
	}

	reader, err := ocr.Open(ocr.Config{
		OnnxRuntimeLibPath: cfg.OCR.OnnxRuntimeLib,
		DetModelPath:       cfg.OCR.DetModel,
		RecModelPath:       cfg.OCR.RecModel,
		DictPath:           cfg.OCR.Dict,
		TesseractLang:      cfg.OCR.TesseractLang,
	}.Resolve())
	if err != nil {
		return nil, fmt.Errorf("初始化 OCR 失败: %w", err)
	}

	lib := cv.NewLibrary(cfg.AssetsDir, cv.WithScale(cfg.CustomScale), cv.WithRGB(rgbTemplates...))
	opts := []vision.Option{
		vision.WithScale(cfg.CustomScale),
		vision.WithConfidence(cfg.Confidence, cfg.ConfidenceAll),
	}
	if cfg.Misc.DebugMode {
		dumper, err := debug.New(filepath.Join(cfg.OutputDir, "debug"))
		if err != nil {
			lib.Close()
			return nil, errors.Join(err, reader.Close())
		}
		logger.Info("调试截图保存到 %s", dumper.Dir())
		opts = append(opts, vision.WithDebug(dumper))
	}
	eyes := vision.New(display, lib, reader, opts...)
	hands := input.NewRobot(auto.Point{X: b.X, Y: b.Y}, cfg.CustomScale)

	botCfg := bot.Config{
		Confidence:    cfg.Confidence,
		ConfidenceAll: cfg.ConfidenceAll,
		DelayTap:      cfg.DelayTap,
		DelayTapMs:    cfg.DelayTapMs,
	}

	materials, characters, err := layouts(cfg)
	if err != nil {
		lib.Close()
		return nil, errors.Join(err, reader.Close())
	}

	wanderer := ""
	if cfg.Characters.EnableWanderer {
		wanderer = cfg.Characters.WandererName
	}
	deps := scan.Deps{
		Bot:     bot.New(eyes, hands, botCfg),
		Ref:     ref,
		Matcher: fuzzy.NewMatcher(fuzzy.DefaultThreshold, ref.Corrections()),
		Policy:  fuzzy.DefaultPolicy,
		Scroll:  cfg.Scroll,
		Aliases: scan.NewAliases(cfg.Characters.TravelerName, wanderer),

		Materials:  materials,
		Characters: characters,
	}
	return &environment{deps: deps, lib: lib, reader: reader}, nil
}

// layouts 使用配置中的网格偏移替换默认布局
func layouts(cfg *config.Settings) (scan.MaterialLayout, scan.CharacterLayout, error) {
	materials, characters := scan.DefaultMaterialLayout(), scan.DefaultCharacterLayout()
	var err error
	if materials.Grid, err = cfg.Layout.Materials.Layout(); err != nil {
		return materials, characters, fmt.Errorf("材料网格配置无效: %w", err)
	}
	if characters.Grid, err = cfg.Layout.Characters.Layout(); err != nil {
		return materials, characters, fmt.Errorf("角色网格配置无效: %w", err)
	}
	return materials, characters, nil
}

func loadCatalog(dir string) (*catalog.ReferenceData, error) {
	if dir == "" {
		return catalog.Load()
	}
	logger.Info("使用参考数据目录: %s", dir)
	return catalog.LoadDir(dir)
}

// locateDisplay 配置了 display 时直接使用，否则按进程名查找模拟器窗口并置于前台
func locateDisplay(cfg *config.Settings) (*screen.Display, error) {
	if !cfg.Display.Auto() {
		d := cfg.Display
		return screen.NewDisplay(auto.Region{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}), nil
	}

	procs, err := process.FindEmulator(cfg.EmulatorProcess)
	if err != nil {
		return nil, fmt.Errorf("%w，可在配置中手动设置 display", err)
	}
	info, err := window.First(process.PIDs(procs))
	if err != nil {
		return nil, fmt.Errorf("查找模拟器窗口失败: %w", err)
	}
	if err := window.Activate(info.PID); err != nil {
		logger.Warn("%v", err)
	}
	logger.Info("找到模拟器窗口: %s (PID=%d)", info.Title, info.PID)
	return screen.NewDisplay(info.Bounds), nil
}
