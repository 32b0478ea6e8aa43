package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/bot"
	"github.com/zoeyai/goodscan/pkg/config"
	"github.com/zoeyai/goodscan/pkg/executor"
	"github.com/zoeyai/goodscan/pkg/good"
	"github.com/zoeyai/goodscan/pkg/permissions"
	"github.com/zoeyai/goodscan/pkg/scan"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// 退出码
const (
	exitOK        = 0
	exitError     = 1
	exitCancelled = 130
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain 返回退出码，延迟的清理（日志文件、信号监听）在退出前执行
func realMain(args []string) int {
	fs := flag.NewFlagSet("goodscan", flag.ContinueOnError)
	var (
		configFile  = fs.String("config", "", "配置文件路径 (默认 ~/.goodscan/config.json)")
		assetsDir   = fs.String("assets", "", "模板图片目录")
		outputDir   = fs.String("out", "", "导出目录")
		categories  = fs.String("categories", "", "只扫描指定类别，逗号分隔 (weapons,artifacts,materials,characters)")
		debugMode   = fs.Bool("debug", false, "调试模式：输出 DEBUG 日志并保存标注截图")
		stopFile    = fs.String("stop-file", "", "创建该文件时停止扫描")
		logFile     = fs.String("log-file", "", "同时写入 JSON 日志文件")
		saveConfig  = fs.Bool("save", false, "保存当前配置")
		showVersion = fs.Bool("version", false, "显示版本信息")
		showHelp    = fs.Bool("help", false, "显示帮助信息")
	)
	fs.Usage = func() { printHelp(fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	if *showVersion {
		printVersion()
		return exitOK
	}
	if *showHelp {
		printHelp(fs)
		return exitOK
	}
	good.Version = Version

	manager := config.GetDefaultManager()
	if *configFile != "" {
		manager = config.NewManagerWithFile(*configFile)
	}
	cfg, err := manager.Load()
	if err != nil {
		logger.Warn("加载配置失败，使用默认配置: %v", err)
	}

	// 命令行参数优先级高于配置文件
	if *assetsDir != "" {
		cfg.AssetsDir = *assetsDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *debugMode {
		cfg.Misc.DebugMode = true
	}
	if *categories != "" {
		if err := cfg.EnableOnly(strings.Split(*categories, ",")); err != nil {
			return fail(err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fail(fmt.Errorf("配置无效:\n%w", err))
	}

	if cfg.Misc.DebugMode {
		logger.Default().SetLevel(logger.DEBUG)
	}
	if *logFile != "" {
		if err := logger.Default().SetFile(true, *logFile); err != nil {
			return fail(err)
		}
		defer logger.Default().Close()
	}

	if *saveConfig {
		if err := manager.Save(cfg); err != nil {
			logger.Warn("保存配置失败: %v", err)
		} else {
			logger.Info("配置已保存到 %s", manager.GetConfigFile())
		}
	}

	fmt.Println("========================================")
	fmt.Printf("  goodscan v%s\n", Version)
	fmt.Println("========================================")
	logger.Info("扫描类别: %s", strings.Join(cfg.Categories(), ", "))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *stopFile != "" {
		go func() {
			if err := bot.WatchStopFile(ctx, *stopFile, stop); err != nil {
				logger.Warn("停止文件监听失败: %v", err)
			}
		}()
	}

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, scan.ErrCancelled) {
			logger.Warn("扫描已取消，未导出任何文件")
			return exitCancelled
		}
		return fail(err)
	}
	return exitOK
}

func run(ctx context.Context, cfg *config.Settings) error {
	if status := permissions.Check(); !status.Granted() {
		permissions.OpenSettings(status)
		return errors.New(status.Instructions())
	}

	env, err := setup(cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	logger.Info("请切换到游戏背包界面，扫描即将开始")
	res, err := executor.New(env.deps, cfg).Run(ctx)
	if err != nil {
		return err
	}

	for _, f := range res.Failures {
		logger.Error("类别 %s 未能扫描: %v", f.Category, f.Err)
	}
	if !res.Export {
		logger.Info("测试模式结束，用时 %s", res.Elapsed.Round(time.Millisecond))
		return nil
	}

	for category, n := range res.Document.Counts() {
		logger.Info("%s: %d", category, n)
	}
	path, err := good.NewWriter(cfg.OutputDir, cfg.KeepExports).Write(res.Document)
	if err != nil {
		return err
	}
	logger.Info("扫描完成，用时 %s，结果已写入 %s", res.Elapsed.Round(time.Millisecond), filepath.Clean(path))
	return nil
}

func fail(err error) int {
	logger.Error("%v", err)
	return exitError
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("goodscan v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

// printHelp 打印帮助信息
func printHelp(fs *flag.FlagSet) {
	fmt.Println("goodscan - 原神背包扫描，导出 GOOD 格式")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  goodscan [选项]")
	fmt.Println()
	fmt.Println("选项:")
	fs.SetOutput(os.Stdout)
	fs.PrintDefaults()
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  # 扫描全部类别")
	fmt.Println("  goodscan")
	fmt.Println()
	fmt.Println("  # 只扫描武器与圣遗物，并保存调试截图")
	fmt.Println("  goodscan -categories weapons,artifacts -debug")
	fmt.Println()
	fmt.Println("环境变量 GOODSCAN_<SECTION>_<KEY> 可覆盖配置，如 GOODSCAN_WEAPONS_ONLY_LOCKED=true")
	fmt.Printf("配置文件位置: %s\n", config.GetDefaultManager().GetConfigFile())
}
