package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/zoeyai/goodscan/internal/logger"
)

// WatchStopFile 监听停止文件，文件被创建时调用 cancel。
// 启动时已存在的旧文件会被删除。阻塞直到 ctx 结束。
func WatchStopFile(ctx context.Context, path string, cancel context.CancelFunc) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("解析停止文件路径失败: %w", err)
	}

	if err := os.Remove(path); err == nil {
		logger.Info("已删除残留的停止文件: %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除残留停止文件失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("监听目录失败: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) == path && (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				logger.Warn("检测到停止文件，正在停止扫描: %s", path)
				cancel()
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("文件监听错误: %v", err)
		}
	}
}
