package good

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zoeyai/goodscan/internal/logger"
)

// FileLayout 导出文件名的时间格式
const FileLayout = "GOOD @ 2006-01-02 15_04_05.json"

// DefaultKeep 默认保留的导出文件数
const DefaultKeep = 50

// Writer 导出目录写入器
type Writer struct {
	Dir  string
	Keep int
	// Now 时间源，测试中替换
	Now func() time.Time
}

// NewWriter 创建写入器，keep <= 0 表示不清理旧文件
func NewWriter(dir string, keep int) *Writer {
	return &Writer{Dir: dir, Keep: keep, Now: time.Now}
}

// Write 清理旧导出后写入文档，返回文件路径
func (w *Writer) Write(doc *Document) (string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("创建导出目录失败: %w", err)
	}
	if err := w.prune(); err != nil {
		return "", err
	}

	data, err := doc.Marshal()
	if err != nil {
		return "", err
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	path := filepath.Join(w.Dir, now().Format(FileLayout))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入导出文件失败: %w", err)
	}
	if err := verify(path, doc); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	logger.Info("已导出: %s", path)
	return path, nil
}

// verify 读回写入的文件，确认能解析且条目数一致
func verify(path string, doc *Document) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读回导出文件失败: %w", err)
	}
	back, err := Decode(data)
	if err != nil {
		return err
	}
	if !maps.Equal(back.Counts(), doc.Counts()) {
		return fmt.Errorf("导出文件条目数不一致: %v, 期望 %v", back.Counts(), doc.Counts())
	}
	return nil
}

// Exports 按时间从旧到新列出已有的导出文件
func (w *Writer) Exports() ([]string, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取导出目录失败: %w", err)
	}

	type export struct {
		name string
		mod  time.Time
	}
	var files []export
	for _, e := range entries {
		if e.IsDir() || !isExport(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, export{e.Name(), info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].mod.Equal(files[j].mod) {
			return files[i].mod.Before(files[j].mod)
		}
		return files[i].name < files[j].name
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Join(w.Dir, f.name)
	}
	return paths, nil
}

// prune 导出文件数达到 Keep 时删除最旧的，直到剩下 Keep-1 个
func (w *Writer) prune() error {
	if w.Keep <= 0 {
		return nil
	}
	files, err := w.Exports()
	if err != nil {
		return err
	}
	for len(files) >= w.Keep {
		if err := os.Remove(files[0]); err != nil {
			return fmt.Errorf("删除旧导出失败: %w", err)
		}
		logger.Debug("删除旧导出: %s", files[0])
		files = files[1:]
	}
	return nil
}

func isExport(name string) bool {
	return strings.HasPrefix(name, "GOOD @ ") && strings.HasSuffix(name, ".json")
}
