// Package window 定位模拟器窗口
package window

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/auto/screen"
)

// Info 窗口信息，Bounds 为截图像素
type Info struct {
	PID    int         `json:"pid"`
	Title  string      `json:"title"`
	Bounds auto.Region `json:"bounds"`
}

// ByPID 返回进程主窗口的客户区，取不到客户区时使用整个窗口
func ByPID(pid int) (*Info, error) {
	title := robotgo.GetTitle(pid)
	if title == "" {
		return nil, fmt.Errorf("未找到 PID=%d 的窗口", pid)
	}

	bounds := toScreen(robotgo.GetClient(pid))
	if bounds.Empty() {
		bounds = toScreen(robotgo.GetBounds(pid))
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("无法获取窗口边界: PID=%d", pid)
	}
	return &Info{PID: pid, Title: title, Bounds: bounds}, nil
}

// First 返回 pids 中第一个可用的窗口
func First(pids []int) (*Info, error) {
	var lastErr error
	for _, pid := range pids {
		info, err := ByPID(pid)
		if err == nil {
			return info, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("没有候选进程")
	}
	return nil, lastErr
}

// Activate 将窗口置于前台
func Activate(pid int) error {
	if err := robotgo.ActivePid(pid); err != nil {
		return fmt.Errorf("激活窗口失败: %w", err)
	}
	return nil
}

func toScreen(x, y, w, h int) auto.Region {
	return auto.Region{
		X:      screen.FromInput(x),
		Y:      screen.FromInput(y),
		Width:  screen.FromInput(w),
		Height: screen.FromInput(h),
	}
}
