// Package permissions 检查截图与模拟输入所需的系统权限
//
// 只有 macOS 需要单独授权；其他平台 Check 总是返回全部已授予。
package permissions

import (
	"fmt"
	"strings"
)

// Status 权限状态
type Status struct {
	Accessibility   bool `json:"accessibility"`
	ScreenRecording bool `json:"screen_recording"`
}

// Granted 是否全部授予
func (s Status) Granted() bool {
	return s.Accessibility && s.ScreenRecording
}

// Instructions 缺少权限时的提示，全部授予时为空
func (s Status) Instructions() string {
	if s.Granted() {
		return ""
	}
	var b strings.Builder
	b.WriteString("扫描需要以下系统权限:\n")
	n := 0
	if !s.Accessibility {
		n++
		fmt.Fprintf(&b, "  %d. 辅助功能 (点击与滑动模拟器)\n", n)
	}
	if !s.ScreenRecording {
		n++
		fmt.Fprintf(&b, "  %d. 屏幕录制 (截取模拟器画面)\n", n)
	}
	b.WriteString("请在 系统设置 > 隐私与安全性 中授权后重新运行")
	return b.String()
}
