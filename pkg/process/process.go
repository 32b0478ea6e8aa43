// Package process 按名称查找模拟器进程
package process

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/samber/lo"
)

// Info 进程信息
type Info struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Find 按名称查找进程（不区分大小写，部分匹配）
func Find(name string) ([]Info, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, fmt.Errorf("获取进程列表失败: %w", err)
	}

	name = strings.ToLower(name)
	var matches []Info
	for _, pid := range pids {
		proc, err := process.NewProcess(pid)
		if err != nil {
			continue
		}
		procName, err := proc.Name()
		if err != nil || !strings.Contains(strings.ToLower(procName), name) {
			continue
		}
		exe, _ := proc.Exe()
		matches = append(matches, Info{PID: int(pid), Name: procName, Path: exe})
	}
	return matches, nil
}

// FindEmulator 查找模拟器进程，名称完全一致的优先
func FindEmulator(name string) ([]Info, error) {
	if name == "" {
		return nil, fmt.Errorf("未配置模拟器进程名")
	}
	matches, err := Find(name)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("未找到模拟器进程 %q", name)
	}
	exact, partial := lo.FilterReject(matches, func(p Info, _ int) bool {
		base := strings.TrimSuffix(strings.ToLower(p.Name), ".exe")
		return base == strings.ToLower(name)
	})
	return append(exact, partial...), nil
}

// PIDs 提取 PID 列表
func PIDs(infos []Info) []int {
	return lo.Map(infos, func(p Info, _ int) int { return p.PID })
}

// IsRunning 进程是否仍在运行
func IsRunning(pid int) bool {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	running, err := proc.IsRunning()
	return err == nil && running
}
