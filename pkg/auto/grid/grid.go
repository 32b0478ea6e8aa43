// Package grid 提供以屏幕锚点为原点的固定偏移网格
package grid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zoeyai/goodscan/pkg/auto"
)

// Layout 网格布局：列与行都是相对锚点的像素偏移
type Layout struct {
	// Columns 每列中心的 x 偏移
	Columns []int `json:"columns"`
	// FirstRows 首轮扫描的各行 y 偏移
	FirstRows []int `json:"first_rows"`
	// NextRows 滚动后新露出行的 y 偏移
	NextRows []int `json:"next_rows"`
}

// 材料背包网格（7 列），锚点为背包图标
var MaterialLayout = Layout{
	Columns:   []int{205, 390, 575, 760, 945, 1130, 1315},
	FirstRows: []int{175, 395, 615},
	NextRows:  []int{735},
}

// 角色列表网格（3 列），锚点为角色列表起始位置
var CharacterLayout = Layout{
	Columns:   []int{40, 215, 390},
	FirstRows: []int{175, 395, 615, 835},
	NextRows:  []int{835},
}

// Validate 检查布局是否可用
func (l Layout) Validate() error {
	if len(l.Columns) == 0 {
		return fmt.Errorf("网格列数必须大于 0")
	}
	if len(l.FirstRows) == 0 || len(l.NextRows) == 0 {
		return fmt.Errorf("网格行数必须大于 0: first=%d, next=%d", len(l.FirstRows), len(l.NextRows))
	}
	return nil
}

// Rows 返回第 pass 轮（从 0 开始）要扫描的行偏移
func (l Layout) Rows(pass int) []int {
	if pass == 0 {
		return l.FirstRows
	}
	return l.NextRows
}

// Capacity 第 pass 轮的格子数
func (l Layout) Capacity(pass int) int {
	return len(l.Columns) * len(l.Rows(pass))
}

// Cells 计算第 pass 轮所有格子的屏幕坐标，行优先
func (l Layout) Cells(anchor auto.Point, pass int) []auto.Point {
	it := NewIterator(anchor, l.Columns, l.Rows(pass))
	cells := make([]auto.Point, 0, l.Capacity(pass))
	for p := it.Next(); p != nil; p = it.Next() {
		cells = append(cells, *p)
	}
	return cells
}

// ParseOffsets 解析逗号分隔的偏移列表，如 "205,390,575"
func ParseOffsets(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("偏移字符串为空")
	}

	parts := strings.Split(s, ",")
	offsets := make([]int, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("无效的偏移: %q", part)
		}
		offsets = append(offsets, v)
	}
	return offsets, nil
}

// FormatOffsets 格式化偏移列表
func FormatOffsets(offsets []int) string {
	parts := make([]string, len(offsets))
	for i, v := range offsets {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
