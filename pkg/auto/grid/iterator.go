package grid

import "github.com/zoeyai/goodscan/pkg/auto"

// Iterator 网格迭代器，按行优先遍历锚点偏移网格
type Iterator struct {
	anchor  auto.Point
	cols    []int
	rows    []int
	current int
}

// NewIterator 创建网格迭代器
func NewIterator(anchor auto.Point, cols, rows []int) *Iterator {
	return &Iterator{
		anchor: anchor,
		cols:   cols,
		rows:   rows,
	}
}

// Next 获取下一个网格位置，如果遍历完毕返回 nil
func (g *Iterator) Next() *auto.Point {
	if len(g.cols) == 0 || g.current >= g.Count() {
		return nil
	}

	row := g.current / len(g.cols)
	col := g.current % len(g.cols)
	g.current++

	pos := g.anchor.Add(g.cols[col], g.rows[row])
	return &pos
}

// Count 返回总格子数
func (g *Iterator) Count() int {
	return len(g.rows) * len(g.cols)
}
