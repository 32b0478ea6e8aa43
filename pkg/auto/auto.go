package auto

import (
	"fmt"
	"image"
	"math"
	"math/rand"
	"sort"
	"time"
)

// Point 表示二维坐标点
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add 返回偏移后的点
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Region 表示矩形区域
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect 转换为 image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty 区域是否为空
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains 点是否落在区域内
func (r Region) Contains(p Point) bool {
	return p.In(r.Rect())
}

// Center 区域中心
func (r Region) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Offset 平移区域
func (r Region) Offset(dx, dy int) Region {
	return Region{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Clip 将区域裁剪到 bounds 内
func (r Region) Clip(bounds Region) Region {
	rect := r.Rect().Intersect(bounds.Rect())
	return Region{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
}

func (r Region) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", r.X, r.Y, r.Width, r.Height)
}

// In 点是否在矩形内
func (p Point) In(rect image.Rectangle) bool {
	return image.Pt(p.X, p.Y).In(rect)
}

// RegionFromRect 从 image.Rectangle 构造
func RegionFromRect(rect image.Rectangle) Region {
	return Region{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
}

// SortReadingOrder 按行优先（先 y 后 x）排序，同一行允许 tolerance 像素误差
func SortReadingOrder(points []Point, tolerance int) {
	sort.SliceStable(points, func(i, j int) bool {
		dy := points[i].Y - points[j].Y
		if dy > tolerance || dy < -tolerance {
			return dy < 0
		}
		return points[i].X < points[j].X
	})
}

// LastRow 只保留最后一行（y 最大且误差在 tolerance 内）的点，保持原顺序
func LastRow(points []Point, tolerance int) []Point {
	if len(points) == 0 {
		return nil
	}
	maxY := points[0].Y
	for _, p := range points[1:] {
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	row := make([]Point, 0, len(points))
	for _, p := range points {
		if maxY-p.Y <= tolerance {
			row = append(row, p)
		}
	}
	return row
}

// Jitter 在 base 基础上加入 [-spread, +spread] 的随机抖动，结果不小于 0
func Jitter(rng *rand.Rand, base, spread time.Duration) time.Duration {
	if spread <= 0 || rng == nil {
		return base
	}
	delta := time.Duration(rng.Int63n(int64(2*spread)+1)) - spread
	if d := base + delta; d > 0 {
		return d
	}
	return 0
}

// ScaleCoord 按比例缩放坐标值
func ScaleCoord(value int, scale float64) int {
	if scale <= 0 {
		return value
	}
	return int(math.Round(float64(value) / scale))
}

// Clamp 将 v 限制在 [lo, hi]
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
