// Package input 通过 robotgo 向模拟器发送点击与滑动
package input

import (
	"math"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/auto/screen"
)

// 滑动时每一步的间隔
const swipeStep = 16 * time.Millisecond

// Robot 实现 bot.Actuation。
// 传入的是 1920x1080 逻辑坐标，按 scale 换算后加上画面原点。
type Robot struct {
	origin auto.Point
	scale  float64
	// settle 按下与抬起前的停顿，让游戏识别为拖动
	settle time.Duration
}

// NewRobot 创建输入端，origin 为画面左上角的截图坐标
func NewRobot(origin auto.Point, scale float64) *Robot {
	if scale <= 0 {
		scale = 1.0
	}
	return &Robot{origin: origin, scale: scale, settle: 50 * time.Millisecond}
}

// Point 逻辑坐标转换为截图坐标
func (r *Robot) Point(x, y int) auto.Point {
	return auto.Point{
		X: r.origin.X + int(math.Round(float64(x)*r.scale)),
		Y: r.origin.Y + int(math.Round(float64(y)*r.scale)),
	}
}

func (r *Robot) move(x, y int) {
	p := r.Point(x, y)
	robotgo.Move(screen.ToInput(p.X), screen.ToInput(p.Y))
}

// Tap 移动到坐标并单击
func (r *Robot) Tap(x, y int) error {
	r.move(x, y)
	time.Sleep(r.settle)
	robotgo.Click("left", false)
	return nil
}

// Swipe 按住左键从 (x1, y1) 拖动到 (x2, y2)，duration 为拖动耗时
func (r *Robot) Swipe(x1, y1, x2, y2 int, duration time.Duration) error {
	r.move(x1, y1)
	time.Sleep(r.settle)
	if err := robotgo.Toggle("left"); err != nil {
		return err
	}

	for _, p := range Path(auto.Point{X: x1, Y: y1}, auto.Point{X: x2, Y: y2}, duration) {
		r.move(p.X, p.Y)
		time.Sleep(swipeStep)
	}

	time.Sleep(r.settle)
	return robotgo.Toggle("left", "up")
}

// Path 拖动经过的点（不含起点，含终点），每 swipeStep 一个
func Path(from, to auto.Point, duration time.Duration) []auto.Point {
	steps := max(1, int(duration/swipeStep))
	path := make([]auto.Point, 0, steps)
	for i := 1; i <= steps; i++ {
		f := float64(i) / float64(steps)
		path = append(path, auto.Point{
			X: from.X + int(math.Round(float64(to.X-from.X)*f)),
			Y: from.Y + int(math.Round(float64(to.Y-from.Y)*f)),
		})
	}
	return path
}
