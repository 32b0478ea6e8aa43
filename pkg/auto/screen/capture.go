// Package screen 通过 robotgo 截取模拟器画面
package screen

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/goodscan/pkg/auto"
)

// Display 模拟器画面在桌面上的区域（截图像素）。
// 实现 vision.Capturer，坐标相对 Display 左上角。
type Display struct {
	bounds auto.Region
}

// NewDisplay 使用指定区域
func NewDisplay(bounds auto.Region) *Display {
	return &Display{bounds: bounds}
}

// FullScreen 主显示器全屏
func FullScreen() *Display {
	w, h := robotgo.GetScreenSize()
	return &Display{bounds: auto.Region{Width: FromInput(w), Height: FromInput(h)}}
}

// Bounds 桌面上的区域
func (d *Display) Bounds() auto.Region {
	return d.bounds
}

// Size 画面尺寸
func (d *Display) Size() (int, int) {
	return d.bounds.Width, d.bounds.Height
}

// Capture 截取画面内的区域
func (d *Display) Capture(r auto.Region) (image.Image, error) {
	r = r.Offset(d.bounds.X, d.bounds.Y)
	w, h := max(1, ToInput(r.Width)), max(1, ToInput(r.Height))
	img, err := robotgo.CaptureImg(ToInput(r.X), ToInput(r.Y), w, h)
	if err != nil {
		return nil, fmt.Errorf("截取区域 %s 失败: %w", r, err)
	}
	return img, nil
}

// DisplayCount 显示器数量
func DisplayCount() int {
	return robotgo.DisplaysNum()
}
