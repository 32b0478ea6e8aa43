package screen

import (
	"math"
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/goodscan/internal/logger"
)

// 截图像素与 robotgo 输入坐标可能不在同一空间（Windows 高 DPI、macOS Retina）。
// 启动时比较全屏截图尺寸与 robotgo.GetScreenSize() 得到两者的比例：
//
//	输入坐标 = 截图坐标 / coordScale
var (
	coordOnce  sync.Once
	coordScale = 1.0
)

// CoordScale 截图像素 / 输入坐标
func CoordScale() float64 {
	coordOnce.Do(func() {
		coordScale = detectCoordScale()
		logger.Debug("截图与输入坐标比例: %.3f", coordScale)
	})
	return coordScale
}

func detectCoordScale() float64 {
	w, _ := robotgo.GetScreenSize()
	if w <= 0 {
		return 1.0
	}
	img, err := robotgo.CaptureImg()
	if err != nil || img == nil {
		return 1.0
	}
	return NormalizeScale(float64(img.Bounds().Dx()) / float64(w))
}

// NormalizeScale 排除异常比例，接近 1 时取 1
func NormalizeScale(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0.5 || v > 4.0 {
		return 1.0
	}
	if math.Abs(v-1.0) < 0.05 {
		return 1.0
	}
	return v
}

// ToInput 截图坐标转换为 robotgo 输入坐标
func ToInput(v int) int {
	return int(math.Round(float64(v) / CoordScale()))
}

// FromInput robotgo 输入坐标转换为截图坐标
func FromInput(v int) int {
	return int(math.Round(float64(v) * CoordScale()))
}
