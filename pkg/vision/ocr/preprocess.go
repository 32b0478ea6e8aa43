package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// MinHeight 低于该高度的裁剪区域先放大两倍再识别
const MinHeight = 48

// Preprocess 识别前处理：灰度、放大小图、按阈值二值化，深色背景时反色。
// threshold 为 0 时不做二值化。
func Preprocess(img image.Image, threshold int) *image.NRGBA {
	out := imaging.Grayscale(img)
	if b := out.Bounds(); b.Dy() > 0 && b.Dy() < MinHeight {
		out = imaging.Resize(out, b.Dx()*2, b.Dy()*2, imaging.Lanczos)
	}
	if threshold > 0 {
		cut := uint8(min(threshold, 255))
		out = imaging.AdjustFunc(out, func(c color.NRGBA) color.NRGBA {
			v := uint8(0)
			if c.R >= cut {
				v = 255
			}
			return color.NRGBA{R: v, G: v, B: v, A: c.A}
		})
	}
	if meanLuma(out) < 128 {
		out = imaging.Invert(out)
	}
	return out
}

// meanLuma 灰度图的平均亮度
func meanLuma(img *image.NRGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 255
	}
	var sum int
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sum += int(row[x])
		}
	}
	return float64(sum) / float64(n)
}
