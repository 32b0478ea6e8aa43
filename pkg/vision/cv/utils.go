package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ReadImage 读取彩色图像文件
func ReadImage(filename string) (gocv.Mat, error) {
	mat := gocv.IMRead(filename, gocv.IMReadColor)
	if mat.Empty() {
		return mat, fmt.Errorf("无法读取图像: %s", filename)
	}
	return mat, nil
}

// ToGray 转换为灰度图
func ToGray(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	dst := gocv.NewMat()
	gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	return dst
}

// ResizeImage 调整图像大小
func ResizeImage(img gocv.Mat, width, height int) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Resize(img, &dst, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)
	return dst
}

// ScaleImage 按比例缩放，scale 为 1 或非正数时返回副本
func ScaleImage(img gocv.Mat, scale float64) gocv.Mat {
	if scale <= 0 || scale == 1.0 {
		return img.Clone()
	}
	w := max(1, int(float64(img.Cols())*scale))
	h := max(1, int(float64(img.Rows())*scale))
	return ResizeImage(img, w, h)
}

// ImageToMat 将 image.Image 转换为 gocv.Mat (BGR 字节序，与 IMRead 一致)
func ImageToMat(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("图像转换失败: %w", err)
	}
	return mat, nil
}
