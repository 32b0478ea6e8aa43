package cv

import (
	"gocv.io/x/gocv"
)

// CalRGBConfidence 逐通道比较两张同尺寸彩图，返回最差通道的相似度。
// 星级、锁定图标这类只靠颜色区分的模板用它代替灰度匹配。
func CalRGBConfidence(crop, search gocv.Mat) float64 {
	if crop.Rows() != search.Rows() || crop.Cols() != search.Cols() {
		return 0
	}

	a := clampPixels(crop)
	b := clampPixels(search)
	defer a.Close()
	defer b.Close()

	ac := gocv.Split(a)
	bc := gocv.Split(b)
	defer closeAll(ac)
	defer closeAll(bc)

	worst := 1.0
	for i := 0; i < len(ac) && i < len(bc); i++ {
		worst = min(worst, channelConfidence(ac[i], bc[i]))
	}
	return worst
}

// clampPixels 把像素压到 [10, 245]，压掉高光和纯黑背景的影响
func clampPixels(img gocv.Mat) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Threshold(img, &dst, 245, 245, gocv.ThresholdTrunc)
	gocv.Threshold(dst, &dst, 10, 0, gocv.ThresholdToZero)
	return dst
}

func channelConfidence(a, b gocv.Mat) float64 {
	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(a, b, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, _ := gocv.MinMaxLoc(result)
	return float64(maxVal)
}

func closeAll(mats []gocv.Mat) {
	for _, m := range mats {
		m.Close()
	}
}
