package cv

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// DefaultMaxResults 多点匹配默认最多返回的结果数
const DefaultMaxResults = 32

// TemplateMatching 一次模板匹配：在 source 中搜索 search
type TemplateMatching struct {
	search     gocv.Mat
	source     gocv.Mat
	threshold  float64
	rgb        bool
	maxResults int
}

// NewTemplateMatching 创建模板匹配器，maxResults <= 0 时使用默认值
func NewTemplateMatching(search, source gocv.Mat, threshold float64, rgb bool, maxResults int) *TemplateMatching {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &TemplateMatching{
		search:     search,
		source:     source,
		threshold:  threshold,
		rgb:        rgb,
		maxResults: maxResults,
	}
}

// FindBestResult 返回最佳匹配，低于阈值时返回 nil, nil
func (t *TemplateMatching) FindBestResult() (*MatchResult, error) {
	if err := checkSourceLargerThanSearch(t.source, t.search); err != nil {
		return nil, err
	}

	result := t.resultMatrix()
	defer result.Close()

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)
	w, h := t.search.Cols(), t.search.Rows()

	confidence := t.confidence(maxLoc, maxVal, w, h)
	if confidence < t.threshold {
		return nil, nil
	}
	return target(maxLoc, w, h, confidence), nil
}

// FindAllResults 返回所有高于阈值的匹配，按置信度从高到低
func (t *TemplateMatching) FindAllResults() ([]*MatchResult, error) {
	if err := checkSourceLargerThanSearch(t.source, t.search); err != nil {
		return nil, err
	}

	result := t.resultMatrix()
	defer result.Close()

	w, h := t.search.Cols(), t.search.Rows()
	var results []*MatchResult

	for len(results) < t.maxResults {
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)

		confidence := t.confidence(maxLoc, maxVal, w, h)
		if confidence < t.threshold {
			break
		}
		results = append(results, target(maxLoc, w, h, confidence))

		// 屏蔽已匹配区域，避免同一目标重复命中
		gocv.Rectangle(&result,
			image.Rect(maxLoc.X-w/2, maxLoc.Y-h/2, maxLoc.X+w/2, maxLoc.Y+h/2),
			color.RGBA{0, 0, 0, 255}, -1)
	}

	return results, nil
}

func (t *TemplateMatching) resultMatrix() gocv.Mat {
	srcGray := ToGray(t.source)
	searchGray := ToGray(t.search)
	defer srcGray.Close()
	defer searchGray.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	result := gocv.NewMat()
	gocv.MatchTemplate(srcGray, searchGray, &result, gocv.TmCcoeffNormed, mask)
	return result
}

func (t *TemplateMatching) confidence(loc image.Point, maxVal float32, w, h int) float64 {
	if t.rgb {
		crop := t.source.Region(image.Rect(loc.X, loc.Y, loc.X+w, loc.Y+h))
		defer crop.Close()
		return CalRGBConfidence(crop, t.search)
	}
	return float64(maxVal)
}

func target(topLeft image.Point, w, h int, confidence float64) *MatchResult {
	return &MatchResult{
		Result:     Point{X: topLeft.X + w/2, Y: topLeft.Y + h/2},
		Rectangle:  Rectangle{X: topLeft.X, Y: topLeft.Y, Width: w, Height: h},
		Confidence: confidence,
	}
}

func checkSourceLargerThanSearch(source, search gocv.Mat) error {
	if source.Rows() < search.Rows() || source.Cols() < search.Cols() {
		return &ImageSizeError{
			SourceSize: [2]int{source.Cols(), source.Rows()},
			SearchSize: [2]int{search.Cols(), search.Rows()},
		}
	}
	return nil
}

// ImageSizeError 模板大于搜索区域
type ImageSizeError struct {
	SourceSize [2]int
	SearchSize [2]int
}

func (e *ImageSizeError) Error() string {
	return "搜索图像尺寸大于源图像"
}
