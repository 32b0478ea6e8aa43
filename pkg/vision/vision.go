// Package vision 把截图、模板匹配与 OCR 组合成扫描使用的识别端
//
// 扫描器使用 1920x1080 的逻辑坐标；Screen 按 scale 换算到实际截图坐标，
// 模板库需要使用相同的 scale 加载。
package vision

import (
	"cmp"
	"errors"
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/corona10/goimagehash"
	"github.com/samber/lo"
	"gocv.io/x/gocv"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/bot"
	"github.com/zoeyai/goodscan/pkg/vision/cv"
	"github.com/zoeyai/goodscan/pkg/vision/debug"
)

// 逻辑画面尺寸
const (
	LogicalWidth  = 1920
	LogicalHeight = 1080
)

// rowTolerance 多点匹配结果按行排序时的纵向误差
const rowTolerance = 10

// Capturer 截图端，坐标为实际像素
type Capturer interface {
	Size() (width, height int)
	Capture(region auto.Region) (image.Image, error)
}

// TextReader 文字识别
type TextReader interface {
	Read(img image.Image, threshold int, digitsOnly bool) (string, error)
}

// Screen 实现 bot.Perception 与 bot.Fingerprinter
type Screen struct {
	capturer Capturer
	lib      *cv.Library
	text     TextReader

	scale         float64
	confidence    float64
	confidenceAll float64
	dump          *debug.Dumper
}

// New 创建识别端
func New(capturer Capturer, lib *cv.Library, text TextReader, opts ...Option) *Screen {
	s := &Screen{
		capturer:      capturer,
		lib:           lib,
		text:          text,
		scale:         1.0,
		confidence:    cv.DefaultThreshold,
		confidenceAll: 0.95,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size 逻辑尺寸
func (s *Screen) Size() (int, int) {
	w, h := s.capturer.Size()
	return auto.ScaleCoord(w, s.scale), auto.ScaleCoord(h, s.scale)
}

// MatchOne 查找模板的最佳匹配，未找到返回 nil, nil
func (s *Screen) MatchOne(template string, opts ...auto.Option) (*bot.Match, error) {
	o := auto.ApplyOptions(opts...)
	mat, origin, _, err := s.grabMat(o.Region)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	r, err := s.lib.MatchBest(mat, template, lo.Ternary(o.Confidence > 0, o.Confidence, s.confidence))
	if err != nil {
		if isSizeError(err) {
			return nil, nil
		}
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	m := s.toMatch(r, origin)
	return &m, nil
}

// MatchAll 查找模板的所有匹配，按阅读顺序返回
func (s *Screen) MatchAll(template string, opts ...auto.Option) ([]bot.Match, error) {
	o := auto.ApplyOptions(opts...)
	mat, origin, img, err := s.grabMat(o.Region)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	results, err := s.lib.MatchAll(mat, template, lo.Ternary(o.Confidence > 0, o.Confidence, s.confidenceAll))
	if err != nil {
		if isSizeError(err) {
			return nil, nil
		}
		return nil, err
	}

	if s.dump != nil {
		s.saveDebug(img, template, results)
	}

	matches := lo.Map(results, func(r *cv.MatchResult, _ int) bot.Match {
		return s.toMatch(r, origin)
	})
	slices.SortStableFunc(matches, func(a, b bot.Match) int {
		if dy := a.Center.Y - b.Center.Y; dy > rowTolerance || dy < -rowTolerance {
			return cmp.Compare(a.Center.Y, b.Center.Y)
		}
		return cmp.Compare(a.Center.X, b.Center.X)
	})
	return matches, nil
}

// ReadText 识别区域内的文字
func (s *Screen) ReadText(region auto.Region, opts ...auto.Option) (string, error) {
	if s.text == nil {
		return "", errors.New("OCR 未初始化")
	}
	o := auto.ApplyOptions(opts...)
	img, _, err := s.grab(&region)
	if err != nil {
		return "", err
	}
	return s.text.Read(img, o.Threshold, o.DigitsOnly)
}

// Fingerprint 区域的差异哈希
func (s *Screen) Fingerprint(region auto.Region) (uint64, error) {
	img, _, err := s.grab(&region)
	if err != nil {
		return 0, err
	}
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, fmt.Errorf("计算哈希失败: %w", err)
	}
	return hash.GetHash(), nil
}

// grab 截取逻辑区域，返回图像及其在实际坐标中的原点
func (s *Screen) grab(region *auto.Region) (image.Image, image.Point, error) {
	w, h := s.capturer.Size()
	full := auto.Region{Width: w, Height: h}
	phys := full
	if region != nil {
		phys = s.physical(*region).Clip(full)
	}
	if phys.Empty() {
		return nil, image.Point{}, fmt.Errorf("区域 %v 超出屏幕", region)
	}
	img, err := s.capturer.Capture(phys)
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("截图失败: %w", err)
	}
	return img, image.Pt(phys.X, phys.Y), nil
}

func (s *Screen) grabMat(region *auto.Region) (mat gocv.Mat, origin image.Point, img image.Image, err error) {
	img, origin, err = s.grab(region)
	if err != nil {
		return mat, origin, nil, err
	}
	mat, err = cv.ImageToMat(img)
	return mat, origin, img, err
}

func (s *Screen) physical(r auto.Region) auto.Region {
	f := func(v int) int { return int(math.Round(float64(v) * s.scale)) }
	return auto.Region{X: f(r.X), Y: f(r.Y), Width: f(r.Width), Height: f(r.Height)}
}

func (s *Screen) logical(x, y int) auto.Point {
	return auto.Point{X: auto.ScaleCoord(x, s.scale), Y: auto.ScaleCoord(y, s.scale)}
}

func (s *Screen) toMatch(r *cv.MatchResult, origin image.Point) bot.Match {
	rect := r.Rectangle.Rect().Add(origin)
	tl := s.logical(rect.Min.X, rect.Min.Y)
	br := s.logical(rect.Max.X, rect.Max.Y)
	return bot.Match{
		Center:     s.logical(origin.X+r.Result.X, origin.Y+r.Result.Y),
		Box:        auto.Region{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y},
		Confidence: r.Confidence,
	}
}

func (s *Screen) saveDebug(img image.Image, template string, results []*cv.MatchResult) {
	origin := img.Bounds().Min
	boxes := lo.Map(results, func(r *cv.MatchResult, _ int) debug.Box {
		return debug.Box{Rect: r.Rectangle.Rect().Add(origin), Label: fmt.Sprintf("%.2f", r.Confidence)}
	})
	if path, err := s.dump.Save(img, template, boxes); err != nil {
		logger.Warn("保存调试截图失败: %v", err)
	} else {
		logger.Debug("调试截图: %s (%d 个匹配)", path, len(results))
	}
}

func isSizeError(err error) bool {
	var sizeErr *cv.ImageSizeError
	return errors.As(err, &sizeErr)
}
