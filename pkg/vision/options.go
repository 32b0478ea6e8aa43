package vision

import (
	"github.com/zoeyai/goodscan/pkg/vision/debug"
)

// Option Screen 构造选项
type Option func(*Screen)

// WithScale 屏幕分辨率相对 1920x1080 的比例
func WithScale(scale float64) Option {
	return func(s *Screen) {
		if scale > 0 {
			s.scale = scale
		}
	}
}

// WithConfidence 未指定置信度时使用的默认值（单点 / 多点）
func WithConfidence(one, all float64) Option {
	return func(s *Screen) {
		s.confidence = one
		s.confidenceAll = all
	}
}

// WithDebug 多点匹配的截图标注后保存
func WithDebug(d *debug.Dumper) Option {
	return func(s *Screen) {
		s.dump = d
	}
}
