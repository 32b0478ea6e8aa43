// Package auto 提供自动化操作共享的坐标类型与选项
package auto

import "time"

// Option 配置选项函数类型
type Option func(*Options)

// Options 识别操作配置，零值字段表示使用识别端默认值
type Options struct {
	// Region 搜索区域 (nil 表示全屏)
	Region *Region
	// Confidence 模板匹配置信度 (0-1)
	Confidence float64
	// Attempts 单点匹配的尝试次数
	Attempts int
	// Interval 两次尝试之间的间隔
	Interval time.Duration
	// Threshold OCR 二值化阈值 (0-255)，0 表示不做二值化
	Threshold int
	// DigitsOnly 是否只识别数字
	DigitsOnly bool
}

// DefaultOptions 默认配置
func DefaultOptions() *Options {
	return &Options{
		Attempts: 1,
		Interval: DefaultPollInterval,
	}
}

// ApplyOptions 应用配置选项
func ApplyOptions(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.Attempts < 1 {
		o.Attempts = 1
	}
	return o
}

// WithRegion 设置搜索区域
func WithRegion(x, y, width, height int) Option {
	return func(o *Options) {
		o.Region = &Region{X: x, Y: y, Width: width, Height: height}
	}
}

// InRegion 使用已有区域
func InRegion(r Region) Option {
	return func(o *Options) {
		o.Region = &r
	}
}

// WithConfidence 设置匹配置信度
func WithConfidence(c float64) Option {
	return func(o *Options) {
		o.Confidence = c
	}
}

// WithAttempts 设置尝试次数
func WithAttempts(n int) Option {
	return func(o *Options) {
		o.Attempts = n
	}
}

// WithInterval 设置尝试间隔
func WithInterval(d time.Duration) Option {
	return func(o *Options) {
		o.Interval = d
	}
}

// WithThreshold 设置 OCR 二值化阈值
func WithThreshold(t int) Option {
	return func(o *Options) {
		o.Threshold = t
	}
}

// DigitsOnly 只识别数字
func DigitsOnly() Option {
	return func(o *Options) {
		o.DigitsOnly = true
	}
}

// DefaultPollInterval 默认轮询间隔
const DefaultPollInterval = 200 * time.Millisecond
