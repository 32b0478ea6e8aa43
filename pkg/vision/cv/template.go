package cv

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

// DefaultThreshold 默认匹配阈值
const DefaultThreshold = 0.8

// Template 一张模板图像
type Template struct {
	// Name 模板名称 (不含扩展名)
	Name string
	// Filename 模板文件路径
	Filename string
	// Scale 加载时的缩放比例
	Scale float64
	// RGB 是否按彩色通道校验置信度
	RGB bool

	cachedMat *gocv.Mat
}

// NewTemplate 创建模板，图像在首次匹配时加载
func NewTemplate(name, filename string, scale float64, rgb bool) *Template {
	return &Template{Name: name, Filename: filename, Scale: scale, RGB: rgb}
}

// MatchIn 在 screen 中查找最佳匹配
func (t *Template) MatchIn(screen gocv.Mat, threshold float64) (*MatchResult, error) {
	img, err := t.image()
	if err != nil {
		return nil, err
	}
	return NewTemplateMatching(img, screen, threshold, t.RGB, 1).FindBestResult()
}

// MatchAllIn 在 screen 中查找所有匹配，最多 maxResults 个
func (t *Template) MatchAllIn(screen gocv.Mat, threshold float64, maxResults int) ([]*MatchResult, error) {
	img, err := t.image()
	if err != nil {
		return nil, err
	}
	return NewTemplateMatching(img, screen, threshold, t.RGB, maxResults).FindAllResults()
}

// image 返回缓存的（已缩放）模板，调用方不得关闭
func (t *Template) image() (gocv.Mat, error) {
	if t.cachedMat != nil && !t.cachedMat.Empty() {
		return *t.cachedMat, nil
	}
	mat, err := ReadImage(t.Filename)
	if err != nil {
		return mat, err
	}
	scaled := ScaleImage(mat, t.Scale)
	mat.Close()
	t.cachedMat = &scaled
	return scaled, nil
}

// Close 释放资源
func (t *Template) Close() {
	if t.cachedMat != nil {
		t.cachedMat.Close()
		t.cachedMat = nil
	}
}

func (t *Template) String() string {
	return fmt.Sprintf("Template(%s)", t.Name)
}

// Library 按名称从素材目录加载模板
type Library struct {
	dir        string
	scale      float64
	rgb        map[string]bool
	maxResults int
	templates  map[string]*Template
}

// LibraryOption 模板库选项
type LibraryOption func(*Library)

// WithScale 模板缩放比例（屏幕分辨率 / 1920）
func WithScale(scale float64) LibraryOption {
	return func(l *Library) {
		l.scale = scale
	}
}

// WithRGB 指定需要彩色校验的模板
func WithRGB(names ...string) LibraryOption {
	return func(l *Library) {
		for _, n := range names {
			l.rgb[n] = true
		}
	}
}

// WithMaxResults 多点匹配最多返回的结果数
func WithMaxResults(n int) LibraryOption {
	return func(l *Library) {
		l.maxResults = n
	}
}

// NewLibrary 创建模板库，模板文件为 <dir>/<name>.png
func NewLibrary(dir string, opts ...LibraryOption) *Library {
	l := &Library{
		dir:        dir,
		scale:      1.0,
		rgb:        map[string]bool{},
		maxResults: DefaultMaxResults,
		templates:  map[string]*Template{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Template 返回名称对应的模板，文件不存在时返回错误
func (l *Library) Template(name string) (*Template, error) {
	if t, ok := l.templates[name]; ok {
		return t, nil
	}
	filename := filepath.Join(l.dir, name+".png")
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("模板 %s 不可用: %w", name, err)
	}
	t := NewTemplate(name, filename, l.scale, l.rgb[name])
	l.templates[name] = t
	return t, nil
}

// MatchBest 查找模板的最佳匹配，未找到返回 nil, nil
func (l *Library) MatchBest(screen gocv.Mat, name string, threshold float64) (*MatchResult, error) {
	t, err := l.Template(name)
	if err != nil {
		return nil, err
	}
	return t.MatchIn(screen, threshold)
}

// MatchAll 查找模板的所有匹配
func (l *Library) MatchAll(screen gocv.Mat, name string, threshold float64) ([]*MatchResult, error) {
	t, err := l.Template(name)
	if err != nil {
		return nil, err
	}
	return t.MatchAllIn(screen, threshold, l.maxResults)
}

// Close 释放所有已加载的模板
func (l *Library) Close() {
	for _, t := range l.templates {
		t.Close()
	}
	l.templates = map[string]*Template{}
}
