// Package debug 保存调试截图：在截图上标出匹配框与置信度
package debug

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// FontSize 标签字号
const FontSize = 14

var (
	boxColor   = color.RGBA{255, 0, 0, 255}
	labelColor = color.RGBA{255, 255, 0, 255}
	titleBg    = color.RGBA{0, 0, 0, 255}
)

// Box 一个标注框
type Box struct {
	Rect  image.Rectangle
	Label string
}

// Dumper 把标注后的截图写到目录中，文件名带递增序号
type Dumper struct {
	dir  string
	font *truetype.Font

	mu  sync.Mutex
	seq int
}

// New 创建 Dumper，目录不存在时创建
func New(dir string) (*Dumper, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建调试目录失败: %w", err)
	}
	f, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("加载字体失败: %w", err)
	}
	return &Dumper{dir: dir, font: f}, nil
}

// Dir 输出目录
func (d *Dumper) Dir() string {
	return d.dir
}

// Save 标注并保存截图，返回文件路径
func (d *Dumper) Save(img image.Image, title string, boxes []Box) (string, error) {
	canvas := Annotate(d.font, img, title, boxes)

	d.mu.Lock()
	d.seq++
	name := fmt.Sprintf("%04d_%s.png", d.seq, sanitize(title))
	d.mu.Unlock()

	path := filepath.Join(d.dir, name)
	if err := imaging.Save(canvas, path); err != nil {
		return "", fmt.Errorf("保存调试截图失败: %w", err)
	}
	return path, nil
}

// Annotate 复制 img 并画出标题与标注框
func Annotate(f *truetype.Font, img image.Image, title string, boxes []Box) *image.RGBA {
	b := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Src)

	draw.Draw(canvas, image.Rect(0, 0, min(b.Dx(), 8*len(title)+16), FontSize+10), image.NewUniform(titleBg), image.Point{}, draw.Src)
	drawText(canvas, f, 6, 4, title)

	for _, box := range boxes {
		r := box.Rect.Sub(b.Min)
		outline(canvas, r)
		if box.Label != "" {
			drawText(canvas, f, r.Min.X, max(0, r.Min.Y-FontSize-4), box.Label)
		}
	}
	return canvas
}

// outline 画 2 像素宽的矩形边框
func outline(img *image.RGBA, r image.Rectangle) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for w := 0; w < 2; w++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, r.Min.Y+w, boxColor)
			img.SetRGBA(x, r.Max.Y-1-w, boxColor)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.SetRGBA(r.Min.X+w, y, boxColor)
			img.SetRGBA(r.Max.X-1-w, y, boxColor)
		}
	}
}

func drawText(img *image.RGBA, f *truetype.Font, x, y int, text string) {
	if f == nil || text == "" {
		return
	}
	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(FontSize)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(labelColor))
	c.SetHinting(font.HintingFull)

	pt := freetype.Pt(x, y+int(c.PointToFixed(FontSize)>>6))
	_, _ = c.DrawString(text, pt)
}

// sanitize 文件名只保留字母数字与下划线
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "capture"
	}
	return s
}
