package vision

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/zoeyai/goodscan/pkg/auto"
	"github.com/zoeyai/goodscan/pkg/vision/cv"
	"github.com/zoeyai/goodscan/pkg/vision/debug"
)

// fakeDisplay 内存中的屏幕
type fakeDisplay struct {
	img *image.RGBA
}

func newDisplay() *fakeDisplay {
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return &fakeDisplay{img: img}
}

func (d *fakeDisplay) Size() (int, int) {
	return d.img.Bounds().Dx(), d.img.Bounds().Dy()
}

func (d *fakeDisplay) Capture(r auto.Region) (image.Image, error) {
	return d.img.SubImage(r.Rect()), nil
}

// icon 在 (x, y) 画 40x30 的图标
func (d *fakeDisplay) icon(x, y int) {
	draw.Draw(d.img, image.Rect(x, y, x+40, y+30), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(d.img, image.Rect(x+5, y+5, x+20, y+14), image.NewUniform(color.Gray{Y: 90}), image.Point{}, draw.Src)
}

type fakeReader struct {
	size       image.Point
	threshold  int
	digitsOnly bool
}

func (r *fakeReader) Read(img image.Image, threshold int, digitsOnly bool) (string, error) {
	r.size, r.threshold, r.digitsOnly = img.Bounds().Size(), threshold, digitsOnly
	return "Lv. 90/90", nil
}

// saveTemplate 把屏幕上 (x, y) 处的图标存为模板，factor 为放大倍数
func saveTemplate(t *testing.T, d *fakeDisplay, dir string, x, y, factor int) {
	t.Helper()
	crop := imaging.Crop(d.img, image.Rect(x-5, y-5, x+45, y+35))
	if factor != 1 {
		crop = imaging.Resize(crop, 50*factor, 40*factor, imaging.NearestNeighbor)
	}
	if err := imaging.Save(crop, filepath.Join(dir, "icon.png")); err != nil {
		t.Fatalf("保存模板失败: %v", err)
	}
}

func TestMatchOne(t *testing.T) {
	d := newDisplay()
	d.icon(300, 200)
	dir := t.TempDir()
	saveTemplate(t, d, dir, 300, 200, 1)

	lib := cv.NewLibrary(dir)
	defer lib.Close()
	s := New(d, lib, nil)

	tests := []struct {
		name   string
		opts   []auto.Option
		want   auto.Point
		wantOK bool
	}{
		{"全屏", nil, auto.Point{X: 320, Y: 215}, true},
		{"区域内", []auto.Option{auto.WithRegion(250, 150, 200, 150)}, auto.Point{X: 320, Y: 215}, true},
		{"区域外", []auto.Option{auto.WithRegion(0, 0, 200, 150)}, auto.Point{}, false},
		{"区域小于模板", []auto.Option{auto.WithRegion(300, 200, 10, 10)}, auto.Point{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := s.MatchOne("icon", tt.opts...)
			if err != nil {
				t.Fatalf("MatchOne() 返回错误: %v", err)
			}
			if (m != nil) != tt.wantOK {
				t.Fatalf("MatchOne() = %v, 期望找到 %v", m, tt.wantOK)
			}
			if m != nil && m.Center != tt.want {
				t.Errorf("中心 = %v, 期望 %v", m.Center, tt.want)
			}
		})
	}

	if _, err := s.MatchOne("missing"); err == nil {
		t.Error("模板文件不存在时应返回错误")
	}
}

func TestMatchAllReadingOrder(t *testing.T) {
	d := newDisplay()
	d.icon(500, 100)
	d.icon(100, 400)
	d.icon(100, 100)
	dir := t.TempDir()
	saveTemplate(t, d, dir, 100, 100, 1)

	dump, err := debug.New(filepath.Join(dir, "debug"))
	if err != nil {
		t.Fatal(err)
	}
	lib := cv.NewLibrary(dir)
	defer lib.Close()
	s := New(d, lib, nil, WithConfidence(0.8, 0.9), WithDebug(dump))

	matches, err := s.MatchAll("icon")
	if err != nil {
		t.Fatal(err)
	}
	want := []auto.Point{{X: 120, Y: 115}, {X: 520, Y: 115}, {X: 120, Y: 415}}
	if len(matches) != len(want) {
		t.Fatalf("匹配数 = %d, 期望 %d", len(matches), len(want))
	}
	for i, m := range matches {
		if m.Center != want[i] {
			t.Errorf("第 %d 个匹配 = %v, 期望 %v", i, m.Center, want[i])
		}
	}

	files, _ := os.ReadDir(dump.Dir())
	if len(files) != 1 {
		t.Errorf("调试截图数 = %d, 期望 1", len(files))
	}
}

func TestScaledScreen(t *testing.T) {
	d := newDisplay()
	d.icon(300, 200)
	dir := t.TempDir()
	// 模板按 1920 分辨率制作，是实际屏幕的两倍
	saveTemplate(t, d, dir, 300, 200, 2)

	lib := cv.NewLibrary(dir, cv.WithScale(0.5))
	defer lib.Close()
	reader := &fakeReader{}
	s := New(d, lib, reader, WithScale(0.5))

	if w, h := s.Size(); w != 1600 || h != 1200 {
		t.Errorf("逻辑尺寸 = %dx%d, 期望 1600x1200", w, h)
	}

	m, err := s.MatchOne("icon")
	if err != nil || m == nil {
		t.Fatalf("MatchOne() = %v, %v", m, err)
	}
	if m.Center != (auto.Point{X: 640, Y: 430}) {
		t.Errorf("逻辑中心 = %v, 期望 (640, 430)", m.Center)
	}
	if m.Box.Width != 100 || m.Box.Height != 80 {
		t.Errorf("逻辑区域 = %v", m.Box)
	}

	text, err := s.ReadText(auto.Region{X: 100, Y: 100, Width: 200, Height: 40}, auto.WithThreshold(160), auto.DigitsOnly())
	if err != nil || text != "Lv. 90/90" {
		t.Fatalf("ReadText() = %q, %v", text, err)
	}
	if reader.size != image.Pt(100, 20) || reader.threshold != 160 || !reader.digitsOnly {
		t.Errorf("OCR 输入 = %+v", reader)
	}
}

func TestReadTextWithoutOCR(t *testing.T) {
	s := New(newDisplay(), cv.NewLibrary(t.TempDir()), nil)
	if _, err := s.ReadText(auto.Region{Width: 10, Height: 10}); err == nil {
		t.Error("没有 OCR 时应返回错误")
	}
	if _, err := s.ReadText(auto.Region{X: 900, Y: 0, Width: 10, Height: 10}); err == nil {
		t.Error("区域超出屏幕时应返回错误")
	}
}

func TestFingerprint(t *testing.T) {
	d := newDisplay()
	for x := 0; x < 7; x++ {
		d.icon(20+x*100, 300)
	}
	s := New(d, cv.NewLibrary(t.TempDir()), nil)
	row := auto.Region{X: 0, Y: 280, Width: 800, Height: 80}

	before, err := s.Fingerprint(row)
	if err != nil {
		t.Fatal(err)
	}
	same, _ := s.Fingerprint(row)
	if before != same {
		t.Error("画面不变时哈希应相同")
	}

	draw.Draw(d.img, image.Rect(0, 280, 400, 360), image.NewUniform(color.White), image.Point{}, draw.Src)
	after, _ := s.Fingerprint(row)
	if before == after {
		t.Error("画面变化后哈希应不同")
	}
}
