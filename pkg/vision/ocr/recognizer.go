package ocr

import (
	"fmt"
	"image"
	"sync"
	"time"

	goocr "github.com/getcharzp/go-ocr"

	"github.com/zoeyai/goodscan/internal/logger"
)

// Engine 识别引擎
type Engine interface {
	Recognize(img image.Image) ([]Result, error)
	Close() error
}

// TextRecognizer 基于 PaddleOCR 的文字识别器
type TextRecognizer struct {
	engine goocr.Engine
	mu     sync.Mutex
}

// NewTextRecognizer 创建 PaddleOCR 识别器
func NewTextRecognizer(config Config) (*TextRecognizer, error) {
	engine, err := goocr.NewPaddleOcrEngine(goocr.Config{
		OnnxRuntimeLibPath: config.OnnxRuntimeLibPath,
		DetModelPath:       config.DetModelPath,
		RecModelPath:       config.RecModelPath,
		DictPath:           config.DictPath,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 OCR 引擎失败: %w", err)
	}

	logger.Info("OCR 引擎初始化成功")
	return &TextRecognizer{engine: engine}, nil
}

// Recognize 识别图像中的所有文字
func (r *TextRecognizer) Recognize(img image.Image) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine == nil {
		return nil, fmt.Errorf("OCR 引擎已关闭")
	}

	start := time.Now()
	recs, err := r.engine.RunOCR(img)
	if err != nil {
		logger.LogEvent("OCR", false, logger.Since(start), "识别失败")
		return nil, fmt.Errorf("OCR 识别失败: %w", err)
	}

	results := make([]Result, 0, len(recs))
	for _, rec := range recs {
		results = append(results, convertResult(rec))
	}
	logger.LogEvent("OCR", true, logger.Since(start), fmt.Sprintf("识别到 %d 个文本", len(results)))
	return results, nil
}

// Close 释放资源
func (r *TextRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		r.engine.Destroy()
		r.engine = nil
	}
	return nil
}

// convertResult go-ocr 的 Box 为 {x1, y1, x2, y2}
func convertResult(rec goocr.RecResult) Result {
	b := rec.Box
	return Result{
		Text:       rec.Text,
		Confidence: float64(rec.Score),
		Box:        image.Rect(b[0], b[1], b[2], b[3]),
	}
}
