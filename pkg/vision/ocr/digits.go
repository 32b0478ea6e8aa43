package ocr

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DigitWhitelist 数字识别允许的字符
const DigitWhitelist = "0123456789"

// DigitRecognizer 基于 Tesseract 的单行数字识别器
type DigitRecognizer struct {
	client *gosseract.Client
	mu     sync.Mutex
}

// NewDigitRecognizer 创建数字识别器
func NewDigitRecognizer(lang string) (*DigitRecognizer, error) {
	if lang == "" {
		lang = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("设置 Tesseract 语言失败: %w", err)
	}
	if err := client.SetWhitelist(DigitWhitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("设置字符白名单失败: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("设置分段模式失败: %w", err)
	}
	return &DigitRecognizer{client: client}, nil
}

// Recognize 识别整张图为一行数字
func (r *DigitRecognizer) Recognize(img image.Image) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil, fmt.Errorf("数字识别器已关闭")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("编码图像失败: %w", err)
	}
	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("加载图像失败: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return nil, fmt.Errorf("数字识别失败: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []Result{{Text: text, Confidence: 1, Box: img.Bounds()}}, nil
}

// Close 释放资源
func (r *DigitRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}
