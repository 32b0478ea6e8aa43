// Package ocr 提供文字识别
//
// 文本字段使用 PaddleOCR (go-ocr)，纯数字字段使用 Tesseract (gosseract) 并限定字符白名单。
// 识别前统一经过 Preprocess 处理。
package ocr

import (
	"cmp"
	"errors"
	"image"
	"slices"
	"strings"

	"github.com/zoeyai/goodscan/internal/logger"
)

// rowTolerance 同一行文字的纵向误差
const rowTolerance = 10

// Reader 组合文本与数字两个引擎
type Reader struct {
	text   Engine
	digits Engine
}

// NewReader 创建 Reader，digits 为 nil 时数字字段也使用文本引擎
func NewReader(text, digits Engine) *Reader {
	return &Reader{text: text, digits: digits}
}

// Open 按配置创建两个引擎。数字引擎不可用时只记录警告
func Open(config Config) (*Reader, error) {
	text, err := NewTextRecognizer(config)
	if err != nil {
		return nil, err
	}
	digits, err := NewDigitRecognizer(config.TesseractLang)
	if err != nil {
		logger.Warn("Tesseract 不可用，数字字段改用 PaddleOCR: %v", err)
		return NewReader(text, nil), nil
	}
	return NewReader(text, digits), nil
}

// Read 识别图像中的文字，多段文字按阅读顺序以空格拼接
func (r *Reader) Read(img image.Image, threshold int, digitsOnly bool) (string, error) {
	pre := Preprocess(img, threshold)

	if digitsOnly && r.digits != nil {
		results, err := r.digits.Recognize(pre)
		if err != nil {
			logger.Debug("数字识别失败，改用文本引擎: %v", err)
		} else if s := JoinLines(results); s != "" {
			return s, nil
		}
	}
	if r.text == nil {
		return "", errors.New("没有可用的 OCR 引擎")
	}
	results, err := r.text.Recognize(pre)
	if err != nil {
		return "", err
	}
	return JoinLines(results), nil
}

// Close 释放两个引擎
func (r *Reader) Close() error {
	var errs []error
	for _, e := range []Engine{r.text, r.digits} {
		if e != nil {
			errs = append(errs, e.Close())
		}
	}
	return errors.Join(errs...)
}

// JoinLines 按先行后列排序并拼接文字
func JoinLines(results []Result) string {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b Result) int {
		if dy := a.Box.Min.Y - b.Box.Min.Y; dy > rowTolerance || dy < -rowTolerance {
			return cmp.Compare(a.Box.Min.Y, b.Box.Min.Y)
		}
		return cmp.Compare(a.Box.Min.X, b.Box.Min.X)
	})

	parts := make([]string, 0, len(sorted))
	for _, res := range sorted {
		if t := strings.TrimSpace(res.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
