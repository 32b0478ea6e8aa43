package ocr

import (
	"image"
	"os"
	"path/filepath"
)

// Result 一段识别出的文字
type Result struct {
	// Text 识别的文字内容
	Text string `json:"text"`
	// Confidence 识别置信度 (0-1)
	Confidence float64 `json:"confidence"`
	// Box 文字边界框（相对输入图像）
	Box image.Rectangle `json:"box"`
}

// Config OCR 配置
type Config struct {
	// OnnxRuntimeLibPath ONNX Runtime 动态库路径
	OnnxRuntimeLibPath string
	// DetModelPath 检测模型路径
	DetModelPath string
	// RecModelPath 识别模型路径
	RecModelPath string
	// DictPath 字典文件路径
	DictPath string
	// TesseractLang 数字识别使用的 Tesseract 语言
	TesseractLang string
}

// DefaultConfig 默认配置，相对路径以可执行文件目录为准
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: resolve(filepath.Join("lib", "onnxruntime.so")),
		DetModelPath:       resolve(filepath.Join("models", "det.onnx")),
		RecModelPath:       resolve(filepath.Join("models", "rec.onnx")),
		DictPath:           resolve(filepath.Join("models", "dict.txt")),
		TesseractLang:      "eng",
	}
}

// Resolve 把相对路径解析到可执行文件目录或工作目录中已存在的文件
func (c Config) Resolve() Config {
	c.OnnxRuntimeLibPath = resolve(c.OnnxRuntimeLibPath)
	c.DetModelPath = resolve(c.DetModelPath)
	c.RecModelPath = resolve(c.RecModelPath)
	c.DictPath = resolve(c.DictPath)
	return c
}

// IsAvailable 模型与运行库是否齐全
func (c Config) IsAvailable() bool {
	return fileExists(c.OnnxRuntimeLibPath) &&
		fileExists(c.DetModelPath) &&
		fileExists(c.RecModelPath) &&
		fileExists(c.DictPath)
}

func resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || fileExists(path) {
		return path
	}
	if p := filepath.Join(executableDir(), path); fileExists(p) {
		return p
	}
	return path
}

func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return "."
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "."
	}
	return filepath.Dir(execPath)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
