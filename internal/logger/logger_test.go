package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"error", ERROR},
		{"未知", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, 期望 %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.SetLevel(WARN)

	l.Info("不应出现 %d", 1)
	l.Warn("应该出现 %d", 2)

	out := buf.String()
	if strings.Contains(out, "不应出现") {
		t.Errorf("INFO 日志未被过滤: %s", out)
	}
	if !strings.Contains(out, "应该出现 2") {
		t.Errorf("WARN 日志缺失: %s", out)
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	child := l.With(map[string]any{"category": "weapons"})

	child.Info("扫描开始")

	out := buf.String()
	if !strings.Contains(out, "扫描开始") || !strings.Contains(out, "category=weapons") {
		t.Errorf("子 logger 输出缺少字段: %s", out)
	}
	t.Logf("输出: %s", out)
}

func TestSetEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	l.SetEnabled(false)
	l.Error("静默")

	if buf.Len() != 0 {
		t.Errorf("禁用后仍有输出: %s", buf.String())
	}
}

func TestLogEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.LogEvent("OCR", true, 12.5, "识别到 3 个文本")
	l.LogEvent("CV", false, 3, "未找到模板")

	out := buf.String()
	if !strings.Contains(out, "识别到 3 个文本") || !strings.Contains(out, "event=OCR") {
		t.Errorf("成功事件缺失: %s", out)
	}
	if !strings.Contains(out, "未找到模板") || !strings.Contains(out, "ok=false") {
		t.Errorf("失败事件缺失: %s", out)
	}
}

func TestSetFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.log")

	var buf bytes.Buffer
	l := NewWithWriter(&buf)
	if err := l.SetFile(true, path); err != nil {
		t.Fatalf("SetFile 失败: %v", err)
	}
	l.Info("写入文件")
	if err := l.Close(); err != nil {
		t.Fatalf("Close 失败: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	if !strings.Contains(string(data), `"message":"写入文件"`) {
		t.Errorf("日志文件内容不符: %s", data)
	}
}
