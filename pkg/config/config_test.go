package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zoeyai/goodscan/pkg/auto/grid"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.Confidence != 0.8 || s.ConfidenceAll != 0.95 || s.CustomScale != 1.0 {
		t.Errorf("默认置信度错误: %v %v %v", s.Confidence, s.ConfidenceAll, s.CustomScale)
	}
	if s.DelayTapMs != 1000 || s.DelayTap {
		t.Errorf("默认点击延迟错误: %v %d", s.DelayTap, s.DelayTapMs)
	}
	if s.KeepExports != 50 {
		t.Errorf("默认保留导出数应为 50, 实际为 %d", s.KeepExports)
	}
	if got := s.Weapons.Tiers(); len(got) != 2 || got[0] != 5 || got[1] != 4 {
		t.Errorf("默认武器星级应为 [5 4], 实际为 %v", got)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("默认配置应通过校验: %v", err)
	}

	t.Logf("默认配置: %+v", s)
}

func TestManagerSaveAndLoad(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())

	if manager.Exists() {
		t.Error("初始时配置文件不应存在")
	}

	s := DefaultSettings()
	s.Weapons.Scan3Star = true
	s.Artifacts.OnlyLocked = true
	s.Characters.TravelerName = "Aether"
	s.Misc.DebugMode = true
	s.DelayTap = true
	s.Display = DisplaySettings{X: 10, Y: 20, Width: 1920, Height: 1080}
	s.Scroll.SwipeDuration = 2 * time.Second

	if err := manager.Save(s); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}
	if !manager.Exists() {
		t.Error("保存后配置文件应存在")
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if got := loaded.Weapons.Tiers(); len(got) != 3 {
		t.Errorf("武器星级 = %v, 期望 [5 4 3]", got)
	}
	if !loaded.Artifacts.OnlyLocked || loaded.Characters.TravelerName != "Aether" {
		t.Errorf("圣遗物/角色设置不匹配: %+v %+v", loaded.Artifacts, loaded.Characters)
	}
	if !loaded.Misc.DebugMode || !loaded.DelayTap {
		t.Errorf("调试/延迟设置不匹配: %+v", loaded.Misc)
	}
	if loaded.Display != s.Display || loaded.Display.Auto() {
		t.Errorf("Display = %+v, 期望 %+v", loaded.Display, s.Display)
	}
	if loaded.Scroll != s.Scroll {
		t.Errorf("Scroll = %+v, 期望 %+v", loaded.Scroll, s.Scroll)
	}

	t.Logf("加载的配置: %+v", loaded)
}

func TestManagerLoadPartialFile(t *testing.T) {
	dir := t.TempDir()
	manager := NewManagerWithDir(dir)
	content := `{"weapons": {"scan_3_star": true}, "keep_exports": 5}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !s.Weapons.Enabled || !s.Weapons.Scan5Star || !s.Weapons.Scan3Star {
		t.Errorf("未写出的字段应保留默认值: %+v", s.Weapons)
	}
	if s.KeepExports != 5 || s.Confidence != 0.8 {
		t.Errorf("KeepExports = %d, Confidence = %v", s.KeepExports, s.Confidence)
	}
	if s.Scroll.RowDistance != 220 {
		t.Errorf("滚动参数应使用默认值: %+v", s.Scroll)
	}
}

func TestManagerEnvOverride(t *testing.T) {
	t.Setenv("GOODSCAN_WEAPONS_ONLY_LOCKED", "true")
	t.Setenv("GOODSCAN_CONFIDENCE", "0.9")
	t.Setenv("GOODSCAN_CHARACTERS_TRAVELER_NAME", "Lumine")
	t.Setenv("GOODSCAN_LAYOUT_MATERIALS_COLUMNS", "100, 200,300")

	s, err := NewManagerWithDir(t.TempDir()).Load()
	if err != nil {
		t.Fatal(err)
	}
	if !s.Weapons.OnlyLocked {
		t.Error("环境变量应覆盖 weapons.only_locked")
	}
	if s.Confidence != 0.9 {
		t.Errorf("Confidence = %v, 期望 0.9", s.Confidence)
	}
	if s.Characters.TravelerName != "Lumine" {
		t.Errorf("TravelerName = %q", s.Characters.TravelerName)
	}
	l, err := s.Layout.Materials.Layout()
	if err != nil {
		t.Fatalf("解析材料网格失败: %v", err)
	}
	if len(l.Columns) != 3 || l.Columns[1] != 200 || len(l.FirstRows) != 3 {
		t.Errorf("材料网格 = %+v", l)
	}
}

func TestGridOffsetsRoundTrip(t *testing.T) {
	for name, want := range map[string]grid.Layout{"materials": grid.MaterialLayout, "characters": grid.CharacterLayout} {
		got, err := OffsetsOf(want).Layout()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if grid.FormatOffsets(got.Columns) != grid.FormatOffsets(want.Columns) ||
			grid.FormatOffsets(got.FirstRows) != grid.FormatOffsets(want.FirstRows) ||
			grid.FormatOffsets(got.NextRows) != grid.FormatOffsets(want.NextRows) {
			t.Errorf("%s: 解析结果 %+v, 期望 %+v", name, got, want)
		}
	}
}

func TestManagerClear(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())

	if err := manager.Save(DefaultSettings()); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}
	if !manager.Exists() {
		t.Fatal("保存后配置文件应存在")
	}
	if err := manager.Clear(); err != nil {
		t.Fatalf("清除配置失败: %v", err)
	}
	if manager.Exists() {
		t.Error("清除后配置文件不应存在")
	}
	if err := manager.Clear(); err != nil {
		t.Errorf("清除不存在的配置不应报错: %v", err)
	}
}

func TestManagerLoadNonExistent(t *testing.T) {
	s, err := NewManagerWithDir(t.TempDir()).Load()
	if err != nil {
		t.Fatalf("加载不存在的配置不应报错: %v", err)
	}
	if s.OutputDir != DefaultSettings().OutputDir {
		t.Errorf("应返回默认 OutputDir")
	}
}

func TestManagerLoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	manager := NewManagerWithDir(dir)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("not valid json"), 0600); err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}

	s, err := manager.Load()
	if err == nil {
		t.Error("加载损坏的配置应返回错误")
	}
	if s == nil {
		t.Error("即使出错也应返回默认配置")
	}
	t.Logf("加载损坏配置的错误: %v", err)
}

func TestManagerPaths(t *testing.T) {
	dir := t.TempDir()
	manager := NewManagerWithDir(dir)

	if manager.GetConfigDir() != dir {
		t.Errorf("GetConfigDir 应为 %s", dir)
	}
	if want := filepath.Join(dir, "config.json"); manager.GetConfigFile() != want {
		t.Errorf("GetConfigFile 应为 %s", want)
	}

	file := filepath.Join(dir, "custom.json")
	m := NewManagerWithFile(file)
	if m.GetConfigFile() != file || m.GetConfigDir() != dir {
		t.Errorf("NewManagerWithFile 路径错误: %s %s", m.GetConfigDir(), m.GetConfigFile())
	}
}

func TestDefaultManager(t *testing.T) {
	manager := GetDefaultManager()
	if manager == nil {
		t.Fatal("GetDefaultManager 返回 nil")
	}

	homeDir, _ := os.UserHomeDir()
	if want := filepath.Join(homeDir, ".goodscan"); manager.GetConfigDir() != want {
		t.Errorf("默认配置目录应为 %s, 实际为 %s", want, manager.GetConfigDir())
	}
}

func TestConfigFilePermissions(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())
	if err := manager.Save(DefaultSettings()); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}

	info, err := os.Stat(manager.GetConfigFile())
	if err != nil {
		t.Fatalf("获取文件信息失败: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Logf("警告: 配置文件权限为 %o", perm)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(s *Settings)
		wantErr string
	}{
		{"默认配置", func(s *Settings) {}, ""},
		{"没有启用类别", func(s *Settings) {
			s.Weapons.Enabled, s.Artifacts.Enabled, s.Materials.Enabled, s.Characters.Enabled = false, false, false, false
		}, "没有启用任何类别"},
		{"武器没有星级", func(s *Settings) {
			s.Weapons.Scan5Star, s.Weapons.Scan4Star = false, false
		}, "武器"},
		{"禁用的类别不检查星级", func(s *Settings) {
			s.Artifacts = TierSettings{}
		}, ""},
		{"置信度为 0", func(s *Settings) { s.Confidence = 0 }, "confidence"},
		{"置信度超过 1", func(s *Settings) { s.ConfidenceAll = 1.2 }, "confidence_all"},
		{"缩放为负", func(s *Settings) { s.CustomScale = -1 }, "custom_scale"},
		{"滚动参数错误", func(s *Settings) { s.Scroll.RowDistance = 0 }, "滚动距离"},
		{"网格偏移无法解析", func(s *Settings) { s.Layout.Materials.Columns = "205,abc" }, "layout.materials.columns"},
		{"网格缺少行", func(s *Settings) { s.Layout.Characters.NextRows = " " }, "layout.characters.next_rows"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("不应报错: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("错误应包含 %q, 实际为 %v", tt.wantErr, err)
			}
		})
	}
}

func TestEnableOnly(t *testing.T) {
	s := DefaultSettings()
	if err := s.EnableOnly([]string{"Weapons", " characters ", ""}); err != nil {
		t.Fatal(err)
	}
	got := s.Categories()
	if len(got) != 2 || got[0] != CategoryWeapons || got[1] != CategoryCharacters {
		t.Errorf("Categories() = %v", got)
	}

	if err := s.EnableOnly([]string{"weapons", "pets"}); err == nil {
		t.Error("未知类别应返回错误")
	}
}

// BenchmarkSaveLoad 基准测试
func BenchmarkSaveLoad(b *testing.B) {
	manager := NewManagerWithDir(b.TempDir())
	s := DefaultSettings()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		manager.Save(s)
		manager.Load()
	}
}
