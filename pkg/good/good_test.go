package good

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zoeyai/goodscan/pkg/scan"
)

func TestAssembleEmpty(t *testing.T) {
	doc := Assemble(nil, nil, nil, nil)
	data, err := doc.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	t.Logf("empty document:\n%s", text)

	for _, want := range []string{
		`"format": "GOOD"`,
		`"version": 2`,
		`"characters": []`,
		`"artifacts": []`,
		`"weapons": []`,
		`"materials": {}`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("导出文档缺少 %s", want)
		}
	}
	if strings.Contains(text, "null") {
		t.Error("导出文档不应包含 null")
	}
}

func TestAssemble(t *testing.T) {
	weapons := []scan.Weapon{{Key: "SkywardPride", Level: 90, Ascension: 6, Refinement: 1, Lock: true, Rarity: 5}}
	artifacts := []scan.Artifact{{SetKey: "GladiatorsFinale", SlotKey: "flower", Level: 20, Rarity: 5, MainStatKey: "hp"}}
	materials := map[string]int{"HerosWit": 12}
	characters := []scan.Character{{Key: "HuTao", Level: 90, Ascension: 6, Talent: scan.Talent{Auto: 10, Skill: 10, Burst: 10}}}

	doc := Assemble(weapons, artifacts, materials, characters)
	if doc.Source != "goodscan v"+Version {
		t.Errorf("Source = %s", doc.Source)
	}
	if artifacts[0].Substats != nil {
		t.Error("Assemble 不应修改传入的记录")
	}
	if doc.Artifacts[0].Substats == nil {
		t.Error("空副属性应输出为 []")
	}

	data, err := doc.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	// 星级与主属性数值不导出
	if strings.Contains(string(data), "Rarity") || strings.Contains(string(data), "mainStatValue") {
		t.Errorf("导出了内部字段:\n%s", data)
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	counts := back.Counts()
	for category, want := range map[string]int{
		scan.CategoryWeapons:    1,
		scan.CategoryArtifacts:  1,
		scan.CategoryMaterials:  1,
		scan.CategoryCharacters: 1,
	} {
		if counts[category] != want {
			t.Errorf("%s 数量 = %d, 期望 %d", category, counts[category], want)
		}
	}
	if back.Characters[0] != characters[0] {
		t.Errorf("角色 = %v, 期望 %v", back.Characters[0], characters[0])
	}
}

func TestDecodeRejectsOtherFormats(t *testing.T) {
	if _, err := Decode([]byte(`{"format":"other"}`)); err == nil {
		t.Error("非 GOOD 文档应返回错误")
	}
}

func TestWriterFileName(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, DefaultKeep)
	w.Now = func() time.Time { return time.Date(2024, 3, 5, 7, 8, 9, 0, time.Local) }

	path, err := w.Write(Assemble(nil, nil, nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "GOOD @ 2024-03-05 07_08_09.json"); path != want {
		t.Errorf("文件路径 = %s, 期望 %s", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("导出文件不存在: %v", err)
	}
}

func TestWriterVerifiesExport(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, DefaultKeep)

	doc := Assemble(nil, nil, nil, nil)
	doc.Format = "other"
	if _, err := w.Write(doc); err == nil {
		t.Fatal("无法读回的导出应返回错误")
	}
	files, err := w.Exports()
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("校验失败后不应留下文件: %v", files)
	}
}

func TestWriterRetention(t *testing.T) {
	tests := []struct {
		name     string
		existing int
		keep     int
		want     int
	}{
		{"未达到上限", 2, 5, 3},
		{"达到上限", 5, 5, 5},
		{"超过上限", 8, 5, 5},
		{"不清理", 8, 0, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
			for i := 0; i < tt.existing; i++ {
				ts := base.Add(time.Duration(i) * time.Minute)
				p := filepath.Join(dir, ts.Format(FileLayout))
				if err := os.WriteFile(p, []byte("{}"), 0644); err != nil {
					t.Fatal(err)
				}
				if err := os.Chtimes(p, ts, ts); err != nil {
					t.Fatal(err)
				}
			}
			// 其它文件不计入
			if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644); err != nil {
				t.Fatal(err)
			}

			w := NewWriter(dir, tt.keep)
			w.Now = func() time.Time { return base.Add(24 * time.Hour) }
			path, err := w.Write(Assemble(nil, nil, nil, nil))
			if err != nil {
				t.Fatal(err)
			}

			files, err := w.Exports()
			if err != nil {
				t.Fatal(err)
			}
			if len(files) != tt.want {
				t.Errorf("导出文件数 = %d, 期望 %d", len(files), tt.want)
			}
			if files[len(files)-1] != path {
				t.Errorf("最新文件应为 %s, 实际 %s", path, files[len(files)-1])
			}
			if tt.keep > 0 && tt.existing >= tt.keep {
				oldest := filepath.Join(dir, base.Format(FileLayout))
				if _, err := os.Stat(oldest); !os.IsNotExist(err) {
					t.Error("最旧的导出应被删除")
				}
			}
			if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
				t.Error("非导出文件不应被删除")
			}
		})
	}
}
