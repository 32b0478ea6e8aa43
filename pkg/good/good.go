// Package good 把扫描结果组装为 GOOD 格式文档并写入导出目录
package good

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/samber/lo"

	"github.com/zoeyai/goodscan/pkg/scan"
)

// 文档格式
const (
	Format        = "GOOD"
	FormatVersion = 2
)

// Version 程序版本，写入 source 字段
var Version = "dev"

// Document GOOD 导出文档
type Document struct {
	Format     string           `json:"format"`
	Version    int              `json:"version"`
	Source     string           `json:"source"`
	Characters []scan.Character `json:"characters"`
	Artifacts  []scan.Artifact  `json:"artifacts"`
	Weapons    []scan.Weapon    `json:"weapons"`
	Materials  map[string]int   `json:"materials"`
}

// Source 文档来源标识
func Source() string {
	return fmt.Sprintf("goodscan v%s", Version)
}

// Assemble 组装文档。未扫描的类别输出空数组或空对象
func Assemble(weapons []scan.Weapon, artifacts []scan.Artifact, materials map[string]int, characters []scan.Character) *Document {
	doc := &Document{
		Format:     Format,
		Version:    FormatVersion,
		Source:     Source(),
		Characters: lo.Ternary(characters == nil, []scan.Character{}, characters),
		Weapons:    lo.Ternary(weapons == nil, []scan.Weapon{}, weapons),
		Materials:  lo.Ternary(materials == nil, map[string]int{}, materials),
	}

	// 副属性为空时同样输出 []
	doc.Artifacts = lo.Map(artifacts, func(a scan.Artifact, _ int) scan.Artifact {
		if a.Substats == nil {
			a.Substats = []scan.Substat{}
		}
		return a
	})
	return doc
}

// Counts 各类别条目数
func (d *Document) Counts() map[string]int {
	return map[string]int{
		scan.CategoryWeapons:    len(d.Weapons),
		scan.CategoryArtifacts:  len(d.Artifacts),
		scan.CategoryMaterials:  len(d.Materials),
		scan.CategoryCharacters: len(d.Characters),
	}
}

// Marshal 输出带缩进的 JSON
func (d *Document) Marshal() ([]byte, error) {
	data, err := sonic.ConfigStd.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化导出文档失败: %w", err)
	}
	return data, nil
}

// Decode 解析 GOOD 文档
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := sonic.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析导出文档失败: %w", err)
	}
	if doc.Format != Format {
		return nil, fmt.Errorf("不是 GOOD 文档: format=%q", doc.Format)
	}
	return &doc, nil
}
