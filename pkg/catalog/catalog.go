// Package catalog 提供只读的参考数据：角色、武器、圣遗物套装、材料名录与属性数值表。
//
// 数据默认来自内嵌的 JSON 文件，也可以从目录合并补充条目。ReferenceData 构造后不可变，
// 所有访问方法返回副本，可在扫描器之间安全共享。
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bytedance/sonic"
	"github.com/samber/lo"

	"github.com/zoeyai/goodscan/pkg/fuzzy"
)

//go:embed data/*.json
var embedded embed.FS

// TalentBoost 命座 3 提升的天赋
type TalentBoost string

const (
	BoostNone  TalentBoost = ""
	BoostSkill TalentBoost = "skill"
	BoostBurst TalentBoost = "burst"
)

// Character 角色条目
type Character struct {
	Key    string      `json:"key"`
	Name   string      `json:"name"`
	Rarity int         `json:"rarity"`
	C3     TalentBoost `json:"c3"`
	// Layout 天赋页布局，"sprint" 表示有替代冲刺，爆发在第 4 行
	Layout string `json:"layout"`
	// AutoBonus 固有天赋带来的普攻等级加成
	AutoBonus int `json:"auto_bonus"`
}

// C5 命座 5 提升的天赋，与命座 3 相反
func (c Character) C5() TalentBoost {
	switch c.C3 {
	case BoostSkill:
		return BoostBurst
	case BoostBurst:
		return BoostSkill
	default:
		return BoostNone
	}
}

// Weapon 武器条目
type Weapon struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Rarity int    `json:"rarity"`
}

// ArtifactSet 圣遗物套装条目
type ArtifactSet struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	MaxRarity int    `json:"max_rarity"`
}

// Material 材料条目
type Material struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// 材料分组
const (
	GroupMaterial    = "material"
	GroupDevelopment = "development"
)

// ReferenceData 不可变的参考数据集合
type ReferenceData struct {
	characters  []Character
	weapons     []Weapon
	sets        []ArtifactSet
	materials   []Material
	stats       statFile
	corrections map[string]string

	characterByKey map[string]Character
	weaponByKey    map[string]Weapon
	setByKey       map[string]ArtifactSet
}

// Load 加载内嵌参考数据
func Load() (*ReferenceData, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("读取内嵌数据失败: %w", err)
	}
	return LoadFS(sub)
}

// MustLoad 加载内嵌参考数据，失败时 panic
func MustLoad() *ReferenceData {
	ref, err := Load()
	if err != nil {
		panic(err)
	}
	return ref
}

// LoadDir 在内嵌数据上合并目录中的文件。
// 角色、武器、套装、材料按键名覆盖或追加，修正表逐条合并，数值表整体替换。
// 目录中只需放入要补充的条目。
func LoadDir(dir string) (*ReferenceData, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("读取内嵌数据失败: %w", err)
	}
	ref, err := decodeAll(sub)
	if err != nil {
		return nil, err
	}

	extra := os.DirFS(dir)
	if err := mergeList(extra, "characters.json", &ref.characters, func(c Character) string { return keyOf(c.Key, c.Name) }); err != nil {
		return nil, err
	}
	if err := mergeList(extra, "weapons.json", &ref.weapons, func(w Weapon) string { return keyOf(w.Key, w.Name) }); err != nil {
		return nil, err
	}
	if err := mergeList(extra, "artifacts.json", &ref.sets, func(a ArtifactSet) string { return keyOf(a.Key, a.Name) }); err != nil {
		return nil, err
	}
	if err := mergeList(extra, "materials.json", &ref.materials, func(m Material) string { return keyOf(m.Key, m.Name) }); err != nil {
		return nil, err
	}

	var corrections map[string]string
	if _, err := decodeOptional(extra, "corrections.json", &corrections); err != nil {
		return nil, err
	}
	ref.corrections = lo.Assign(ref.corrections, corrections)

	var stats statFile
	ok, err := decodeOptional(extra, "stats.json", &stats)
	if err != nil {
		return nil, err
	}
	if ok {
		ref.stats = stats
	}
	return ref.finish()
}

// LoadFS 从文件系统加载参考数据
func LoadFS(fsys fs.FS) (*ReferenceData, error) {
	ref, err := decodeAll(fsys)
	if err != nil {
		return nil, err
	}
	return ref.finish()
}

func decodeAll(fsys fs.FS) (*ReferenceData, error) {
	ref := &ReferenceData{}
	files := []struct {
		name string
		v    any
	}{
		{"characters.json", &ref.characters},
		{"weapons.json", &ref.weapons},
		{"artifacts.json", &ref.sets},
		{"materials.json", &ref.materials},
		{"stats.json", &ref.stats},
		{"corrections.json", &ref.corrections},
	}
	for _, f := range files {
		if err := decode(fsys, f.name, f.v); err != nil {
			return nil, err
		}
	}
	return ref, nil
}

func (r *ReferenceData) finish() (*ReferenceData, error) {
	r.index()
	if err := r.stats.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// decodeOptional 文件不存在时返回 false
func decodeOptional(fsys fs.FS, name string, v any) (bool, error) {
	if _, err := fs.Stat(fsys, name); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return true, decode(fsys, name, v)
}

// mergeList 按键名合并名录：已有的条目被替换，新条目追加在末尾
func mergeList[T any](fsys fs.FS, name string, list *[]T, key func(T) string) error {
	var extra []T
	ok, err := decodeOptional(fsys, name, &extra)
	if err != nil || !ok {
		return err
	}
	pos := make(map[string]int, len(*list))
	for i, v := range *list {
		pos[key(v)] = i
	}
	for _, v := range extra {
		k := key(v)
		if i, found := pos[k]; found {
			(*list)[i] = v
			continue
		}
		pos[k] = len(*list)
		*list = append(*list, v)
	}
	return nil
}

func keyOf(key, name string) string {
	if key != "" {
		return key
	}
	return fuzzy.Normalize(name)
}

func decode(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("读取 %s 失败: %w", name, err)
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", name, err)
	}
	return nil
}

// index 生成键名与索引
func (r *ReferenceData) index() {
	for i := range r.characters {
		if r.characters[i].Key == "" {
			r.characters[i].Key = fuzzy.Normalize(r.characters[i].Name)
		}
	}
	for i := range r.weapons {
		if r.weapons[i].Key == "" {
			r.weapons[i].Key = fuzzy.Normalize(r.weapons[i].Name)
		}
	}
	for i := range r.sets {
		if r.sets[i].Key == "" {
			r.sets[i].Key = fuzzy.Normalize(r.sets[i].Name)
		}
	}
	for i := range r.materials {
		if r.materials[i].Key == "" {
			r.materials[i].Key = fuzzy.Normalize(r.materials[i].Name)
		}
	}

	r.characterByKey = lo.KeyBy(r.characters, func(c Character) string { return c.Key })
	r.weaponByKey = lo.KeyBy(r.weapons, func(w Weapon) string { return w.Key })
	r.setByKey = lo.KeyBy(r.sets, func(s ArtifactSet) string { return s.Key })
}

// CharacterKeys 所有角色键名
func (r *ReferenceData) CharacterKeys() []string {
	return lo.Map(r.characters, func(c Character, _ int) string { return c.Key })
}

// Character 按键名查找角色
func (r *ReferenceData) Character(key string) (Character, bool) {
	c, ok := r.characterByKey[key]
	return c, ok
}

// WeaponKeys 所有武器键名
func (r *ReferenceData) WeaponKeys() []string {
	return lo.Map(r.weapons, func(w Weapon, _ int) string { return w.Key })
}

// Weapon 按键名查找武器
func (r *ReferenceData) Weapon(key string) (Weapon, bool) {
	w, ok := r.weaponByKey[key]
	return w, ok
}

// SetKeys 所有圣遗物套装键名
func (r *ReferenceData) SetKeys() []string {
	return lo.Map(r.sets, func(s ArtifactSet, _ int) string { return s.Key })
}

// ArtifactSet 按键名查找套装
func (r *ReferenceData) ArtifactSet(key string) (ArtifactSet, bool) {
	s, ok := r.setByKey[key]
	return s, ok
}

// MaterialKeys 指定分组的材料键名，group 为空时返回全部
func (r *ReferenceData) MaterialKeys(group string) []string {
	filtered := lo.Filter(r.materials, func(m Material, _ int) bool {
		return group == "" || m.Group == group
	})
	return lo.Map(filtered, func(m Material, _ int) string { return m.Key })
}

// Corrections OCR 易混淆名称修正表副本
func (r *ReferenceData) Corrections() map[string]string {
	return lo.Assign(map[string]string{}, r.corrections)
}

// Counts 各类条目数量，用于启动日志
func (r *ReferenceData) Counts() map[string]int {
	return map[string]int{
		"characters": len(r.characters),
		"weapons":    len(r.weapons),
		"sets":       len(r.sets),
		"materials":  len(r.materials),
	}
}
