package catalog

import (
	"fmt"
	"math"
	"strconv"

	"github.com/samber/lo"

	"github.com/zoeyai/goodscan/pkg/fuzzy"
)

// 圣遗物部位键名
const (
	SlotFlower  = "flower"
	SlotPlume   = "plume"
	SlotSands   = "sands"
	SlotGoblet  = "goblet"
	SlotCirclet = "circlet"
)

type statName struct {
	Text    string `json:"text"`
	Flat    string `json:"flat"`
	Percent string `json:"percent"`
}

type slotEntry struct {
	Text string   `json:"text"`
	Key  string   `json:"key"`
	Main []string `json:"main"`
}

type mainTable struct {
	Rarity   int                   `json:"rarity"`
	MaxLevel int                   `json:"max_level"`
	Values   map[string][2]float64 `json:"values"`
}

type statFile struct {
	Names []statName  `json:"names"`
	Slots []slotEntry `json:"slots"`
	Main  []mainTable `json:"main"`
}

func (s statFile) validate() error {
	if len(s.Names) == 0 || len(s.Slots) != 5 {
		return fmt.Errorf("属性表不完整: names=%d, slots=%d", len(s.Names), len(s.Slots))
	}
	for _, t := range s.Main {
		if t.MaxLevel <= 0 {
			return fmt.Errorf("%d 星主属性表缺少最大等级", t.Rarity)
		}
	}
	return nil
}

// StatTexts 属性显示名列表，用于 OCR 匹配
func (r *ReferenceData) StatTexts() []string {
	return lo.Map(r.stats.Names, func(n statName, _ int) string { return n.Text })
}

// StatKey 把属性显示名转换为键名，percent 表示数值带百分号
func (r *ReferenceData) StatKey(text string, percent bool) (string, bool) {
	folded := fuzzy.Fold(text)
	for _, n := range r.stats.Names {
		if fuzzy.Fold(n.Text) == folded {
			if percent {
				return n.Percent, true
			}
			return n.Flat, true
		}
	}
	return "", false
}

// IsPercentStat 键名是否表示百分比属性
func IsPercentStat(key string) bool {
	return len(key) > 0 && key[len(key)-1] == '_'
}

// SlotTexts 部位显示名列表
func (r *ReferenceData) SlotTexts() []string {
	return lo.Map(r.stats.Slots, func(s slotEntry, _ int) string { return s.Text })
}

// SlotKey 部位显示名转换为键名
func (r *ReferenceData) SlotKey(text string) (string, bool) {
	folded := fuzzy.Fold(text)
	for _, s := range r.stats.Slots {
		if fuzzy.Fold(s.Text) == folded || s.Key == text {
			return s.Key, true
		}
	}
	return "", false
}

// MainStats 部位允许的主属性键名
func (r *ReferenceData) MainStats(slot string) []string {
	for _, s := range r.stats.Slots {
		if s.Key == slot {
			return append([]string(nil), s.Main...)
		}
	}
	return nil
}

// MaxArtifactLevel 指定星级圣遗物的最大等级
func (r *ReferenceData) MaxArtifactLevel(rarity int) int {
	for _, t := range r.stats.Main {
		if t.Rarity == rarity {
			return t.MaxLevel
		}
	}
	return 20
}

// MainStatValue 查询主属性数值：在 +0 与满级数值之间按等级线性插值，保留一位小数
func (r *ReferenceData) MainStatValue(rarity int, key string, level int) (float64, bool) {
	for _, t := range r.stats.Main {
		if t.Rarity != rarity {
			continue
		}
		bounds, ok := t.Values[key]
		if !ok {
			return 0, false
		}
		if level < 0 {
			level = 0
		}
		if level > t.MaxLevel {
			level = t.MaxLevel
		}
		v := bounds[0] + (bounds[1]-bounds[0])*float64(level)/float64(t.MaxLevel)
		if !IsPercentStat(key) && key != "eleMas" {
			return math.Round(v), true
		}
		return math.Round(v*10) / 10, true
	}
	return 0, false
}

// FormatStat 以游戏内格式显示属性数值
func FormatStat(key string, value float64) string {
	if IsPercentStat(key) {
		return strconv.FormatFloat(value, 'f', 1, 64) + "%"
	}
	return strconv.FormatFloat(value, 'f', 0, 64)
}
