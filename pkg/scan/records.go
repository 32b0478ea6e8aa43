package scan

import "fmt"

// Weapon 武器记录
type Weapon struct {
	Key        string `json:"key"`
	Level      int    `json:"level"`
	Ascension  int    `json:"ascension"`
	Refinement int    `json:"refinement"`
	Location   string `json:"location"`
	Lock       bool   `json:"lock"`
	// Rarity 扫描时的星级，不导出
	Rarity int `json:"-"`
}

func (w Weapon) String() string {
	return fmt.Sprintf("%s %d★ Lv.%d A%d R%d @%q lock=%v", w.Key, w.Rarity, w.Level, w.Ascension, w.Refinement, w.Location, w.Lock)
}

// Substat 圣遗物副属性
type Substat struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Artifact 圣遗物记录
type Artifact struct {
	SetKey      string    `json:"setKey"`
	SlotKey     string    `json:"slotKey"`
	Level       int       `json:"level"`
	Rarity      int       `json:"rarity"`
	MainStatKey string    `json:"mainStatKey"`
	Location    string    `json:"location"`
	Lock        bool      `json:"lock"`
	Substats    []Substat `json:"substats"`
	// MainStatValue 主属性数值，由数值表推算，不导出
	MainStatValue float64 `json:"-"`
}

func (a Artifact) String() string {
	return fmt.Sprintf("%s/%s %d★ +%d %s=%.1f %v", a.SetKey, a.SlotKey, a.Rarity, a.Level, a.MainStatKey, a.MainStatValue, a.Substats)
}

// Material 材料记录
type Material struct {
	Key    string
	Amount int
}

func (m Material) String() string {
	return fmt.Sprintf("%s x%d", m.Key, m.Amount)
}

// Talent 天赋等级
type Talent struct {
	Auto  int `json:"auto"`
	Skill int `json:"skill"`
	Burst int `json:"burst"`
}

// Character 角色记录
type Character struct {
	Key           string `json:"key"`
	Level         int    `json:"level"`
	Constellation int    `json:"constellation"`
	Ascension     int    `json:"ascension"`
	Talent        Talent `json:"talent"`
}

func (c Character) String() string {
	return fmt.Sprintf("%s Lv.%d A%d C%d T%d/%d/%d", c.Key, c.Level, c.Ascension, c.Constellation, c.Talent.Auto, c.Talent.Skill, c.Talent.Burst)
}

// Materials 合并材料记录，同名数量相加
func Materials(lists ...[]Material) map[string]int {
	out := map[string]int{}
	for _, list := range lists {
		for _, m := range list {
			out[m.Key] += m.Amount
		}
	}
	return out
}
