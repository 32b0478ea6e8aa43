// Package config 读写扫描设置
//
// 设置文件为 JSON，通过 viper 读取并合并默认值，环境变量 GOODSCAN_<SECTION>_<KEY>
// 可以覆盖任意字段，如 GOODSCAN_WEAPONS_ONLY_LOCKED=true。
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/zoeyai/goodscan/pkg/auto/grid"
	"github.com/zoeyai/goodscan/pkg/scroll"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "GOODSCAN"

// TierSettings 武器与圣遗物的扫描设置
type TierSettings struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	Scan5Star  bool `json:"scan_5_star" mapstructure:"scan_5_star"`
	Scan4Star  bool `json:"scan_4_star" mapstructure:"scan_4_star"`
	Scan3Star  bool `json:"scan_3_star" mapstructure:"scan_3_star"`
	OnlyLocked bool `json:"only_locked" mapstructure:"only_locked"`
	// MaxEmptyRows 连续空行上限
	MaxEmptyRows int `json:"max_empty_rows" mapstructure:"max_empty_rows"`
}

// Tiers 启用的星级，从高到低
func (t TierSettings) Tiers() []int {
	var tiers []int
	if t.Scan5Star {
		tiers = append(tiers, 5)
	}
	if t.Scan4Star {
		tiers = append(tiers, 4)
	}
	if t.Scan3Star {
		tiers = append(tiers, 3)
	}
	return tiers
}

// MaterialSettings 材料扫描设置
type MaterialSettings struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// DevelopmentItems 同时扫描角色培养素材
	DevelopmentItems bool `json:"development_items" mapstructure:"development_items"`
}

// CharacterSettings 角色扫描设置
type CharacterSettings struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	TravelerName   string `json:"traveler_name" mapstructure:"traveler_name"`
	EnableWanderer bool   `json:"enable_wanderer" mapstructure:"enable_wanderer"`
	WandererName   string `json:"wanderer_name" mapstructure:"wanderer_name"`
}

// MiscSettings 调试与测试选项
type MiscSettings struct {
	DebugMode        bool `json:"debug_mode" mapstructure:"debug_mode"`
	TestSingleSearch bool `json:"test_single_search" mapstructure:"test_single_search"`

	TestSearchWeapons    bool `json:"test_search_weapons" mapstructure:"test_search_weapons"`
	TestSearchArtifacts  bool `json:"test_search_artifacts" mapstructure:"test_search_artifacts"`
	TestSearchMaterials  bool `json:"test_search_materials" mapstructure:"test_search_materials"`
	TestSearchCharacters bool `json:"test_search_characters" mapstructure:"test_search_characters"`

	TestScrollRows          bool `json:"test_scroll_rows" mapstructure:"test_scroll_rows"`
	TestScrollCharacterRows bool `json:"test_scroll_character_rows" mapstructure:"test_scroll_character_rows"`
}

// DisplaySettings 模拟器窗口区域，宽高为 0 时自动查找
type DisplaySettings struct {
	X      int `json:"x" mapstructure:"x"`
	Y      int `json:"y" mapstructure:"y"`
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// Auto 是否需要自动查找窗口
func (d DisplaySettings) Auto() bool {
	return d.Width <= 0 || d.Height <= 0
}

// OCRSettings OCR 模型路径
type OCRSettings struct {
	OnnxRuntimeLib string `json:"onnxruntime_lib" mapstructure:"onnxruntime_lib"`
	DetModel       string `json:"det_model" mapstructure:"det_model"`
	RecModel       string `json:"rec_model" mapstructure:"rec_model"`
	Dict           string `json:"dict" mapstructure:"dict"`
	// TesseractLang 数字识别使用的 Tesseract 语言
	TesseractLang string `json:"tesseract_lang" mapstructure:"tesseract_lang"`
}

// GridOffsets 网格偏移，逗号分隔的像素值，如 "205,390,575"
type GridOffsets struct {
	Columns   string `json:"columns" mapstructure:"columns"`
	FirstRows string `json:"first_rows" mapstructure:"first_rows"`
	NextRows  string `json:"next_rows" mapstructure:"next_rows"`
}

// OffsetsOf 把网格布局转换为配置字符串
func OffsetsOf(l grid.Layout) GridOffsets {
	return GridOffsets{
		Columns:   grid.FormatOffsets(l.Columns),
		FirstRows: grid.FormatOffsets(l.FirstRows),
		NextRows:  grid.FormatOffsets(l.NextRows),
	}
}

// Layout 解析为网格布局
func (g GridOffsets) Layout() (grid.Layout, error) {
	var (
		l   grid.Layout
		err error
	)
	if l.Columns, err = grid.ParseOffsets(g.Columns); err != nil {
		return grid.Layout{}, fmt.Errorf("columns: %w", err)
	}
	if l.FirstRows, err = grid.ParseOffsets(g.FirstRows); err != nil {
		return grid.Layout{}, fmt.Errorf("first_rows: %w", err)
	}
	if l.NextRows, err = grid.ParseOffsets(g.NextRows); err != nil {
		return grid.Layout{}, fmt.Errorf("next_rows: %w", err)
	}
	return l, l.Validate()
}

// LayoutSettings 材料与角色网格的偏移，分辨率或界面不同时调整
type LayoutSettings struct {
	Materials  GridOffsets `json:"materials" mapstructure:"materials"`
	Characters GridOffsets `json:"characters" mapstructure:"characters"`
}

// Settings 扫描设置
type Settings struct {
	Weapons    TierSettings      `json:"weapons" mapstructure:"weapons"`
	Artifacts  TierSettings      `json:"artifacts" mapstructure:"artifacts"`
	Materials  MaterialSettings  `json:"materials" mapstructure:"materials"`
	Characters CharacterSettings `json:"characters" mapstructure:"characters"`
	Misc       MiscSettings      `json:"misc" mapstructure:"misc"`

	DelayTap   bool `json:"delay_tap" mapstructure:"delay_tap"`
	DelayTapMs int  `json:"delay_tap_ms" mapstructure:"delay_tap_ms"`

	Confidence    float64 `json:"confidence" mapstructure:"confidence"`
	ConfidenceAll float64 `json:"confidence_all" mapstructure:"confidence_all"`
	CustomScale   float64 `json:"custom_scale" mapstructure:"custom_scale"`

	Display         DisplaySettings `json:"display" mapstructure:"display"`
	EmulatorProcess string          `json:"emulator_process" mapstructure:"emulator_process"`

	AssetsDir   string `json:"assets_dir" mapstructure:"assets_dir"`
	OutputDir   string `json:"output_dir" mapstructure:"output_dir"`
	KeepExports int    `json:"keep_exports" mapstructure:"keep_exports"`
	// CatalogDir 覆盖内嵌参考数据的目录，可为空
	CatalogDir string `json:"catalog_dir" mapstructure:"catalog_dir"`

	OCR    OCRSettings     `json:"ocr" mapstructure:"ocr"`
	Scroll scroll.Geometry `json:"scroll" mapstructure:"scroll"`
	Layout LayoutSettings  `json:"layout" mapstructure:"layout"`
}

// DefaultSettings 默认设置
func DefaultSettings() *Settings {
	tiers := TierSettings{Enabled: true, Scan5Star: true, Scan4Star: true, MaxEmptyRows: 3}
	return &Settings{
		Weapons:    tiers,
		Artifacts:  tiers,
		Materials:  MaterialSettings{Enabled: true, DevelopmentItems: true},
		Characters: CharacterSettings{Enabled: true},

		DelayTapMs: 1000,

		Confidence:    0.8,
		ConfidenceAll: 0.95,
		CustomScale:   1.0,

		EmulatorProcess: "HD-Player",

		AssetsDir:   "assets",
		OutputDir:   "GOOD",
		KeepExports: 50,

		OCR: OCRSettings{
			OnnxRuntimeLib: "lib/onnxruntime.so",
			DetModel:       "models/det.onnx",
			RecModel:       "models/rec.onnx",
			Dict:           "models/dict.txt",
			TesseractLang:  "eng",
		},
		Scroll: scroll.DefaultGeometry(),
		Layout: LayoutSettings{
			Materials:  OffsetsOf(grid.MaterialLayout),
			Characters: OffsetsOf(grid.CharacterLayout),
		},
	}
}

// 类别名称，与 scan 包一致
const (
	CategoryWeapons    = "weapons"
	CategoryArtifacts  = "artifacts"
	CategoryMaterials  = "materials"
	CategoryCharacters = "characters"
)

// Categories 已启用的类别，按扫描顺序
func (s *Settings) Categories() []string {
	var out []string
	if s.Weapons.Enabled {
		out = append(out, CategoryWeapons)
	}
	if s.Artifacts.Enabled {
		out = append(out, CategoryArtifacts)
	}
	if s.Materials.Enabled {
		out = append(out, CategoryMaterials)
	}
	if s.Characters.Enabled {
		out = append(out, CategoryCharacters)
	}
	return out
}

// EnableOnly 只启用给定的类别
func (s *Settings) EnableOnly(categories []string) error {
	known := []string{CategoryWeapons, CategoryArtifacts, CategoryMaterials, CategoryCharacters}
	categories = lo.Map(categories, func(c string, _ int) string { return strings.ToLower(strings.TrimSpace(c)) })
	categories = lo.Compact(categories)
	if unknown, _ := lo.Difference(categories, known); len(unknown) > 0 {
		return fmt.Errorf("未知的类别: %s", strings.Join(unknown, ", "))
	}
	s.Weapons.Enabled = lo.Contains(categories, CategoryWeapons)
	s.Artifacts.Enabled = lo.Contains(categories, CategoryArtifacts)
	s.Materials.Enabled = lo.Contains(categories, CategoryMaterials)
	s.Characters.Enabled = lo.Contains(categories, CategoryCharacters)
	return nil
}

// Validate 检查设置是否可用
func (s *Settings) Validate() error {
	var errs []error
	if len(s.Categories()) == 0 {
		errs = append(errs, errors.New("没有启用任何类别"))
	}
	if s.Weapons.Enabled && len(s.Weapons.Tiers()) == 0 {
		errs = append(errs, errors.New("武器扫描已启用但没有选择星级"))
	}
	if s.Artifacts.Enabled && len(s.Artifacts.Tiers()) == 0 {
		errs = append(errs, errors.New("圣遗物扫描已启用但没有选择星级"))
	}
	if s.Confidence <= 0 || s.Confidence > 1 {
		errs = append(errs, fmt.Errorf("confidence 必须在 (0, 1] 内: %v", s.Confidence))
	}
	if s.ConfidenceAll <= 0 || s.ConfidenceAll > 1 {
		errs = append(errs, fmt.Errorf("confidence_all 必须在 (0, 1] 内: %v", s.ConfidenceAll))
	}
	if s.CustomScale <= 0 {
		errs = append(errs, fmt.Errorf("custom_scale 必须大于 0: %v", s.CustomScale))
	}
	if s.DelayTapMs < 0 {
		errs = append(errs, fmt.Errorf("delay_tap_ms 不能为负: %d", s.DelayTapMs))
	}
	if err := s.Scroll.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.Layout.Materials.Layout(); err != nil {
		errs = append(errs, fmt.Errorf("layout.materials.%w", err))
	}
	if _, err := s.Layout.Characters.Layout(); err != nil {
		errs = append(errs, fmt.Errorf("layout.characters.%w", err))
	}
	return errors.Join(errs...)
}

// Manager 配置管理器
type Manager struct {
	configDir  string
	configFile string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器，配置位于 ~/.goodscan/config.json
func NewManager() *Manager {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return NewManagerWithDir(filepath.Join(homeDir, ".goodscan"))
}

// NewManagerWithDir 使用指定目录创建配置管理器
func NewManagerWithDir(configDir string) *Manager {
	return &Manager{
		configDir:  configDir,
		configFile: filepath.Join(configDir, "config.json"),
	}
}

// NewManagerWithFile 使用指定配置文件创建配置管理器
func NewManagerWithFile(path string) *Manager {
	return &Manager{
		configDir:  filepath.Dir(path),
		configFile: path,
	}
}

// Load 加载配置。文件不存在时返回默认值，环境变量覆盖文件中的值
func (m *Manager) Load() (*Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := viper.New()
	v.SetConfigType("json")
	defaults, err := sonic.Marshal(DefaultSettings())
	if err != nil {
		return DefaultSettings(), fmt.Errorf("序列化默认配置失败: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return DefaultSettings(), fmt.Errorf("读取默认配置失败: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(m.configFile); err == nil {
		v.SetConfigFile(m.configFile)
		if err := v.MergeInConfig(); err != nil {
			return DefaultSettings(), fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return DefaultSettings(), fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &s, nil
}

// Save 保存配置
func (m *Manager) Save(s *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := sonic.ConfigStd.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(m.configFile, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

// Clear 清除配置
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := os.Stat(m.configFile); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(m.configFile)
}

// GetConfigDir 获取配置目录
func (m *Manager) GetConfigDir() string {
	return m.configDir
}

// GetConfigFile 获取配置文件路径
func (m *Manager) GetConfigFile() string {
	return m.configFile
}

// Exists 检查配置文件是否存在
func (m *Manager) Exists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, err := os.Stat(m.configFile)
	return err == nil
}

var defaultManager = NewManager()

// GetDefaultManager 获取默认配置管理器
func GetDefaultManager() *Manager {
	return defaultManager
}

// Load 使用默认管理器加载配置
func Load() (*Settings, error) {
	return defaultManager.Load()
}

// Save 使用默认管理器保存配置
func Save(s *Settings) error {
	return defaultManager.Save(s)
}

// Clear 使用默认管理器清除配置
func Clear() error {
	return defaultManager.Clear()
}
