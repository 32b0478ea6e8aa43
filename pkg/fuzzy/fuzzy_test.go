package fuzzy

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"testing/quick"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Wolf's Gravestone", "WolfsGravestone"},
		{"skyward pride", "SkywardPride"},
		{"Kagotsurube Isshin", "KagotsurubeIsshin"},
		{"The Catch", "TheCatch"},
		{"Prototype: Crescent", "PrototypeCrescent"},
		{"Sword of Descension (Event)", "SwordOfDescensionEvent"},
		{"Blackcliff-Longsword", "BlackcliffLongsword"},
		{"Mistsplitter Reforged", "MistsplitterReforged"},
		{"Hakushin Ring’s", "HakushinRings"},
		{"Pokémon Café", "PokemonCafe"},
		{"  ", ""},
		{"A Thousand Floating Dreams", "AThousandFloatingDreams"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, 期望 %q", tt.input, got, tt.want)
			}
		})
	}
}

// 测试用字符集：字母、数字、带变音符号字母、引号与各种分隔符
const alphabet = "abcXYZ09 -_:'’()éÉñüßçAQ.,/\t"

type ocrText string

func (ocrText) Generate(r *rand.Rand, size int) reflect.Value {
	runes := []rune(alphabet)
	n := r.Intn(size + 1)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteRune(runes[r.Intn(len(runes))])
	}
	return reflect.ValueOf(ocrText(b.String()))
}

func TestNormalizeIdempotent(t *testing.T) {
	f := func(s ocrText) bool {
		once := Normalize(string(s))
		return Normalize(once) == once
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 2000}); err != nil {
		t.Error(err)
	}

	// 任意字符串
	g := func(s string) bool {
		once := Normalize(s)
		return Normalize(once) == once
	}
	if err := quick.Check(g, nil); err != nil {
		t.Error(err)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b    string
		atLeast float64
		atMost  float64
	}{
		{"Skyward Pride", "SkywardPride", 1, 1},
		{"skywardpride", "SkywardPride", 1, 1},
		{"SkywardPrlde", "SkywardPride", 0.9, 0.95},
		{"Amber", "Xiangling", 0, 0.3},
		{"", "", 1, 1},
	}

	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if got < tt.atLeast || got > tt.atMost {
			t.Errorf("Similarity(%q, %q) = %.3f, 期望在 [%.2f, %.2f]", tt.a, tt.b, got, tt.atLeast, tt.atMost)
		}
	}
}

var weapons = []string{"SkywardPride", "SkywardBlade", "WolfsGravestone", "TheCatch", "Rust"}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		threshold float64
		want      string
		found     bool
	}{
		{"完全相同", "Wolf's Gravestone", 0.8, "WolfsGravestone", true},
		{"单字符错误", "Skyward Prlde", 0.8, "SkywardPride", true},
		{"阈值过高", "Skyward Prlde", 0.99, "SkywardPrlde", false},
		{"无关文本", "Lorem Ipsum", 0.8, "LoremIpsum", false},
		{"空文本", "", 0.5, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.raw, weapons, tt.threshold)
			if ok != tt.found || got.Key != tt.want {
				t.Errorf("Resolve(%q) = (%q, %v), 期望 (%q, %v)", tt.raw, got.Key, ok, tt.want, tt.found)
			}
		})
	}
}

func TestResolveCorrectionsFirst(t *testing.T) {
	m := NewMatcher(0.8, map[string]string{"Lynelte": "Lynette"})
	catalog := []string{"Lyney", "Lynette"}

	got, ok := m.Resolve("lynelte", catalog)
	if !ok || got.Key != "Lynette" {
		t.Errorf("修正表未生效: %+v", got)
	}
}

func TestResolveThresholdMonotonic(t *testing.T) {
	raws := []string{"Skyward Prlde", "Wolfs Gravestonc", "The Cat", "Rsut", "xyz", "SkywardBlad"}
	thresholds := []float64{1, 0.95, 0.9, 0.8, 0.7, 0.5, 0.3, 0.1, 0}

	for _, raw := range raws {
		matched := false
		for _, th := range thresholds {
			_, ok := Resolve(raw, weapons, th)
			if matched && !ok {
				t.Errorf("%q 在阈值 %.2f 下从命中变为未命中", raw, th)
			}
			matched = matched || ok
		}
		t.Logf("%q 最终命中: %v", raw, matched)
	}
}

func TestPolicyThresholds(t *testing.T) {
	got := Policy{Start: 170, Step: 10, Attempts: 4}.Thresholds()
	want := []int{170, 160, 150, 140}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Thresholds() = %v, 期望 %v", got, want)
	}

	if got := (Policy{Start: 5, Step: 10, Attempts: 3}).Thresholds(); !reflect.DeepEqual(got, []int{5}) {
		t.Errorf("负阈值应被截断: %v", got)
	}
}

func TestRetry(t *testing.T) {
	m := NewMatcher(0.9, nil)

	reads := map[int]string{170: "", 160: "Skyw@rd Pr!de??", 150: "Skyward Pride"}
	var calls []int
	got := m.Retry(func(th int) string {
		calls = append(calls, th)
		return reads[th]
	}, weapons, Policy{Start: 170, Step: 10, Attempts: 5})

	if !got.Found || got.Key != "SkywardPride" {
		t.Errorf("Retry() = %+v, 期望命中 SkywardPride", got)
	}
	if len(calls) != 3 {
		t.Errorf("应在第 3 次命中后停止, 实际调用 %v", calls)
	}

	fallback := m.Retry(func(int) string { return "Unknown Blade" }, weapons, Policy{Start: 100, Step: 10, Attempts: 2})
	if fallback.Found || fallback.Key != "UnknownBlade" {
		t.Errorf("全部失败时应返回归一化原文: %+v", fallback)
	}
}
