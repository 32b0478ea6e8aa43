// Package bot 把识别端与输入端组合成扫描器使用的操作集合
//
// 识别 (Perception) 与输入 (Actuation) 都是黑盒单次调用，可能返回错误或空结果。
// Bot 在其上提供重试、点击延迟抖动、可取消的等待。
package bot

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/zoeyai/goodscan/internal/logger"
	"github.com/zoeyai/goodscan/pkg/auto"
)

// Match 模板匹配结果
type Match struct {
	// Center 匹配中心点
	Center auto.Point
	// Box 匹配区域
	Box auto.Region
	// Confidence 置信度 (0-1)
	Confidence float64
}

// Perception 识别端
type Perception interface {
	// Size 屏幕（窗口）尺寸
	Size() (width, height int)
	// MatchOne 查找单个模板，未找到返回 nil, nil
	MatchOne(template string, opts ...auto.Option) (*Match, error)
	// MatchAll 查找所有模板位置
	MatchAll(template string, opts ...auto.Option) ([]Match, error)
	// ReadText 识别区域内的文字
	ReadText(region auto.Region, opts ...auto.Option) (string, error)
}

// Actuation 输入端
type Actuation interface {
	Tap(x, y int) error
	Swipe(x1, y1, x2, y2 int, duration time.Duration) error
}

// Fingerprinter 可选能力：计算区域的感知哈希，用于判断滚动是否生效
type Fingerprinter interface {
	Fingerprint(region auto.Region) (uint64, error)
}

// Config 操作配置
type Config struct {
	// Confidence 单点匹配置信度
	Confidence float64
	// ConfidenceAll 多点匹配置信度
	ConfidenceAll float64
	// DelayTap 点击前是否加入随机延迟
	DelayTap bool
	// DelayTapMs 点击延迟基准 (毫秒)
	DelayTapMs int
}

// TapJitter 点击延迟的抖动范围
const TapJitter = 100 * time.Millisecond

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Confidence:    0.8,
		ConfidenceAll: 0.95,
		DelayTapMs:    1000,
	}
}

// Sleeper 可取消的等待函数
type Sleeper func(ctx context.Context, d time.Duration) error

// Option Bot 构造选项
type Option func(*Bot)

// WithSleeper 替换等待函数，测试中用于跳过真实等待
func WithSleeper(s Sleeper) Option {
	return func(b *Bot) {
		b.sleep = s
	}
}

// WithRand 指定随机源
func WithRand(rng *rand.Rand) Option {
	return func(b *Bot) {
		b.rng = rng
	}
}

// Bot 扫描器使用的操作集合
type Bot struct {
	eyes  Perception
	hands Actuation
	cfg   Config
	rng   *rand.Rand
	sleep Sleeper
}

// New 创建 Bot
func New(eyes Perception, hands Actuation, cfg Config, opts ...Option) *Bot {
	b := &Bot{
		eyes:  eyes,
		hands: hands,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config 返回操作配置
func (b *Bot) Config() Config {
	return b.cfg
}

// Size 屏幕尺寸
func (b *Bot) Size() (int, int) {
	return b.eyes.Size()
}

// Wait 可取消的等待
func (b *Bot) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return b.sleep(ctx, d)
}

// Find 查找单个模板，按 WithAttempts 重试。未找到返回 nil, nil
func (b *Bot) Find(ctx context.Context, template string, opts ...auto.Option) (*Match, error) {
	o := auto.ApplyOptions(opts...)
	opts = b.withConfidence(o, b.cfg.Confidence, opts)

	for attempt := 1; attempt <= o.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := b.eyes.MatchOne(template, opts...)
		if err != nil {
			logger.Debug("查找 %s 失败 (第 %d 次): %v", template, attempt, err)
		} else if m != nil {
			return m, nil
		}
		if attempt < o.Attempts {
			if err := b.Wait(ctx, o.Interval); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

// FindAll 查找所有模板位置，识别错误按未找到处理
func (b *Bot) FindAll(ctx context.Context, template string, opts ...auto.Option) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := auto.ApplyOptions(opts...)
	opts = b.withConfidence(o, b.cfg.ConfidenceAll, opts)

	matches, err := b.eyes.MatchAll(template, opts...)
	if err != nil {
		logger.Warn("批量查找 %s 失败: %v", template, err)
		return nil, nil
	}
	return matches, nil
}

// Exists 模板是否存在
func (b *Bot) Exists(ctx context.Context, template string, opts ...auto.Option) (bool, error) {
	m, err := b.Find(ctx, template, opts...)
	return m != nil, err
}

// FindAndPress 查找模板并点击其中心
func (b *Bot) FindAndPress(ctx context.Context, template string, opts ...auto.Option) (bool, error) {
	m, err := b.Find(ctx, template, opts...)
	if err != nil || m == nil {
		return false, err
	}
	if err := b.Tap(ctx, m.Center); err != nil {
		return false, err
	}
	return true, nil
}

// Tap 点击坐标，开启延迟点击时先等待 DelayTapMs±100ms
func (b *Bot) Tap(ctx context.Context, p auto.Point) error {
	if b.cfg.DelayTap {
		d := auto.Jitter(b.rng, time.Duration(b.cfg.DelayTapMs)*time.Millisecond, TapJitter)
		if err := b.Wait(ctx, d); err != nil {
			return err
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.hands.Tap(p.X, p.Y); err != nil {
		return fmt.Errorf("点击 %s 失败: %w", p, err)
	}
	return nil
}

// Swipe 滑动
func (b *Bot) Swipe(ctx context.Context, from, to auto.Point, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.hands.Swipe(from.X, from.Y, to.X, to.Y, d); err != nil {
		return fmt.Errorf("滑动 %s -> %s 失败: %w", from, to, err)
	}
	return nil
}

// Read 识别区域文字，识别错误按空文本处理
func (b *Bot) Read(ctx context.Context, region auto.Region, opts ...auto.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := b.eyes.ReadText(region, opts...)
	if err != nil {
		logger.Debug("OCR %s 失败: %v", region, err)
		return "", nil
	}
	return text, nil
}

// Fingerprint 计算区域感知哈希，识别端不支持时 ok 为 false
func (b *Bot) Fingerprint(region auto.Region) (uint64, bool) {
	fp, ok := b.eyes.(Fingerprinter)
	if !ok {
		return 0, false
	}
	hash, err := fp.Fingerprint(region)
	if err != nil {
		logger.Debug("计算区域哈希失败: %v", err)
		return 0, false
	}
	return hash, true
}

// withConfidence 未显式指定置信度时使用配置值
func (b *Bot) withConfidence(o *auto.Options, def float64, opts []auto.Option) []auto.Option {
	if o.Confidence > 0 || def <= 0 {
		return opts
	}
	return append(append([]auto.Option(nil), opts...), auto.WithConfidence(def))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
