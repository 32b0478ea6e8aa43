package scan

// State 网格扫描状态
type State int

const (
	// FullRegionSearch 在左侧 2/3 区域查找整屏
	FullRegionSearch State = iota
	// SingleRowSearch 滚动后只查找最后一行
	SingleRowSearch
	// TierComplete 当前星级完成
	TierComplete
	// AllDone 扫描结束
	AllDone
)

func (s State) String() string {
	switch s {
	case FullRegionSearch:
		return "FullRegionSearch"
	case SingleRowSearch:
		return "SingleRowSearch"
	case TierComplete:
		return "TierComplete"
	case AllDone:
		return "AllDone"
	default:
		return "Unknown"
	}
}

// 网格容量
const (
	FullCapacity = 21
	RowCapacity  = 7
)

// Counters 单次扫描的计数
type Counters struct {
	// Scrolls 网格滚动次数（不含校正）
	Scrolls int
	// Recoveries 校正滚动次数
	Recoveries int
	// EmptyRows 连续空行数
	EmptyRows int
	// Cells 点击的格子数
	Cells int
	// Discarded 星级不符被丢弃的记录数
	Discarded int
	// Skipped 未锁定被跳过的记录数
	Skipped int
}
