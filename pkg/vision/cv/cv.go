// Package cv 提供基于 gocv 的模板匹配
//
// 模板按名称从素材目录加载 (<dir>/<name>.png)，匹配使用 TM_CCOEFF_NORMED。
// 素材按 1920x1080 制作，其它分辨率通过 Scale 缩放模板。
//
//	lib := cv.NewLibrary("assets", cv.WithScale(0.5))
//	defer lib.Close()
//	best, err := lib.MatchBest(screen, "backpack", 0.8)
package cv
