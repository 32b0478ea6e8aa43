package scan

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCancelled 扫描被用户取消
	ErrCancelled = errors.New("扫描已取消")
	// ErrNavigation 无法进入类别页面
	ErrNavigation = errors.New("无法进入类别页面")
)

// CancelledError 扫描取消错误，errors.Is(err, ErrCancelled) 为 true
type CancelledError struct {
	Category string
	Cause    error
}

func (e *CancelledError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s 扫描已取消: %v", e.Category, e.Cause)
	}
	return fmt.Sprintf("%s 扫描已取消", e.Category)
}

// Is 匹配 ErrCancelled
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

// NavigationError 导航失败
type NavigationError struct {
	Category string
	Template string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("%s: 未找到 %s", e.Category, e.Template)
}

// Is 匹配 ErrNavigation
func (e *NavigationError) Is(target error) bool {
	return target == ErrNavigation
}

// checkpoint 检查取消
func checkpoint(ctx context.Context, category string) error {
	if err := ctx.Err(); err != nil {
		return &CancelledError{Category: category, Cause: err}
	}
	return nil
}

// wrapCancel 把 context 错误转换为 CancelledError，其它错误原样返回
func wrapCancel(category string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CancelledError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &CancelledError{Category: category, Cause: err}
	}
	return err
}
