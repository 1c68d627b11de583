package xoption

import "fmt"

// Option 可选值：要么包含一个值（Some），要么为空（None）。
//
// 零值为 None，可直接声明使用：
//
//	var o xoption.Option[string] // None
//
// Option 是值类型，复制后互不影响，可安全地跨 goroutine 传递。
type Option[T any] struct {
	value T
	ok    bool
}

// Some 返回包含 v 的 Option。
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None 返回空 Option。
func None[T any]() Option[T] {
	return Option[T]{}
}

// IsPresent 是否包含值。
func (o Option[T]) IsPresent() bool {
	return o.ok
}

// IsEmpty 是否为空。
func (o Option[T]) IsEmpty() bool {
	return !o.ok
}

// Get 返回值及是否存在，与 map 取值的 comma-ok 写法一致。
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// OrElse 存在时返回值，否则返回 def。
func (o Option[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// OrElseGet 存在时返回值，否则返回 fn() 的结果。fn 仅在 None 时调用。
func (o Option[T]) OrElseGet(fn func() T) T {
	if o.ok {
		return o.value
	}
	return fn()
}

// IfPresent 存在时以值调用 fn。
func (o Option[T]) IfPresent(fn func(T)) {
	if o.ok {
		fn(o.value)
	}
}

// Filter 存在且满足 pred 时原样返回，否则返回 None。
func (o Option[T]) Filter(pred func(T) bool) Option[T] {
	if o.ok && pred(o.value) {
		return o
	}
	return None[T]()
}

// Or 存在时返回自身，否则返回 other。
func (o Option[T]) Or(other Option[T]) Option[T] {
	if o.ok {
		return o
	}
	return other
}

// String 实现 fmt.Stringer，输出 "Some(v)" 或 "None"。
func (o Option[T]) String() string {
	if o.ok {
		return fmt.Sprintf("Some(%v)", o.value)
	}
	return "None"
}

// =============================================================================
// 泛型组合函数
//
// Go 方法不能引入新的类型参数，Map/FlatMap/Match 只能以包级函数提供。
// =============================================================================

// Map 存在时对值应用 fn，返回 Some(fn(v))；否则返回 None。
func Map[T, U any](o Option[T], fn func(T) U) Option[U] {
	if v, ok := o.Get(); ok {
		return Some(fn(v))
	}
	return None[U]()
}

// FlatMap 存在时返回 fn(v)，否则返回 None。
//
// 用于串联可能失败的转换，例如：
//
//	flags := xoption.FlatMap(header, parseInt).OrElse(0)
func FlatMap[T, U any](o Option[T], fn func(T) Option[U]) Option[U] {
	if v, ok := o.Get(); ok {
		return fn(v)
	}
	return None[U]()
}

// Match 对 Option 做完全匹配：存在时调用 some，否则调用 none。
func Match[T, R any](o Option[T], some func(T) R, none func() R) R {
	if v, ok := o.Get(); ok {
		return some(v)
	}
	return none()
}
