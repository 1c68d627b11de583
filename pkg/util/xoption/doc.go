// Package xoption 提供泛型可选值类型 Option[T]。
//
// # 设计理念
//
// 用显式的 Some/None 表达"存在/缺失"，替代 nil 指针、空字符串等哨兵值。
// 缺失是类型的一部分，调用方必须在使用处处理两种情况。
//
// # 使用方式
//
//	sid := xoption.Some("b7ad6b7169203331")
//	flags := xoption.FlatMap(header, parseFlags).OrElse(0)
//
//	msg := xoption.Match(sid,
//	    func(v string) string { return "span " + v },
//	    func() string { return "no span" },
//	)
//
// Map、FlatMap、Match 为包级泛型函数（Go 方法不支持额外类型参数）。
package xoption
