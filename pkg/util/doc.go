// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xoption: 泛型可选值 Option[T]，表达 B3 头等"可能缺失"的字段
package util
