// Package context 提供请求上下文相关的子包。
//
// 子包列表：
//   - xctx: 以字符串形式在 context 中存取 B3 追踪字段，供日志等组件读取
//
// 所有上下文信息通过 context.Context 传递，不使用全局变量。
package context
