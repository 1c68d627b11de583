// Package xctx 提供轻量级的请求上下文管理。
//
// 以字符串形式在 context 中存取 Zipkin B3 追踪字段，并为日志系统提供属性提取功能。
// 结构化的追踪标识由 xtracer 维护，xctx 只保存其字符串镜像，供 xlog 等不依赖
// xtracer 的组件读取。
//
// # 核心功能
//
// 追踪信息（Trace）：
//   - trace_id       : 追踪标识（64-bit 或 128-bit 十六进制）
//   - span_id        : 跨度标识（64-bit 十六进制）
//   - parent_span_id : 父跨度标识
//   - sampled        : 采样决策（"1" / "0"）
//   - flags          : B3 flags（十进制）
//
// # 命名约定
//
//	WithXxx(ctx, value)    - 注入：将 value 写入 context
//	Xxx(ctx)               - 读取：从 context 读取值，缺失时返回零值
//	RequireXxx(ctx)        - 强制读取：缺失时返回错误
//
// # nil context
//
// 所有读取函数对 nil context 返回零值；所有注入函数对 nil context 返回 ErrNilContext。
package xctx
