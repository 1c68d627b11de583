// Package xlog 基于 log/slog 的结构化日志库。
//
// # 创建 Logger
//
// Builder 模式，first-error-wins：
//
//	logger, cleanup, err := xlog.New().
//		SetFormat("json").
//		SetLevelString("debug").
//		SetService("checkout").
//		SetRotation("/var/log/xzipkind/xzipkind.log").
//		Build()
//	defer cleanup()
//
// # 追踪字段注入
//
// 默认启用的 [EnrichHandler] 从 context 读取 xctx 中的 B3 字段
// （trace_id、span_id、parent_span_id、sampled、flags）并追加到每条日志。
// xtrace 中间件在请求开始时写入这些字段，请求链路上的日志因此可按 trace_id 关联。
//
// # 动态级别
//
// Build 返回 [LoggerWithLevel]，[Leveler.SetLevel] 在运行时生效，
// 派生 logger 共享同一 LevelVar。xzipkind 在配置文件热更新时调用它。
//
// # 全局 Logger
//
// [Default] 惰性创建（stderr、Info、text），[SetDefault] 替换，
// [Debug]、[Info]、[Warn]、[Error]、[Stack] 为全局便利函数。
//
// # 日志级别
//
// LevelDebug(-4)、LevelInfo(0)、LevelWarn(4)、LevelError(8)，
// Level 实现 encoding.TextUnmarshaler，可直接从配置文件解析。
package xlog
