// Package xmetrics 提供请求级观测接口与两种实现。
//
// xtrace 中间件对每个请求调用 [Start] 并在结束时 End，
// 组件、操作、状态作为统一维度：
//
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xtrace",
//		Operation: "GET",
//		Kind:      xmetrics.KindServer,
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 实现
//
//   - [NewOTelObserver]: OpenTelemetry 指标 xzipkin.server.requests 与 xzipkin.server.duration，
//     配置 TracerProvider 时额外创建 OTel span，父 span 取自 xctx 中的 B3 标识
//   - [NewPrometheusObserver]: Prometheus 指标 xzipkin_requests_total 与
//     xzipkin_request_duration_seconds，由 xzipkind 的 /metrics 暴露
//
// 两种实现都额外从 Result.Attrs 读取 http.status_code，作为 code 维度。
package xmetrics
