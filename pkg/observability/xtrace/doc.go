// Package xtrace 在 HTTP 与 gRPC 服务端实现 Zipkin B3 追踪上下文的提取、绑定与 span 注解记录。
//
// # 请求处理流程
//
// HTTPMiddleware 对每个请求依次执行：
//
//  1. 提取：X-B3-TraceId 与 X-B3-SpanId 都存在时延续上游追踪，构造子标识；
//     否则向 tracer 申请根标识，请求带有 X-B3-Flags 时覆盖其 flags
//  2. 开始注解：服务名、RPC（大写 HTTP 方法）、http.url、ServerRecv、LocalAddr，
//     flags 非零时追加 X-B3-Flags 二进制注解
//  3. 调用下游 handler，标识随请求 context 传递，可通过 IDFromRequest 读取
//  4. 结束注解：http.status_code 与 ServerSend，在 defer 中执行，
//     handler 正常返回、panic 或请求取消时都会记录
//
// # Header 解释
//
// Header 读取大小写不敏感，解析失败一律降级为 None，不会中断请求：
//
//	X-B3-Sampled  "1" 为 true，其余均为 false
//	X-B3-Flags    十进制整数，解析失败视为缺失
//
// # 并发
//
// 标识绑定通过 context 派生完成，不使用任何全局可变状态，
// 并发请求之间天然隔离，也无需加锁。
//
// # 客户端传播
//
// InjectToRequest / Transport 用于出站 HTTP 请求，
// GRPCUnaryClientInterceptor / InjectToOutgoingContext 用于出站 gRPC 调用。
package xtrace
