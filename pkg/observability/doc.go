// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xtracer: Zipkin 风格追踪器，追踪标识、注解与 Recorder
//   - xtrace: B3 头传播，HTTP/gRPC 服务端中间件与客户端注入
//   - xsampling: 根标识采样策略
//   - xmetrics: 请求级观测接口，OTel 与 Prometheus 实现
//   - xlog: 结构化日志，基于 log/slog 扩展，自动附带追踪字段
//   - xrotate: 日志文件轮转
//
// 依赖方向：xtrace → xtracer → xsampling。xlog 不导入 xtracer，
// 日志中的追踪字段由 xtracer.SyncToContext 写入 xctx 后读取。
package observability
