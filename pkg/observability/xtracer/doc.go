// Package xtracer 提供 Zipkin 风格的追踪器。
//
// 追踪器负责生成追踪标识（ID）、在 context 中绑定"当前标识"，
// 以及把 span 注解（服务名、RPC 名、二进制注解、时间事件）交给 Recorder 输出。
//
// # 请求级绑定
//
// "当前标识"不保存在任何全局可变槽位中，而是随 context.Context 沿调用链传递：
//
//	ctx = tracer.SetID(ctx, id)
//	tracer.Scoped(ctx, func(ctx context.Context) {
//	    tracer.RecordRPC(ctx, "GET")
//	})
//
// 并发请求各自持有独立的 context，绑定互不干扰，也无需加锁。
//
// # 采样
//
// 根标识的采样决策由 xsampling.Sampler 给出，调用采样器前会把新 trace_id
// 写入 context，因此 xsampling.TraceIDSampler 能在多个服务间得到一致结果。
// Sampled 为 false 且未设置 debug flag 的标识，其注解会被直接丢弃。
//
// # Recorder
//
//   - MemoryRecorder: 内存记录，用于测试与调试
//   - LogRecorder: 通过 xlog 输出
//   - OTelRecorder: 将 ServerRecv/ServerSend、ClientSend/ClientRecv 映射为 OpenTelemetry span，
//     共用 span id 的客户端与服务端 span 分别维护，未结束的 span 数量有上限
//   - MultiRecorder: 扇出到多个 Recorder
package xtracer
