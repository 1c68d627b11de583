// Package xsampling 提供根追踪的采样策略。
//
// 当请求未携带 B3 头时，中间件需要为新建的根追踪做一次采样决策，
// 决策结果写入追踪标识的 Sampled 字段，并随 X-B3-Sampled 向下游传播。
//
// # 策略
//
//   - Always(): 全采样
//   - Never(): 不采样
//   - NewRateSampler(rate): 固定比率随机采样
//   - NewCountSampler(n): 每 n 个采样 1 个
//   - NewKeyBasedSampler(rate, keyFunc): 基于 key 的一致性采样（xxhash）
//   - TraceIDSampler(rate): 按 context 中的 trace_id 一致性采样
//
// 配置驱动的创建使用 FromConfig。
//
// # 跨进程一致性
//
// KeyBasedSampler 使用确定性哈希 xxhash（github.com/cespare/xxhash/v2），
// 同一 trace_id 在所有进程中得到相同的采样决策。
//
// 所有采样器都是并发安全的。
package xsampling
