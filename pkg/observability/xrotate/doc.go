// Package xrotate 为日志输出提供按大小轮转的文件写入器。
//
// xzipkind 在配置 log.file 时使用 [NewLumberjack] 作为 xlog 的输出目标，
// 备份数量、保留天数与压缩策略均来自配置文件。
//
// Rotator 的所有实现都是并发安全的，Close 之后的 Write 与 Rotate 返回 [ErrClosed]。
package xrotate
