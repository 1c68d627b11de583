// xlog.go 定义核心接口：Logger、Leveler、LoggerWithLevel
//
// 所有日志方法强制传入 context，EnrichHandler 据此把 B3 追踪字段写入每条日志。
package xlog

import (
	"context"
	"log/slog"
)

// Logger 日志接口
//
// 方法签名只接受 slog.Attr，避免隐式 key-value 转换。
type Logger interface {
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)
	Info(ctx context.Context, msg string, attrs ...slog.Attr)
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
	Error(ctx context.Context, msg string, attrs ...slog.Attr)

	// Stack 记录 Error 级别日志并附带当前 goroutine 的调用栈
	Stack(ctx context.Context, msg string, attrs ...slog.Attr)

	// With 返回带额外属性的派生 Logger
	//
	// 派生 logger 与父级共享 LevelVar，动态级别变更同步生效。
	With(attrs ...slog.Attr) Logger

	// WithGroup 返回带分组的派生 Logger
	WithGroup(name string) Logger
}

// Leveler 级别控制接口
type Leveler interface {
	// SetLevel 运行时调整日志级别
	SetLevel(level Level)

	// GetLevel 当前日志级别
	GetLevel() Level

	// Enabled 指定级别是否会输出，用于跳过昂贵的属性构造
	Enabled(ctx context.Context, level Level) bool
}

// LoggerWithLevel Build 的返回类型，省去业务代码的类型断言
type LoggerWithLevel interface {
	Logger
	Leveler
}
