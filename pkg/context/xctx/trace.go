package xctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// =============================================================================
// Require 函数：强制获取模式
// =============================================================================

// RequireTraceID 从 context 获取 trace ID，不存在则返回错误。
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func RequireTraceID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := TraceID(ctx)
	if v == "" {
		return "", ErrMissingTraceID
	}
	return v, nil
}

// RequireSpanID 从 context 获取 span ID，不存在则返回错误。
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func RequireSpanID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := SpanID(ctx)
	if v == "" {
		return "", ErrMissingSpanID
	}
	return v, nil
}

// =============================================================================
// ID 格式常量（Zipkin B3）
// =============================================================================

const (
	// TraceIDSize 128-bit (16 bytes) -> 32 hex chars
	TraceIDSize = 16

	// SpanIDSize 64-bit (8 bytes) -> 16 hex chars
	SpanIDSize = 8
)

// =============================================================================
// Trace 日志属性 Key 常量
// =============================================================================

const (
	KeyTraceID      = "trace_id"
	KeySpanID       = "span_id"
	KeyParentSpanID = "parent_span_id"
	KeySampled      = "sampled"
	KeyFlags        = "flags"

	// traceFieldCount 追踪字段数量（用于 slog 属性预分配）
	traceFieldCount = 5
)

const (
	keyTraceID      = contextKey("xctx:trace_id")
	keySpanID       = contextKey("xctx:span_id")
	keyParentSpanID = contextKey("xctx:parent_span_id")
	keySampled      = contextKey("xctx:sampled")
	keyFlags        = contextKey("xctx:flags")
)

// =============================================================================
// 单字段读写
// =============================================================================

func withString(ctx context.Context, key contextKey, v string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, key, v), nil
}

func getString(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithTraceID 将 trace ID 注入 context
//
// 如果 ctx 为 nil，返回 ErrNilContext。
func WithTraceID(ctx context.Context, traceID string) (context.Context, error) {
	return withString(ctx, keyTraceID, traceID)
}

// TraceID 从 context 提取 trace ID，不存在返回空字符串
func TraceID(ctx context.Context) string {
	return getString(ctx, keyTraceID)
}

// WithSpanID 将 span ID 注入 context
func WithSpanID(ctx context.Context, spanID string) (context.Context, error) {
	return withString(ctx, keySpanID, spanID)
}

// SpanID 从 context 提取 span ID，不存在返回空字符串
func SpanID(ctx context.Context) string {
	return getString(ctx, keySpanID)
}

// WithParentSpanID 将父 span ID 注入 context
func WithParentSpanID(ctx context.Context, parentSpanID string) (context.Context, error) {
	return withString(ctx, keyParentSpanID, parentSpanID)
}

// ParentSpanID 从 context 提取父 span ID，不存在返回空字符串
func ParentSpanID(ctx context.Context) string {
	return getString(ctx, keyParentSpanID)
}

// WithSampled 将采样决策注入 context
//
// 取值与 B3 头一致："1" 表示采样，"0" 表示不采样。
func WithSampled(ctx context.Context, sampled string) (context.Context, error) {
	return withString(ctx, keySampled, sampled)
}

// Sampled 从 context 提取采样决策，不存在返回空字符串
func Sampled(ctx context.Context) string {
	return getString(ctx, keySampled)
}

// WithFlags 将 flags（十进制字符串）注入 context
func WithFlags(ctx context.Context, flags string) (context.Context, error) {
	return withString(ctx, keyFlags, flags)
}

// Flags 从 context 提取 flags，不存在返回空字符串
func Flags(ctx context.Context) string {
	return getString(ctx, keyFlags)
}

// =============================================================================
// ID 生成函数
// =============================================================================

// isAllZeros 检查字节切片是否全为零，全零 ID 在 B3 中无效
func isAllZeros(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

func generateHex(size int) string {
	buf := make([]byte, size)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic("xctx: crypto/rand.Read failed: " + err.Error())
		}
		if !isAllZeros(buf) {
			return hex.EncodeToString(buf)
		}
	}
}

// GenerateTraceID 生成 128-bit TraceID
//
// 格式: 32位小写十六进制字符串
// 示例: "0af7651916cd43dd8448eb211c80319c"
//
// 熵源不可用时 panic：系统无法提供安全随机数时服务不应继续运行。
func GenerateTraceID() string {
	return generateHex(TraceIDSize)
}

// GenerateSpanID 生成 64-bit SpanID
//
// 格式: 16位小写十六进制字符串
// 示例: "b7ad6b7169203331"
func GenerateSpanID() string {
	return generateHex(SpanIDSize)
}

// =============================================================================
// Trace 结构体（批量获取模式）
// =============================================================================

// Trace 追踪信息结构体
//
// 各字段为 B3 头的字符串形式，缺失时为空字符串。
type Trace struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Sampled      string
	Flags        string
}

// GetTrace 从 context 批量获取所有追踪信息
func GetTrace(ctx context.Context) Trace {
	return Trace{
		TraceID:      TraceID(ctx),
		SpanID:       SpanID(ctx),
		ParentSpanID: ParentSpanID(ctx),
		Sampled:      Sampled(ctx),
		Flags:        Flags(ctx),
	}
}

// Validate 校验 TraceID 与 SpanID 是否存在，按 TraceID → SpanID 顺序返回第一个缺失字段的错误。
func (t Trace) Validate() error {
	if t.TraceID == "" {
		return ErrMissingTraceID
	}
	if t.SpanID == "" {
		return ErrMissingSpanID
	}
	return nil
}

// IsComplete 检查 TraceID 与 SpanID 是否都存在
func (t Trace) IsComplete() bool {
	return t.TraceID != "" && t.SpanID != ""
}

// WithTrace 将 Trace 结构体中的非空字段批量注入 context。
//
// 空字符串字段会被跳过。如果 ctx 为 nil，返回 ErrNilContext。
func WithTrace(ctx context.Context, tr Trace) (context.Context, error) {
	return applyOptionalFields(ctx, []contextFieldSetter{
		{value: tr.TraceID, set: WithTraceID},
		{value: tr.SpanID, set: WithSpanID},
		{value: tr.ParentSpanID, set: WithParentSpanID},
		{value: tr.Sampled, set: WithSampled},
		{value: tr.Flags, set: WithFlags},
	})
}
