package xtracer

import (
	"strconv"
	"strings"

	"github.com/omeyang/xzipkin/pkg/util/xoption"
)

// FlagDebug B3 flags 中的 debug 位，置位时强制记录
const FlagDebug = 1

// IDConfig 构造 ID 的参数
type IDConfig struct {
	TraceID  xoption.Option[string]
	ParentID xoption.Option[string]
	SpanID   string
	Sampled  xoption.Option[bool]
	Flags    xoption.Option[int]
}

// ID 追踪标识 {traceId, parentId, spanId, sampled, flags}
//
// ID 是不可变值，构造后各字段不再变化，可在 goroutine 间自由传递。
type ID struct {
	traceID  xoption.Option[string]
	parentID xoption.Option[string]
	spanID   string
	sampled  xoption.Option[bool]
	flags    xoption.Option[int]
}

// NewID 根据配置构造 ID
func NewID(cfg IDConfig) ID {
	return ID{
		traceID:  cfg.TraceID,
		parentID: cfg.ParentID,
		spanID:   cfg.SpanID,
		sampled:  cfg.Sampled,
		flags:    cfg.Flags,
	}
}

// TraceID 返回 trace 标识
func (id ID) TraceID() xoption.Option[string] { return id.traceID }

// ParentID 返回父 span 标识
func (id ID) ParentID() xoption.Option[string] { return id.parentID }

// SpanID 返回 span 标识
func (id ID) SpanID() string { return id.spanID }

// Sampled 返回采样决策
func (id ID) Sampled() xoption.Option[bool] { return id.sampled }

// Flags 返回 B3 flags
func (id ID) Flags() xoption.Option[int] { return id.flags }

// IsZero 报告 ID 是否为零值（没有 span 标识）
func (id ID) IsZero() bool { return id.spanID == "" }

// IsDebug 报告 flags 是否置位 debug
func (id ID) IsDebug() bool {
	return id.flags.OrElse(0)&FlagDebug != 0
}

// Config 返回可用于派生新 ID 的配置副本
func (id ID) Config() IDConfig {
	return IDConfig{
		TraceID:  id.traceID,
		ParentID: id.parentID,
		SpanID:   id.spanID,
		Sampled:  id.sampled,
		Flags:    id.flags,
	}
}

// String 返回便于调试的文本表示
func (id ID) String() string {
	var b strings.Builder
	b.WriteString("ID(traceId=")
	b.WriteString(id.traceID.String())
	b.WriteString(", parentId=")
	b.WriteString(id.parentID.String())
	b.WriteString(", spanId=")
	b.WriteString(id.spanID)
	b.WriteString(", sampled=")
	b.WriteString(id.sampled.String())
	b.WriteString(", flags=")
	b.WriteString(id.flags.String())
	b.WriteByte(')')
	return b.String()
}

// sampledString 返回 B3 Sampled 头取值，未决时为空
func (id ID) sampledString() string {
	return xoption.Match(id.sampled,
		func(s bool) string {
			if s {
				return "1"
			}
			return "0"
		},
		func() string { return "" },
	)
}

// flagsString 返回 flags 的十进制表示，缺失时为空
func (id ID) flagsString() string {
	return xoption.Match(id.flags, strconv.Itoa, func() string { return "" })
}
