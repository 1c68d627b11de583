package xtrace

import (
	"context"
	"net/http"

	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
	"github.com/omeyang/xzipkin/pkg/util/xoption"
)

// headerReader 按 B3 头名称读取传播值，HTTP 头与 gRPC metadata 各自实现
type headerReader func(name string) xoption.Option[string]

// ExtractID 根据请求头确定本次请求的追踪标识。
//
// trace-id 与 span-id 都存在时构造子标识（延续上游追踪）；
// 否则向 tracer 申请根标识，若请求带有 flags 头则覆盖根标识的 flags。
func ExtractID(ctx context.Context, tracer xtracer.Tracer, r *http.Request) xtracer.ID {
	var h http.Header
	if r != nil {
		h = r.Header
	}
	return deriveID(ctx, tracer, func(name string) xoption.Option[string] {
		return readHeader(h, name)
	})
}

func deriveID(ctx context.Context, tracer xtracer.Tracer, read headerReader) xtracer.ID {
	return childID(read).OrElseGet(func() xtracer.ID {
		return rootID(ctx, tracer, read)
	})
}

// childID trace-id 与 span-id 都存在时延续上游追踪
func childID(read headerReader) xoption.Option[xtracer.ID] {
	if read(HeaderTraceID).IsEmpty() || read(HeaderSpanID).IsEmpty() {
		return xoption.None[xtracer.ID]()
	}
	// 两次读取之间 span-id 不可能消失；若发生则按缺失处理，回退到根标识
	return xoption.Map(read(HeaderSpanID), func(spanID string) xtracer.ID {
		return xtracer.NewID(xtracer.IDConfig{
			TraceID:  read(HeaderTraceID),
			ParentID: read(HeaderParentSpanID),
			SpanID:   spanID,
			Sampled:  xoption.Map(read(HeaderSampled), StringToBoolean),
			Flags:    xoption.Some(xoption.FlatMap(read(HeaderFlags), StringToIntOption).OrElse(0)),
		})
	})
}

// rootID 向 tracer 申请根标识，请求带有 flags 头时覆盖其 flags
func rootID(ctx context.Context, tracer xtracer.Tracer, read headerReader) xtracer.ID {
	root := tracer.CreateRootID(ctx)
	flags := read(HeaderFlags)
	if flags.IsEmpty() {
		return root
	}
	cfg := root.Config()
	cfg.Flags = xoption.FlatMap(flags, StringToIntOption)
	return xtracer.NewID(cfg)
}
