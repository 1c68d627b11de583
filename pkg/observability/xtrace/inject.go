package xtrace

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
)

// =============================================================================
// HTTP Header 注入（跨服务传播）
// =============================================================================

// InjectToRequest 将 ctx 上绑定的追踪标识写入请求的 B3 头。
//
// ctx 无标识时不做任何修改。req.Header 为 nil 时会先初始化。
func InjectToRequest(ctx context.Context, req *http.Request) {
	if req == nil {
		return
	}
	id, ok := xtracer.IDFromContext(ctx)
	if !ok {
		return
	}
	// 防止调用方构造 &http.Request{} 导致 nil Header panic
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	InjectIDToHeader(req.Header, id)
}

// InjectIDToHeader 将追踪标识写入 B3 头，缺失的可选字段不写出
func InjectIDToHeader(h http.Header, id xtracer.ID) {
	if h == nil || id.IsZero() {
		return
	}
	h.Set(HeaderTraceID, id.TraceID().OrElse(id.SpanID()))
	h.Set(HeaderSpanID, id.SpanID())
	id.ParentID().IfPresent(func(p string) { h.Set(HeaderParentSpanID, p) })
	id.Sampled().IfPresent(func(s bool) {
		if s {
			h.Set(HeaderSampled, "1")
		} else {
			h.Set(HeaderSampled, "0")
		}
	})
	id.Flags().IfPresent(func(f int) {
		if f != 0 {
			h.Set(HeaderFlags, strconv.Itoa(f))
		}
	})
}

// NextChildID 为出站调用生成子标识，并返回绑定了子标识的 context
func NextChildID(ctx context.Context, tracer xtracer.Tracer) (context.Context, xtracer.ID) {
	if ctx == nil {
		ctx = context.Background()
	}
	id := tracer.CreateChildID(ctx)
	return tracer.SetID(ctx, id), id
}

// =============================================================================
// 客户端 RoundTripper
// =============================================================================

// Transport 为出站 HTTP 请求生成子 span，并注入 B3 头
//
// 记录 ServiceName、RPC、http.url、ClientSend，收到响应后记录 http.status_code 与 ClientRecv。
type Transport struct {
	tracer      xtracer.Tracer
	base        http.RoundTripper
	serviceName string
}

// NewTransport 创建追踪 RoundTripper，base 为 nil 时使用 http.DefaultTransport
func NewTransport(tracer xtracer.Tracer, base http.RoundTripper, opts ...Option) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	cfg := newConfig(opts)
	return &Transport{tracer: tracer, base: base, serviceName: cfg.serviceName}
}

// RoundTrip 实现 http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tracer == nil {
		return t.base.RoundTrip(req)
	}

	ctx, id := NextChildID(req.Context(), t.tracer)

	// RoundTripper 不应修改原请求
	out := req.Clone(ctx)
	InjectIDToHeader(out.Header, id)

	t.tracer.Scoped(ctx, func(ctx context.Context) {
		t.tracer.RecordServiceName(ctx, t.serviceName)
		t.tracer.RecordRPC(ctx, strings.ToUpper(out.Method))
		t.tracer.RecordBinary(ctx, BinaryHTTPURL, out.URL.String())
		t.tracer.RecordAnnotation(ctx, xtracer.ClientSend{})
	})

	resp, err := t.base.RoundTrip(out)

	t.tracer.Scoped(context.WithoutCancel(ctx), func(ctx context.Context) {
		if err != nil {
			t.tracer.RecordBinary(ctx, "error", err.Error())
		} else {
			t.tracer.RecordBinary(ctx, BinaryHTTPStatusCode, strconv.Itoa(resp.StatusCode))
		}
		t.tracer.RecordAnnotation(ctx, xtracer.ClientRecv{})
	})
	return resp, err
}

var _ http.RoundTripper = (*Transport)(nil)
