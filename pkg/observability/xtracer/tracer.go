package xtracer

import (
	"context"

	"github.com/omeyang/xzipkin/pkg/context/xctx"
	"github.com/omeyang/xzipkin/pkg/util/xoption"
)

// Tracer 追踪器接口
//
// 所有方法都以 context 作为第一个参数，"当前标识"随 context 传递。
// 记录类方法为 fire-and-forget，ctx 上没有绑定标识时静默忽略。
type Tracer interface {
	// CreateRootID 生成新的根标识，并给出采样决策
	CreateRootID(ctx context.Context) ID

	// CreateChildID 以 ctx 当前标识为父生成子标识；ctx 无标识时等同 CreateRootID
	CreateChildID(ctx context.Context) ID

	// ID 返回 ctx 上绑定的当前标识
	ID(ctx context.Context) (ID, bool)

	// SetID 返回绑定了 id 的派生 context
	SetID(ctx context.Context, id ID) context.Context

	// Scoped 在作用域内执行 fn，fn 内通过 SetID 建立的绑定不会泄漏到作用域外
	Scoped(ctx context.Context, fn func(ctx context.Context))

	RecordServiceName(ctx context.Context, name string)
	RecordRPC(ctx context.Context, name string)
	RecordBinary(ctx context.Context, key, value string)
	RecordAnnotation(ctx context.Context, a Annotation)
}

type tracer struct {
	recorder Recorder
	opts     options
}

// New 创建追踪器
//
// recorder 为 nil 时使用 NopRecorder。
func New(recorder Recorder, opts ...Option) Tracer {
	if recorder == nil {
		recorder = NopRecorder()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &tracer{recorder: recorder, opts: o}
}

func (t *tracer) CreateRootID(ctx context.Context) ID {
	if ctx == nil {
		ctx = context.Background()
	}
	spanID := xctx.GenerateSpanID()
	traceID := spanID
	if t.opts.traceID128Bit {
		traceID = xctx.GenerateTraceID()
	}

	// 采样器可能按 trace_id 做一致性采样，先把新 trace_id 放入 context
	sctx, err := xctx.WithTraceID(ctx, traceID)
	if err != nil {
		sctx = ctx
	}

	return NewID(IDConfig{
		TraceID:  xoption.Some(traceID),
		ParentID: xoption.None[string](),
		SpanID:   spanID,
		Sampled:  xoption.Some(t.opts.sampler.ShouldSample(sctx)),
		Flags:    xoption.None[int](),
	})
}

func (t *tracer) CreateChildID(ctx context.Context) ID {
	parent, ok := IDFromContext(ctx)
	if !ok {
		return t.CreateRootID(ctx)
	}
	return NewID(IDConfig{
		TraceID:  parent.TraceID().Or(xoption.Some(parent.SpanID())),
		ParentID: xoption.Some(parent.SpanID()),
		SpanID:   xctx.GenerateSpanID(),
		Sampled:  parent.Sampled(),
		Flags:    parent.Flags(),
	})
}

func (t *tracer) ID(ctx context.Context) (ID, bool) {
	return IDFromContext(ctx)
}

func (t *tracer) SetID(ctx context.Context, id ID) context.Context {
	return ContextWithID(ctx, id)
}

func (t *tracer) Scoped(ctx context.Context, fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	// context 不可变：fn 内的 SetID 只产生派生 context，天然不会泄漏
	fn(ctx)
}

func (t *tracer) RecordServiceName(ctx context.Context, name string) {
	t.record(ctx, ServiceName{Name: name})
}

func (t *tracer) RecordRPC(ctx context.Context, name string) {
	t.record(ctx, RPC{Name: name})
}

func (t *tracer) RecordBinary(ctx context.Context, key, value string) {
	t.record(ctx, Binary{Key: key, Value: value})
}

func (t *tracer) RecordAnnotation(ctx context.Context, a Annotation) {
	if a == nil {
		return
	}
	if la, ok := a.(LocalAddr); ok && la.Host == "" {
		la.Host = t.opts.localAddrHost
		a = la
	}
	t.record(ctx, a)
}

func (t *tracer) record(ctx context.Context, a Annotation) {
	id, ok := IDFromContext(ctx)
	if !ok {
		return
	}
	if !id.Sampled().OrElse(true) && !id.IsDebug() {
		return
	}
	t.recorder.Record(ctx, Record{
		ID:         id,
		Timestamp:  t.opts.clock(),
		Annotation: a,
	})
}

// SyncToContext 把 id 的字符串形式写入 xctx，供日志等组件读取
func SyncToContext(ctx context.Context, id ID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	out, err := xctx.WithTrace(ctx, xctx.Trace{
		TraceID:      id.TraceID().OrElse(""),
		SpanID:       id.SpanID(),
		ParentSpanID: id.ParentID().OrElse(""),
		Sampled:      id.sampledString(),
		Flags:        id.flagsString(),
	})
	if err != nil {
		return ctx
	}
	return out
}
