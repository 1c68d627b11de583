package xtracer

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xzipkin/xtracer"
	unknownSpanName            = "unknown"

	// DefaultMaxPendingSpans 未结束 span 的默认上限
	DefaultMaxPendingSpans = 10000

	// 与中间件记录的二进制注解键一致
	binaryKeyStatusCode = "http.status_code"

	attrZipkinTraceID  = "zipkin.trace_id"
	attrZipkinSpanID   = "zipkin.span_id"
	attrZipkinParentID = "zipkin.parent_id"
	attrServiceName    = "zipkin.service_name"
	attrLocalHost      = "zipkin.local.host"
	attrLocalPort      = "zipkin.local.port"
)

// OTelRecorder 将注解序列转换为 OpenTelemetry span
//
// ServerRecv/ClientSend 开启 span，ServerSend/ClientRecv 结束 span。
// B3 中调用方的客户端 span 与被调方的服务端 span 共用同一个 span id，
// 因此同一 (trace id, span id) 下按角色分别维护服务端与客户端两个 span。
//
// ServiceName 标志一组新注解的开始：其后到 ServerRecv/ClientSend 之前的
// RPC/Binary/LocalAddr 暂存为待开启 span 的名称与属性，角色确定时一并写入。
// 没有暂存注解时，Binary/LocalAddr/Message/RPC 写入最近开启且未结束的 span。
//
// 未结束的 span 按 LRU 保留，超过上限时最久未更新的 span 以错误状态结束，
// 避免结束注解丢失（如进程内中断的请求）导致内存持续增长。
type OTelRecorder struct {
	tracer trace.Tracer

	mu      sync.Mutex
	pending *lru.Cache[spanKey, *spanGroup]
}

// OTelRecorderOption 配置 OTelRecorder
type OTelRecorderOption func(*otelRecorderOptions)

type otelRecorderOptions struct {
	maxPending int
}

// WithMaxPendingSpans 设置未结束 span 的上限，非正值被忽略。默认 DefaultMaxPendingSpans。
func WithMaxPendingSpans(n int) OTelRecorderOption {
	return func(o *otelRecorderOptions) {
		if n > 0 {
			o.maxPending = n
		}
	}
}

type spanKey struct {
	traceID string
	spanID  string
}

// spanRole 同一 span id 下的 span 角色
type spanRole int

const (
	roleServer spanRole = iota
	roleClient
	roleCount
)

func (r spanRole) kind() trace.SpanKind {
	if r == roleClient {
		return trace.SpanKindClient
	}
	return trace.SpanKindServer
}

// stagedSpan 角色确定前收到的名称与属性
type stagedSpan struct {
	name  string
	attrs []attribute.KeyValue
}

// spanGroup 共用同一 (trace id, span id) 的 span
type spanGroup struct {
	staged *stagedSpan
	spans  [roleCount]trace.Span
	// active 已开启未结束的角色，按开启顺序
	active []spanRole
}

// NewOTelRecorder 创建 OTelRecorder，tp 为 nil 时使用全局 TracerProvider
func NewOTelRecorder(tp trace.TracerProvider, opts ...OTelRecorderOption) *OTelRecorder {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	o := otelRecorderOptions{maxPending: DefaultMaxPendingSpans}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	// size 恒为正，NewWithEvict 不会失败
	pending, _ := lru.NewWithEvict(o.maxPending, evictPending)
	return &OTelRecorder{
		tracer:  tp.Tracer(defaultInstrumentationName),
		pending: pending,
	}
}

// evictPending 淘汰回调；Remove 也会触发，正常结束的 span 此时已清空
func evictPending(_ spanKey, g *spanGroup) {
	for i, sp := range g.spans {
		if sp == nil {
			continue
		}
		sp.SetStatus(codes.Error, "xtracer: span evicted before completion")
		sp.End()
		g.spans[i] = nil
	}
	g.active = nil
}

// Record 实现 Recorder
func (r *OTelRecorder) Record(ctx context.Context, rec Record) {
	if ctx == nil {
		ctx = context.Background()
	}
	key := spanKey{traceID: rec.ID.TraceID().OrElse(""), spanID: rec.ID.SpanID()}

	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.pending.Get(key)
	if !ok {
		g = &spanGroup{}
		r.pending.Add(key, g)
	}

	switch a := rec.Annotation.(type) {
	case ServiceName:
		g.staged = &stagedSpan{}
		g.setAttrs(attribute.String(attrServiceName, a.Name))
	case RPC:
		if sp := g.current(); sp != nil {
			sp.SetName(a.Name)
		} else {
			g.stage().name = a.Name
		}
	case Binary:
		g.setAttrs(attribute.String(a.Key, a.Value))
		if sp := g.current(); sp != nil && a.Key == binaryKeyStatusCode {
			if code, err := strconv.Atoi(a.Value); err == nil && code >= 500 {
				sp.SetStatus(codes.Error, "http status "+a.Value)
			}
		}
	case LocalAddr:
		g.setAttrs(attribute.String(attrLocalHost, a.Host), attribute.Int(attrLocalPort, a.Port))
	case Message:
		if sp := g.current(); sp != nil {
			sp.AddEvent(a.Value, trace.WithTimestamp(rec.Timestamp))
		}
	case ServerRecv:
		r.start(ctx, g, rec, roleServer)
	case ClientSend:
		r.start(ctx, g, rec, roleClient)
	case ServerSend:
		r.end(key, g, rec, roleServer)
	case ClientRecv:
		r.end(key, g, rec, roleClient)
	}
}

// Pending 返回尚有未结束 span 的 (trace id, span id) 数量
func (r *OTelRecorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.Len()
}

func (r *OTelRecorder) start(ctx context.Context, g *spanGroup, rec Record, role spanRole) {
	if g.spans[role] != nil {
		return
	}
	staged := g.stage()
	g.staged = nil

	name := staged.name
	if name == "" {
		name = unknownSpanName
	}

	attrs := make([]attribute.KeyValue, 0, len(staged.attrs)+3)
	attrs = append(attrs,
		attribute.String(attrZipkinTraceID, rec.ID.TraceID().OrElse("")),
		attribute.String(attrZipkinSpanID, rec.ID.SpanID()),
	)
	rec.ID.ParentID().IfPresent(func(parent string) {
		attrs = append(attrs, attribute.String(attrZipkinParentID, parent))
	})
	attrs = append(attrs, staged.attrs...)

	opts := []trace.SpanStartOption{
		trace.WithSpanKind(role.kind()),
		trace.WithTimestamp(rec.Timestamp),
		trace.WithAttributes(attrs...),
	}
	parentCtx, ok := remoteParent(ctx, rec.ID)
	if !ok {
		parentCtx = ctx
		opts = append(opts, trace.WithNewRoot())
	}
	_, g.spans[role] = r.tracer.Start(parentCtx, name, opts...)
	g.active = append(g.active, role)
}

func (r *OTelRecorder) end(key spanKey, g *spanGroup, rec Record, role spanRole) {
	if sp := g.spans[role]; sp != nil {
		sp.End(trace.WithTimestamp(rec.Timestamp))
		g.spans[role] = nil
		g.active = slices.DeleteFunc(g.active, func(r spanRole) bool { return r == role })
	}
	if len(g.active) == 0 {
		g.staged = nil
		r.pending.Remove(key)
	}
}

// current 返回接收无角色注解的 span；存在暂存注解时返回 nil
func (g *spanGroup) current() trace.Span {
	if g.staged != nil || len(g.active) == 0 {
		return nil
	}
	return g.spans[g.active[len(g.active)-1]]
}

func (g *spanGroup) stage() *stagedSpan {
	if g.staged == nil {
		g.staged = &stagedSpan{}
	}
	return g.staged
}

func (g *spanGroup) setAttrs(kv ...attribute.KeyValue) {
	if sp := g.current(); sp != nil {
		sp.SetAttributes(kv...)
		return
	}
	g.stage().attrs = append(g.stage().attrs, kv...)
}

// remoteParent 以 B3 父 span 构造远程父 SpanContext，使 OTel trace id 与 B3 一致
func remoteParent(ctx context.Context, id ID) (context.Context, bool) {
	parent, ok := id.ParentID().Get()
	if !ok {
		return nil, false
	}
	tid, err := trace.TraceIDFromHex(padTraceID(id.TraceID().OrElse("")))
	if err != nil {
		return nil, false
	}
	sid, err := trace.SpanIDFromHex(parent)
	if err != nil {
		return nil, false
	}
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(ctx, sc), true
}

// padTraceID 将 64-bit trace id 左补零为 128-bit
func padTraceID(s string) string {
	if len(s) == 16 {
		return strings.Repeat("0", 16) + s
	}
	return s
}

var _ Recorder = (*OTelRecorder)(nil)
