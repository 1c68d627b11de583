package xmetrics

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/omeyang/xzipkin/pkg/context/xctx"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/omeyang/xzipkin/xmetrics"
	unknownComponent           = "unknown"
	unknownOperation           = "unknown"

	metricRequestTotal    = "xzipkin.server.requests"
	metricRequestDuration = "xzipkin.server.duration"

	// AttrStatusCode Result.Attrs 中的状态码 key，作为 code 维度
	AttrStatusCode = "http.status_code"
)

type otelConfig struct {
	instrumentationName string
	tracerProvider      trace.TracerProvider
	meterProvider       metric.MeterProvider
}

// Option 配置 OTel Observer
type Option func(*otelConfig)

func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithTracerProvider 启用 OTel span 创建
//
// 默认不创建 span：xzipkind 已由 xtracer.OTelRecorder 产出服务端 span，
// 这里再创建会得到重复的 span。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracerProvider = provider
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认 otel.GetMeterProvider()
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := &otelConfig{
		instrumentationName: defaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	meter := cfg.meterProvider.Meter(cfg.instrumentationName)
	total, err := meter.Int64Counter(
		metricRequestTotal,
		metric.WithDescription("traced server requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}
	duration, err := meter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("traced server request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}

	o := &otelObserver{total: total, duration: duration}
	if cfg.tracerProvider != nil {
		o.tracer = cfg.tracerProvider.Tracer(cfg.instrumentationName)
	}
	return o, nil
}

type otelObserver struct {
	tracer   trace.Tracer
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	component := orDefault(opts.Component, unknownComponent)
	operation := orDefault(opts.Operation, unknownOperation)

	s := &otelSpan{
		observer:  o,
		component: component,
		operation: operation,
		start:     time.Now(),
	}
	if o.tracer != nil {
		attrs := make([]attribute.KeyValue, 0, 2+len(opts.Attrs))
		attrs = append(attrs,
			attribute.String("component", component),
			attribute.String("operation", operation),
		)
		attrs = append(attrs, attrsToOTel(opts.Attrs)...)
		ctx, s.span = o.tracer.Start(
			parentFromXctx(ctx),
			operation,
			trace.WithSpanKind(mapSpanKind(opts.Kind)),
			trace.WithAttributes(attrs...),
		)
	}
	s.ctx = ctx
	return ctx, s
}

type otelSpan struct {
	span      trace.Span
	observer  *otelObserver
	ctx       context.Context
	component string
	operation string
	start     time.Time
	endOnce   sync.Once
}

// End 记录结果，多次调用只生效一次
func (s *otelSpan) End(result Result) {
	if s == nil {
		return
	}
	s.endOnce.Do(func() {
		status := resolveStatus(result)
		if s.span != nil {
			endOTelSpan(s.span, status, result)
		}

		// 请求 context 可能已被取消，指标仍需记录
		metricsCtx := context.WithoutCancel(s.ctx)
		attrs := metric.WithAttributes(metricAttrs(s.component, s.operation, status, result.Attrs)...)
		s.observer.total.Add(metricsCtx, 1, attrs)
		s.observer.duration.Record(metricsCtx, time.Since(s.start).Seconds(), attrs)
	})
}

func endOTelSpan(span trace.Span, status Status, result Result) {
	if result.Err != nil {
		span.RecordError(result.Err)
	}
	if status == StatusError {
		msg := "request failed"
		if result.Err != nil {
			msg = result.Err.Error()
		}
		span.SetStatus(codes.Error, msg)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if len(result.Attrs) > 0 {
		span.SetAttributes(attrsToOTel(result.Attrs)...)
	}
	span.End()
}

func resolveStatus(result Result) Status {
	if result.Status != "" {
		return result.Status
	}
	if result.Err != nil {
		return StatusError
	}
	return StatusOK
}

func mapSpanKind(kind Kind) trace.SpanKind {
	switch kind {
	case KindServer:
		return trace.SpanKindServer
	case KindClient:
		return trace.SpanKindClient
	default:
		return trace.SpanKindInternal
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// statusCode 从结果属性中取状态码维度，缺失时为空字符串
func statusCode(attrs []Attr) string {
	v, ok := lookup(attrs, AttrStatusCode)
	if !ok || v == nil {
		return ""
	}
	switch code := v.(type) {
	case int:
		return strconv.Itoa(code)
	case string:
		return code
	default:
		return fmt.Sprint(code)
	}
}

func metricAttrs(component, operation string, status Status, resultAttrs []Attr) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("operation", operation),
		attribute.String("status", string(status)),
	}
	if code := statusCode(resultAttrs); code != "" {
		attrs = append(attrs, attribute.String("code", code))
	}
	return attrs
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	converted := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if attr.Key == "" || attr.Value == nil {
			continue
		}
		converted = append(converted, toKeyValue(attr))
	}
	return converted
}

func toKeyValue(attr Attr) attribute.KeyValue {
	switch v := attr.Value.(type) {
	case string:
		return attribute.String(attr.Key, v)
	case bool:
		return attribute.Bool(attr.Key, v)
	case int:
		return attribute.Int(attr.Key, v)
	case int64:
		return attribute.Int64(attr.Key, v)
	case uint64:
		if v <= math.MaxInt64 {
			return attribute.Int64(attr.Key, int64(v))
		}
		return attribute.String(attr.Key, strconv.FormatUint(v, 10))
	case float64:
		return attribute.Float64(attr.Key, v)
	case time.Duration:
		return attribute.Int64(attr.Key, v.Nanoseconds())
	default:
		return attribute.String(attr.Key, fmt.Sprint(v))
	}
}

// parentFromXctx 以 xctx 中的 B3 标识作为远程父 span
//
// ctx 已携带有效 OTel span 时不做处理。64-bit trace id 左侧补零到 128-bit。
func parentFromXctx(ctx context.Context) context.Context {
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	traceHex := xctx.TraceID(ctx)
	spanHex := xctx.SpanID(ctx)
	if traceHex == "" || spanHex == "" {
		return ctx
	}
	if len(traceHex) < 2*xctx.TraceIDSize {
		traceHex = strings.Repeat("0", 2*xctx.TraceIDSize-len(traceHex)) + traceHex
	}
	traceID, err := trace.TraceIDFromHex(traceHex)
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(spanHex)
	if err != nil {
		return ctx
	}

	var flags trace.TraceFlags
	if xctx.Sampled(ctx) == "1" {
		flags = trace.FlagsSampled
	}
	return trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}))
}
