package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/omeyang/xzipkin/pkg/observability/xlog"
	"github.com/omeyang/xzipkin/pkg/observability/xsampling"
	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
)

// telemetry 持有追踪器及其导出链路
type telemetry struct {
	tracer   xtracer.Tracer
	provider *sdktrace.TracerProvider
}

// newExporter 按配置创建 span 导出器，none 时返回 nil
func newExporter(ctx context.Context, s ExporterSettings) (sdktrace.SpanExporter, error) {
	switch s.Type {
	case exporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint())
	case exporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(s.Endpoint)}
		if s.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, nil
	}
}

// newTelemetry 组装追踪器：注解总是写入日志（log_annotations 开启时），
// 配置了导出器时同时转换为 OTel span 导出。
func newTelemetry(ctx context.Context, s TracingSettings, logger xlog.Logger) (*telemetry, error) {
	sampler, err := xsampling.FromConfig(s.Sampler)
	if err != nil {
		return nil, err
	}

	var recorders []xtracer.Recorder
	if s.LogAnnotations {
		recorders = append(recorders, xtracer.NewLogRecorder(logger))
	}

	t := &telemetry{}
	exporter, err := newExporter(ctx, s.Exporter)
	if err != nil {
		return nil, fmt.Errorf("xzipkind: create %s exporter: %w", s.Exporter.Type, err)
	}
	if exporter != nil {
		res := resource.NewSchemaless(attribute.String("service.name", s.ServiceName))
		t.provider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		recorders = append(recorders, xtracer.NewOTelRecorder(t.provider, xtracer.WithMaxPendingSpans(s.MaxPendingSpans)))
	}

	recorder := xtracer.NopRecorder()
	if len(recorders) > 0 {
		recorder = xtracer.MultiRecorder(recorders...)
	}

	opts := []xtracer.Option{
		xtracer.WithSampler(sampler),
		xtracer.WithTraceID128Bit(s.TraceID128Bit),
	}
	if s.LocalHost != "" {
		opts = append(opts, xtracer.WithLocalHost(s.LocalHost))
	}
	t.tracer = xtracer.New(recorder, opts...)
	return t, nil
}

// Shutdown 刷新并关闭导出链路
func (t *telemetry) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
