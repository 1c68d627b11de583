package xmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/omeyang/xzipkin/pkg/context/xctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestOTelObserver_MetricsOnly(t *testing.T) {
	mp, reader := newTestMeter(t)
	obs, err := NewOTelObserver(WithMeterProvider(mp), WithInstrumentationName("test"))
	require.NoError(t, err)

	parent := context.Background()
	ctx, span := obs.Start(parent, SpanOptions{Component: "xtrace", Operation: "GET", Kind: KindServer})
	assert.False(t, trace.SpanContextFromContext(ctx).IsValid(), "未配置 TracerProvider 时不创建 span")

	span.End(Result{Attrs: []Attr{Int(AttrStatusCode, 201)}})
	span.End(Result{Err: errors.New("ignored")})

	metrics := collect(t, reader)
	require.Contains(t, metrics, metricRequestTotal)
	require.Contains(t, metrics, metricRequestDuration)

	sum, ok := metrics[metricRequestTotal].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1, "End 幂等")
	dp := sum.DataPoints[0]
	assert.Equal(t, int64(1), dp.Value)

	status, _ := dp.Attributes.Value(attribute.Key("status"))
	assert.Equal(t, "ok", status.AsString())
	code, _ := dp.Attributes.Value(attribute.Key("code"))
	assert.Equal(t, "201", code.AsString())
	op, _ := dp.Attributes.Value(attribute.Key("operation"))
	assert.Equal(t, "GET", op.AsString())
}

func TestOTelObserver_DefaultsUnknown(t *testing.T) {
	mp, reader := newTestMeter(t)
	obs, err := NewOTelObserver(WithMeterProvider(mp), nil)
	require.NoError(t, err)

	_, span := obs.Start(nil, SpanOptions{}) //nolint:staticcheck // nil ctx 兜底
	span.End(Result{Err: errors.New("boom")})

	sum := collect(t, reader)[metricRequestTotal].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	attrs := sum.DataPoints[0].Attributes
	comp, _ := attrs.Value("component")
	assert.Equal(t, unknownComponent, comp.AsString())
	status, _ := attrs.Value("status")
	assert.Equal(t, "error", status.AsString())
	_, hasCode := attrs.Value("code")
	assert.False(t, hasCode)
}

func TestOTelObserver_SpanParentFromXctx(t *testing.T) {
	mp, _ := newTestMeter(t)
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	obs, err := NewOTelObserver(WithMeterProvider(mp), WithTracerProvider(tp))
	require.NoError(t, err)

	ctx, _ := xctx.WithTrace(context.Background(), xctx.Trace{
		TraceID: "463ac35c9f6413ad", SpanID: "a2fb4a1d1a96d312", Sampled: "1",
	})
	ctx, span := obs.Start(ctx, SpanOptions{
		Component: "xtrace", Operation: "POST", Kind: KindServer,
		Attrs: []Attr{String("service", "checkout")},
	})
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	span.End(Result{Status: StatusError, Attrs: []Attr{Int(AttrStatusCode, 500)}})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "POST", got.Name)
	assert.Equal(t, trace.SpanKindServer, got.SpanKind)
	assert.Equal(t, "0000000000000000463ac35c9f6413ad", got.SpanContext.TraceID().String())
	assert.Equal(t, "a2fb4a1d1a96d312", got.Parent.SpanID().String())
	assert.True(t, got.Parent.IsRemote())
	assert.True(t, got.Parent.IsSampled())
	assert.Equal(t, codes.Error, got.Status.Code)
	assert.Equal(t, "request failed", got.Status.Description)
}

func TestParentFromXctx(t *testing.T) {
	t.Run("缺字段不变", func(t *testing.T) {
		ctx, _ := xctx.WithTraceID(context.Background(), "463ac35c9f6413ad")
		assert.Equal(t, ctx, parentFromXctx(ctx))
	})

	t.Run("非法十六进制不变", func(t *testing.T) {
		ctx, _ := xctx.WithTrace(context.Background(), xctx.Trace{TraceID: "zz", SpanID: "a2fb4a1d1a96d312"})
		assert.False(t, trace.SpanContextFromContext(parentFromXctx(ctx)).IsValid())
	})

	t.Run("未采样", func(t *testing.T) {
		ctx, _ := xctx.WithTrace(context.Background(), xctx.Trace{
			TraceID: "0af7651916cd43dd8448eb211c80319c", SpanID: "b7ad6b7169203331", Sampled: "0",
		})
		sc := trace.SpanContextFromContext(parentFromXctx(ctx))
		require.True(t, sc.IsValid())
		assert.False(t, sc.IsSampled())
		assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", sc.TraceID().String())
	})
}
