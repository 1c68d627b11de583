package xtracer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xzipkin/pkg/context/xctx"
	"github.com/omeyang/xzipkin/pkg/observability/xsampling"
	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
	"github.com/omeyang/xzipkin/pkg/util/xoption"
)

func TestCreateRootID(t *testing.T) {
	t.Run("默认64位trace id等于span id", func(t *testing.T) {
		tr := xtracer.New(nil)
		id := tr.CreateRootID(context.Background())

		require.Len(t, id.SpanID(), 16)
		assert.Equal(t, xoption.Some(id.SpanID()), id.TraceID())
		assert.True(t, id.ParentID().IsEmpty())
		assert.Equal(t, xoption.Some(true), id.Sampled())
		assert.True(t, id.Flags().IsEmpty())
	})

	t.Run("128位trace id", func(t *testing.T) {
		tr := xtracer.New(nil, xtracer.WithTraceID128Bit(true))
		id := tr.CreateRootID(context.Background())

		traceID, ok := id.TraceID().Get()
		require.True(t, ok)
		assert.Len(t, traceID, 32)
		assert.NotEqual(t, id.SpanID(), traceID)
	})

	t.Run("采样器决定sampled", func(t *testing.T) {
		tr := xtracer.New(nil, xtracer.WithSampler(xsampling.Never()))
		assert.Equal(t, xoption.Some(false), tr.CreateRootID(context.Background()).Sampled())
	})

	t.Run("采样器能看到新trace id", func(t *testing.T) {
		var seen string
		sampler := samplerFunc(func(ctx context.Context) bool {
			seen = xctx.TraceID(ctx)
			return true
		})
		tr := xtracer.New(nil, xtracer.WithSampler(sampler))
		id := tr.CreateRootID(nil)
		assert.Equal(t, id.TraceID().OrElse(""), seen)
	})
}

type samplerFunc func(ctx context.Context) bool

func (f samplerFunc) ShouldSample(ctx context.Context) bool { return f(ctx) }

func TestCreateChildID(t *testing.T) {
	tr := xtracer.New(nil)
	parent := xtracer.NewID(xtracer.IDConfig{
		TraceID: xoption.Some("463ac35c9f6413ad"),
		SpanID:  "a2fb4a1d1a96d312",
		Sampled: xoption.Some(true),
		Flags:   xoption.Some(1),
	})
	ctx := tr.SetID(context.Background(), parent)

	child := tr.CreateChildID(ctx)
	assert.Equal(t, parent.TraceID(), child.TraceID())
	assert.Equal(t, xoption.Some(parent.SpanID()), child.ParentID())
	assert.NotEqual(t, parent.SpanID(), child.SpanID())
	assert.Equal(t, parent.Sampled(), child.Sampled())
	assert.Equal(t, parent.Flags(), child.Flags())

	t.Run("无当前标识时生成根标识", func(t *testing.T) {
		root := tr.CreateChildID(context.Background())
		assert.True(t, root.ParentID().IsEmpty())
	})
}

func TestSetIDAndScoped(t *testing.T) {
	tr := xtracer.New(nil)
	_, ok := tr.ID(context.Background())
	assert.False(t, ok)

	outer := xtracer.NewID(xtracer.IDConfig{SpanID: "outer"})
	inner := xtracer.NewID(xtracer.IDConfig{SpanID: "inner"})
	ctx := tr.SetID(context.Background(), outer)

	tr.Scoped(ctx, func(ctx context.Context) {
		got, ok := tr.ID(ctx)
		require.True(t, ok)
		assert.Equal(t, "outer", got.SpanID())

		ctx = tr.SetID(ctx, inner)
		got, _ = tr.ID(ctx)
		assert.Equal(t, "inner", got.SpanID())
	})

	got, _ := tr.ID(ctx)
	assert.Equal(t, "outer", got.SpanID(), "作用域内的绑定不应泄漏")

	assert.NotPanics(t, func() { tr.Scoped(nil, nil) })
}

func TestRecord(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := xtracer.NewMemoryRecorder()
	tr := xtracer.New(rec,
		xtracer.WithClock(func() time.Time { return now }),
		xtracer.WithLocalHost("10.0.0.1"),
	)

	id := xtracer.NewID(xtracer.IDConfig{TraceID: xoption.Some("t"), SpanID: "s"})
	ctx := tr.SetID(context.Background(), id)

	tr.RecordServiceName(ctx, "svc")
	tr.RecordRPC(ctx, "GET")
	tr.RecordBinary(ctx, "http.url", "http://x/")
	tr.RecordAnnotation(ctx, xtracer.ServerRecv{})
	tr.RecordAnnotation(ctx, xtracer.LocalAddr{Port: 8080})
	tr.RecordAnnotation(ctx, nil)

	records := rec.Records()
	require.Len(t, records, 5)
	assert.Equal(t, xtracer.ServiceName{Name: "svc"}, records[0].Annotation)
	assert.Equal(t, xtracer.RPC{Name: "GET"}, records[1].Annotation)
	assert.Equal(t, xtracer.Binary{Key: "http.url", Value: "http://x/"}, records[2].Annotation)
	assert.Equal(t, xtracer.ServerRecv{}, records[3].Annotation)
	assert.Equal(t, xtracer.LocalAddr{Host: "10.0.0.1", Port: 8080}, records[4].Annotation)
	for _, r := range records {
		assert.Equal(t, now, r.Timestamp)
		assert.Equal(t, "s", r.ID.SpanID())
	}

	t.Run("无绑定标识时忽略", func(t *testing.T) {
		rec.Reset()
		tr.RecordRPC(context.Background(), "GET")
		assert.Zero(t, rec.Len())
	})
}

func TestRecord_SamplingFilter(t *testing.T) {
	tests := []struct {
		name    string
		sampled xoption.Option[bool]
		flags   xoption.Option[int]
		want    int
	}{
		{name: "未决", sampled: xoption.None[bool](), want: 1},
		{name: "采样", sampled: xoption.Some(true), want: 1},
		{name: "不采样", sampled: xoption.Some(false), want: 0},
		{name: "不采样但debug", sampled: xoption.Some(false), flags: xoption.Some(1), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := xtracer.NewMemoryRecorder()
			tr := xtracer.New(rec)
			ctx := tr.SetID(context.Background(), xtracer.NewID(xtracer.IDConfig{
				SpanID: "s", Sampled: tt.sampled, Flags: tt.flags,
			}))
			tr.RecordAnnotation(ctx, xtracer.ServerRecv{})
			assert.Equal(t, tt.want, rec.Len())
		})
	}
}

func TestSyncToContext(t *testing.T) {
	id := xtracer.NewID(xtracer.IDConfig{
		TraceID:  xoption.Some("t"),
		ParentID: xoption.Some("p"),
		SpanID:   "s",
		Sampled:  xoption.Some(false),
		Flags:    xoption.Some(1),
	})
	ctx := xtracer.SyncToContext(context.Background(), id)
	assert.Equal(t, xctx.Trace{TraceID: "t", SpanID: "s", ParentSpanID: "p", Sampled: "0", Flags: "1"}, xctx.GetTrace(ctx))

	bare := xtracer.SyncToContext(nil, xtracer.NewID(xtracer.IDConfig{SpanID: "s"}))
	assert.Equal(t, xctx.Trace{SpanID: "s"}, xctx.GetTrace(bare))
}

func TestConcurrentBindingIsolation(t *testing.T) {
	rec := xtracer.NewMemoryRecorder()
	tr := xtracer.New(rec)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := tr.CreateRootID(context.Background())
			ctx := tr.SetID(context.Background(), id)
			tr.Scoped(ctx, func(ctx context.Context) {
				got, ok := tr.ID(ctx)
				assert.True(t, ok)
				assert.Equal(t, id.SpanID(), got.SpanID(), "goroutine %d", i)
				tr.RecordAnnotation(ctx, xtracer.ServerRecv{})
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, rec.Len())
}
