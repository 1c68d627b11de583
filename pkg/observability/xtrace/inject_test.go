package xtrace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
	"github.com/omeyang/xzipkin/pkg/util/xoption"
)

func TestInjectIDToHeader(t *testing.T) {
	tests := []struct {
		name string
		id   xtracer.ID
		want map[string]string
	}{
		{
			name: "全部字段",
			id: xtracer.NewID(xtracer.IDConfig{
				TraceID: xoption.Some("t"), ParentID: xoption.Some("p"), SpanID: "s",
				Sampled: xoption.Some(true), Flags: xoption.Some(1),
			}),
			want: map[string]string{HeaderTraceID: "t", HeaderSpanID: "s", HeaderParentSpanID: "p", HeaderSampled: "1", HeaderFlags: "1"},
		},
		{
			name: "可选字段缺失",
			id:   xtracer.NewID(xtracer.IDConfig{SpanID: "s", Sampled: xoption.Some(false), Flags: xoption.Some(0)}),
			want: map[string]string{HeaderTraceID: "s", HeaderSpanID: "s", HeaderSampled: "0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := make(http.Header)
			InjectIDToHeader(h, tt.id)
			assert.Len(t, h, len(tt.want))
			for k, v := range tt.want {
				assert.Equal(t, v, h.Get(k), k)
			}
		})
	}

	t.Run("零值与nil Header", func(t *testing.T) {
		h := make(http.Header)
		InjectIDToHeader(h, xtracer.ID{})
		assert.Empty(t, h)
		assert.NotPanics(t, func() { InjectIDToHeader(nil, xtracer.NewID(xtracer.IDConfig{SpanID: "s"})) })
	})
}

func TestInjectToRequest(t *testing.T) {
	tracer := xtracer.New(nil)
	id := xtracer.NewID(xtracer.IDConfig{TraceID: xoption.Some("t"), SpanID: "s"})
	ctx := tracer.SetID(context.Background(), id)

	req := &http.Request{}
	InjectToRequest(ctx, req)
	require.NotNil(t, req.Header)
	assert.Equal(t, "s", req.Header.Get(HeaderSpanID))

	empty := httptest.NewRequest(http.MethodGet, "/", nil)
	InjectToRequest(context.Background(), empty)
	assert.Empty(t, empty.Header.Get(HeaderSpanID))

	assert.NotPanics(t, func() { InjectToRequest(ctx, nil) })
}

func TestInjectRoundTrip(t *testing.T) {
	// 注入的头经 ExtractID 还原后保持一致
	tracer := xtracer.New(nil)
	orig := xtracer.NewID(xtracer.IDConfig{
		TraceID: xoption.Some("463ac35c9f6413ad"), ParentID: xoption.Some("0020000000000001"),
		SpanID: "a2fb4a1d1a96d312", Sampled: xoption.Some(true), Flags: xoption.Some(1),
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	InjectToRequest(tracer.SetID(context.Background(), orig), req)

	got := ExtractID(context.Background(), tracer, req)
	assert.Equal(t, orig, got)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTransport(t *testing.T) {
	rec := xtracer.NewMemoryRecorder()
	tracer := xtracer.New(rec)
	parent := xtracer.NewID(xtracer.IDConfig{TraceID: xoption.Some("t"), SpanID: "parent", Sampled: xoption.Some(true)})
	ctx := tracer.SetID(context.Background(), parent)

	var outbound http.Header
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		outbound = r.Header.Clone()
		return &http.Response{StatusCode: http.StatusAccepted, Body: http.NoBody, Request: r}, nil
	})

	client := &http.Client{Transport: NewTransport(tracer, base, WithServiceName("gateway"))}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://users/api", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, "t", outbound.Get(HeaderTraceID))
	assert.Equal(t, "parent", outbound.Get(HeaderParentSpanID))
	childSpan := outbound.Get(HeaderSpanID)
	assert.NotEqual(t, "parent", childSpan)
	assert.Empty(t, req.Header.Get(HeaderSpanID), "原请求不应被修改")

	records := rec.BySpan(childSpan)
	require.Len(t, records, 6)
	assert.Equal(t, xtracer.ServiceName{Name: "gateway"}, records[0].Annotation)
	assert.Equal(t, xtracer.RPC{Name: "POST"}, records[1].Annotation)
	assert.Equal(t, xtracer.KindClientSend, records[3].Annotation.Kind())
	assert.Equal(t, xtracer.Binary{Key: BinaryHTTPStatusCode, Value: "202"}, records[4].Annotation)
	assert.Equal(t, xtracer.KindClientRecv, records[5].Annotation.Kind())

	t.Run("传输错误", func(t *testing.T) {
		rec.Reset()
		failing := NewTransport(tracer, roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial failed")
		}))
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://users/api", nil)
		_, err := failing.RoundTrip(req)
		assert.Error(t, err)
		records := rec.Records()
		require.Len(t, records, 6)
		assert.Equal(t, xtracer.Binary{Key: "error", Value: "dial failed"}, records[4].Annotation)
	})
}
