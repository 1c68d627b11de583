package xtrace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
	"github.com/omeyang/xzipkin/pkg/util/xoption"
)

const testMethod = "/orders.v1.OrderService/Create"

func TestGRPCUnaryServerInterceptor(t *testing.T) {
	tests := []struct {
		name       string
		md         metadata.MD
		handlerErr error
		wantSpan   string
		wantCode   string
	}{
		{name: "延续追踪", md: metadata.Pairs("x-b3-traceid", "abc", "x-b3-spanid", "123"), wantSpan: "123", wantCode: "OK"},
		{name: "根追踪", md: metadata.MD{}, wantCode: "OK"},
		{name: "handler错误", md: metadata.Pairs("x-b3-traceid", "abc", "x-b3-spanid", "456"),
			handlerErr: status.Error(codes.NotFound, "missing"), wantSpan: "456", wantCode: "NotFound"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := xtracer.NewMemoryRecorder()
			tracer := xtracer.New(rec)
			interceptor := GRPCUnaryServerInterceptor(tracer, WithServiceName("orders"), WithPort(9090))

			ctx := metadata.NewIncomingContext(context.Background(), tt.md)
			var seen xtracer.ID
			_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: testMethod},
				func(ctx context.Context, req any) (any, error) {
					seen, _ = xtracer.IDFromContext(ctx)
					return nil, tt.handlerErr
				})
			assert.Equal(t, tt.handlerErr, err)
			if tt.wantSpan != "" {
				assert.Equal(t, tt.wantSpan, seen.SpanID())
			}

			records := rec.BySpan(seen.SpanID())
			require.Len(t, records, 7)
			assert.Equal(t, xtracer.RPC{Name: testMethod}, records[1].Annotation)
			assert.Equal(t, xtracer.Binary{Key: BinaryGRPCMethod, Value: testMethod}, records[2].Annotation)
			assert.Equal(t, xtracer.LocalAddr{Port: 9090}, records[4].Annotation)
			assert.Equal(t, xtracer.Binary{Key: BinaryGRPCStatusCode, Value: tt.wantCode}, records[5].Annotation)
		})
	}

	t.Run("nil tracer", func(t *testing.T) {
		interceptor := GRPCUnaryServerInterceptor(nil)
		resp, err := interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: testMethod},
			func(ctx context.Context, req any) (any, error) { return req, nil })
		require.NoError(t, err)
		assert.Equal(t, "req", resp)
	})
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context { return f.ctx }

func TestGRPCStreamServerInterceptor(t *testing.T) {
	rec := xtracer.NewMemoryRecorder()
	tracer := xtracer.New(rec)
	interceptor := GRPCStreamServerInterceptor(tracer)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-b3-traceid", "abc", "x-b3-spanid", "789"))
	err := interceptor(nil, &fakeServerStream{ctx: ctx}, &grpc.StreamServerInfo{FullMethod: testMethod},
		func(srv any, ss grpc.ServerStream) error {
			id, ok := xtracer.IDFromContext(ss.Context())
			assert.True(t, ok)
			assert.Equal(t, "789", id.SpanID())
			return nil
		})
	require.NoError(t, err)
	assert.Len(t, rec.BySpan("789"), 7)
}

func TestGRPCClientInterceptors(t *testing.T) {
	tracer := xtracer.New(nil)
	parent := xtracer.NewID(xtracer.IDConfig{TraceID: xoption.Some("t"), SpanID: "parent", Sampled: xoption.Some(true)})
	ctx := tracer.SetID(context.Background(), parent)

	t.Run("unary", func(t *testing.T) {
		var md metadata.MD
		err := GRPCUnaryClientInterceptor(tracer)(ctx, testMethod, nil, nil, nil,
			func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
				md, _ = metadata.FromOutgoingContext(ctx)
				return nil
			})
		require.NoError(t, err)
		assert.Equal(t, []string{"t"}, md.Get("x-b3-traceid"))
		assert.Equal(t, []string{"parent"}, md.Get("x-b3-parentspanid"))
		assert.Equal(t, []string{"1"}, md.Get("x-b3-sampled"))
		require.Len(t, md.Get("x-b3-spanid"), 1)
		assert.NotEqual(t, "parent", md.Get("x-b3-spanid")[0])
	})

	t.Run("stream", func(t *testing.T) {
		var md metadata.MD
		_, err := GRPCStreamClientInterceptor(tracer)(ctx, &grpc.StreamDesc{}, nil, testMethod,
			func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
				md, _ = metadata.FromOutgoingContext(ctx)
				return nil, nil
			})
		require.NoError(t, err)
		assert.Equal(t, []string{"parent"}, md.Get("x-b3-parentspanid"))
	})
}

func TestInjectToOutgoingContext(t *testing.T) {
	assert.Equal(t, context.Background(), InjectToOutgoingContext(context.Background()))

	tracer := xtracer.New(nil)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "tenant", "acme")
	ctx = tracer.SetID(ctx, xtracer.NewID(xtracer.IDConfig{SpanID: "s"}))

	out := InjectToOutgoingContext(ctx)
	md, ok := metadata.FromOutgoingContext(out)
	require.True(t, ok)
	assert.Equal(t, []string{"acme"}, md.Get("tenant"))
	assert.Equal(t, []string{"s"}, md.Get("x-b3-spanid"))
	assert.Equal(t, []string{"s"}, md.Get("x-b3-traceid"))
}
