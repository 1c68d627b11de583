package xtrace

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
	"github.com/omeyang/xzipkin/pkg/util/xoption"
)

// =============================================================================
// gRPC Metadata 读取
// =============================================================================

// metadataReader 从 gRPC metadata 读取 B3 值，metadata key 为小写
func metadataReader(md metadata.MD) headerReader {
	return func(name string) xoption.Option[string] {
		values := md.Get(strings.ToLower(name))
		if len(values) == 0 {
			return xoption.None[string]()
		}
		return xoption.Some(values[0])
	}
}

func incomingReader(ctx context.Context) headerReader {
	md, _ := metadata.FromIncomingContext(ctx)
	return metadataReader(md)
}

// =============================================================================
// gRPC 服务端拦截器
// =============================================================================

// GRPCUnaryServerInterceptor 返回 gRPC 一元服务端拦截器。
//
// 与 HTTPMiddleware 采用相同的标识推导与注解顺序；RPC 名为完整方法名，
// 结束时记录 grpc.status_code。tracer 为 nil 时直接调用 handler。
func GRPCUnaryServerInterceptor(tracer xtracer.Tracer, opts ...Option) grpc.UnaryServerInterceptor {
	cfg := newConfig(opts)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		if tracer == nil {
			return handler(ctx, req)
		}
		ctx, span := cfg.begin(ctx, tracer, incomingReader(ctx), info.FullMethod, BinaryGRPCMethod, info.FullMethod)
		defer func() {
			span.finish(ctx, BinaryGRPCStatusCode, status.Code(err).String())
		}()
		return handler(ctx, req)
	}
}

// GRPCStreamServerInterceptor 返回 gRPC 流式服务端拦截器
func GRPCStreamServerInterceptor(tracer xtracer.Tracer, opts ...Option) grpc.StreamServerInterceptor {
	cfg := newConfig(opts)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		if tracer == nil {
			return handler(srv, ss)
		}
		ctx := ss.Context()
		ctx, span := cfg.begin(ctx, tracer, incomingReader(ctx), info.FullMethod, BinaryGRPCMethod, info.FullMethod)
		defer func() {
			span.finish(ctx, BinaryGRPCStatusCode, status.Code(err).String())
		}()
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// wrappedServerStream 包装 ServerStream 以覆盖 Context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context 返回包装后的 context
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// =============================================================================
// gRPC 客户端拦截器
// =============================================================================

// GRPCUnaryClientInterceptor 返回 gRPC 客户端一元拦截器。
//
// 为每次调用生成子标识并写入 outgoing metadata。
func GRPCUnaryClientInterceptor(tracer xtracer.Tracer) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if tracer != nil {
			ctx, _ = NextChildID(ctx, tracer)
			ctx = InjectToOutgoingContext(ctx)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// GRPCStreamClientInterceptor 返回 gRPC 客户端流式拦截器
func GRPCStreamClientInterceptor(tracer xtracer.Tracer) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		if tracer != nil {
			ctx, _ = NextChildID(ctx, tracer)
			ctx = InjectToOutgoingContext(ctx)
		}
		return streamer(ctx, desc, cc, method, opts...)
	}
}

// InjectToOutgoingContext 将 ctx 上绑定的追踪标识写入 outgoing metadata。
//
// 已有的 outgoing metadata 会被复制后再修改；ctx 无标识时原样返回。
func InjectToOutgoingContext(ctx context.Context) context.Context {
	id, ok := xtracer.IDFromContext(ctx)
	if !ok || id.IsZero() {
		return ctx
	}

	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.New(nil)
	}

	h := make(map[string][]string, len(PropagationHeaders))
	InjectIDToHeader(h, id)
	for k, v := range h {
		md.Set(k, v...)
	}
	return metadata.NewOutgoingContext(ctx, md)
}
