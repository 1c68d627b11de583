package xtrace

import (
	"context"
	"strconv"

	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
)

// 二进制注解 key
const (
	BinaryHTTPURL        = "http.url"
	BinaryHTTPStatusCode = "http.status_code"
	BinaryGRPCMethod     = "grpc.method"
	BinaryGRPCStatusCode = "grpc.status_code"
)

// serverSpan 一次服务端请求的 span 生命周期
//
// id 在 begin 中确定后不再变化，finish 使用同一个 id，
// 不受下游代码对 context 中当前标识的修改影响。
type serverSpan struct {
	tracer xtracer.Tracer
	cfg    *config
	id     xtracer.ID
}

// begin 确定追踪标识并记录开始注解，返回绑定了标识的 context
func (c *config) begin(ctx context.Context, tracer xtracer.Tracer, read headerReader, rpc, urlKey, urlValue string) (context.Context, *serverSpan) {
	id := deriveID(ctx, tracer, read)
	ctx = tracer.SetID(ctx, id)

	s := &serverSpan{tracer: tracer, cfg: c, id: id}
	tracer.Scoped(ctx, func(ctx context.Context) {
		ctx = tracer.SetID(ctx, s.id)
		tracer.RecordServiceName(ctx, c.serviceName)
		tracer.RecordRPC(ctx, rpc)
		tracer.RecordBinary(ctx, urlKey, urlValue)
		tracer.RecordAnnotation(ctx, xtracer.ServerRecv{})
		tracer.RecordAnnotation(ctx, xtracer.LocalAddr{Port: c.port})
		if flags, ok := s.id.Flags().Get(); ok && flags != 0 {
			tracer.RecordBinary(ctx, HeaderFlags, strconv.Itoa(flags))
		}
	})

	// 下游日志与指标通过 xctx 读取字符串形式的追踪字段
	return xtracer.SyncToContext(ctx, id), s
}

// finish 记录结束注解，请求 context 已取消时依然记录
func (s *serverSpan) finish(ctx context.Context, statusKey, statusValue string) {
	s.tracer.Scoped(context.WithoutCancel(ctx), func(ctx context.Context) {
		ctx = s.tracer.SetID(ctx, s.id)
		s.tracer.RecordBinary(ctx, statusKey, statusValue)
		s.tracer.RecordAnnotation(ctx, xtracer.ServerSend{})
	})
}
