package xlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omeyang/xzipkin/pkg/context/xctx"
)

// ErrNilHandler NewEnrichHandler 的 base 为 nil
var ErrNilHandler = errors.New("xlog: base handler is nil")

// EnrichHandler 从 context 读取 B3 追踪字段并追加到每条日志
//
// 字段来自 xctx：trace_id、span_id、parent_span_id、sampled、flags，缺失的字段被跳过。
// xtrace 中间件在请求开始时写入这些字段，因此请求内的所有日志天然带有追踪标识。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 包装 base handler
//
// 设计决策: 对 logger 调用 WithGroup 后，注入的追踪字段也会落在该分组下，
// 这是 slog handler 链的固有行为。需要顶层 trace_id 时不要对其分组。
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// maxEnrichAttrs 与 xctx 的追踪字段数量一致
const maxEnrichAttrs = 5

// Handle 追加追踪字段后交给 base
//
// 按 slog 契约，修改前先 Clone record。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [maxEnrichAttrs]slog.Attr
	attrs := xctx.AppendTraceAttrs(buf[:0], ctx)
	if len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
