package xtracer

import (
	"context"
	"log/slog"

	"github.com/omeyang/xzipkin/pkg/observability/xlog"
)

// LogRecorder 通过 xlog 以 Debug 级别输出每条注解
type LogRecorder struct {
	logger xlog.Logger
}

// NewLogRecorder 创建 LogRecorder，logger 为 nil 时使用 xlog.Default()
func NewLogRecorder(logger xlog.Logger) *LogRecorder {
	if logger == nil {
		logger = xlog.Default()
	}
	return &LogRecorder{logger: logger.With(xlog.Component("xtracer"))}
}

// Record 实现 Recorder
func (l *LogRecorder) Record(ctx context.Context, rec Record) {
	l.logger.Debug(ctx, "span annotation",
		slog.String("annotation_kind", rec.Annotation.Kind().String()),
		slog.String("annotation", rec.Annotation.String()),
		slog.Group("span",
			slog.String("trace_id", rec.ID.TraceID().OrElse("")),
			slog.String("span_id", rec.ID.SpanID()),
			slog.String("parent_id", rec.ID.ParentID().OrElse("")),
		),
		slog.Time("timestamp", rec.Timestamp),
	)
}

var _ Recorder = (*LogRecorder)(nil)
