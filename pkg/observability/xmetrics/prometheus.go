package xmetrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	promNamespace = "xzipkin"

	// PromRequestsTotal 请求计数指标名（含 namespace）
	PromRequestsTotal = "xzipkin_requests_total"
	// PromRequestDuration 请求耗时指标名（含 namespace）
	PromRequestDuration = "xzipkin_request_duration_seconds"
)

var promLabels = []string{"component", "operation", "status", "code"}

type promObserver struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusObserver 创建基于 Prometheus 的 Observer 并把指标注册到 reg
//
// 同一 reg 上重复创建时复用已注册的 collector，便于多个中间件实例共享指标。
// buckets 为空时使用 prometheus.DefBuckets。
func NewPrometheusObserver(reg prometheus.Registerer, buckets ...float64) (Observer, error) {
	if reg == nil {
		return nil, ErrNilRegisterer
	}
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "requests_total",
		Help:      "Traced server requests.",
	}, promLabels)
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Name:      "request_duration_seconds",
		Help:      "Traced server request duration in seconds.",
		Buckets:   buckets,
	}, promLabels)

	var err error
	if total, err = registerOrReuse(reg, total); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateCounter, err)
	}
	if duration, err = registerOrReuse(reg, duration); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateHistogram, err)
	}
	return &promObserver{total: total, duration: duration}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

func (o *promObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, &promSpan{
		observer:  o,
		component: orDefault(opts.Component, unknownComponent),
		operation: orDefault(opts.Operation, unknownOperation),
		start:     time.Now(),
	}
}

type promSpan struct {
	observer  *promObserver
	component string
	operation string
	start     time.Time
	endOnce   sync.Once
}

func (s *promSpan) End(result Result) {
	s.endOnce.Do(func() {
		labels := prometheus.Labels{
			"component": s.component,
			"operation": s.operation,
			"status":    string(resolveStatus(result)),
			"code":      statusCode(result.Attrs),
		}
		s.observer.total.With(labels).Inc()
		s.observer.duration.With(labels).Observe(time.Since(s.start).Seconds())
	})
}
