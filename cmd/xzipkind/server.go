package main

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omeyang/xzipkin/pkg/observability/xlog"
	"github.com/omeyang/xzipkin/pkg/observability/xmetrics"
	"github.com/omeyang/xzipkin/pkg/observability/xtrace"
	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
)

// identityResponse echo 接口的响应体
type identityResponse struct {
	TraceID  string `json:"trace_id,omitempty"`
	SpanID   string `json:"span_id"`
	ParentID string `json:"parent_id,omitempty"`
	Sampled  *bool  `json:"sampled,omitempty"`
	Flags    *int   `json:"flags,omitempty"`
}

func newIdentityResponse(id xtracer.ID) identityResponse {
	resp := identityResponse{
		TraceID:  id.TraceID().OrElse(""),
		SpanID:   id.SpanID(),
		ParentID: id.ParentID().OrElse(""),
	}
	if v, ok := id.Sampled().Get(); ok {
		resp.Sampled = &v
	}
	if v, ok := id.Flags().Get(); ok {
		resp.Flags = &v
	}
	return resp
}

// echoHandler 返回中间件为本次请求绑定的追踪标识
func echoHandler(w http.ResponseWriter, r *http.Request) error {
	id, ok := xtrace.IDFromRequest(r)
	if !ok {
		http.Error(w, "no trace identity bound", http.StatusInternalServerError)
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(newIdentityResponse(id))
}

// handlerDeps 构建 HTTP 处理链所需的依赖
type handlerDeps struct {
	settings ServerSettings
	tracing  TracingSettings
	tracer   xtracer.Tracer
	logger   xlog.Logger
	registry *prometheus.Registry
}

// newHandler 组装路由：/healthz 与指标端点不追踪，其余路径经过 B3 中间件
func newHandler(d handlerDeps) (http.Handler, error) {
	observer, err := xmetrics.NewPrometheusObserver(d.registry)
	if err != nil {
		return nil, err
	}
	opts := []xtrace.Option{
		xtrace.WithServiceName(d.tracing.ServiceName),
		xtrace.WithPort(d.tracing.Port),
		xtrace.WithCORS(d.tracing.CORS),
		xtrace.WithObserver(observer),
		xtrace.WithLogger(d.logger),
	}
	// 代理模式经过中间件并以子 span 转发；echo 模式由 WrapE 直接追踪
	var app http.Handler
	if d.settings.Upstream != "" {
		target, err := url.Parse(d.settings.Upstream)
		if err != nil {
			return nil, err
		}
		proxy := httputil.NewSingleHostReverseProxy(target)
		// 熔断在追踪之内，客户端 span 能记录熔断错误
		base := newBreakerTransport(http.DefaultTransport, d.settings.Breaker)
		proxy.Transport = xtrace.NewTransport(d.tracer, base, xtrace.WithServiceName(d.tracing.ServiceName))
		proxy.ErrorHandler = proxyErrorHandler
		app = xtrace.HTTPMiddleware(d.tracer, opts...)(proxy)
	} else {
		app = errorHandler(xtrace.WrapE(d.tracer, echoHandler, opts...), d.logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if d.settings.MetricsPath != "" {
		mux.Handle("GET "+d.settings.MetricsPath, promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", app)
	return mux, nil
}

// errorHandler 把 HandlerFuncE 适配为 http.Handler，错误写日志并在未写响应时返回 500
func errorHandler(h xtrace.HandlerFuncE, logger xlog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			logger.Error(r.Context(), "xzipkind: handler failed", xlog.Err(err), xlog.Path(r.URL.Path))
		}
	})
}
