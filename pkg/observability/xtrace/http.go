package xtrace

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/omeyang/xzipkin/pkg/observability/xlog"
	"github.com/omeyang/xzipkin/pkg/observability/xmetrics"
	"github.com/omeyang/xzipkin/pkg/observability/xtracer"
	"github.com/omeyang/xzipkin/pkg/util/xoption"
)

// =============================================================================
// HTTP 中间件
// =============================================================================

// HTTPMiddleware 返回 HTTP 服务端追踪中间件。
//
// 每个请求：
//  1. 从 B3 头延续上游追踪，或向 tracer 申请根标识
//  2. 记录服务名、RPC（大写 HTTP 方法）、http.url、ServerRecv、LocalAddr，
//     flags 非零时额外记录 X-B3-Flags
//  3. 将标识绑定到请求 context 后调用下游 handler
//  4. handler 返回、panic 或请求被取消后，记录 http.status_code 与 ServerSend
//
// tracer 为 nil 时中间件原样返回下游 handler，不记录注解也不写 CORS 头。
// handler 的 panic 不会被吞掉：结束注解记录完成后继续向上传播。
func HTTPMiddleware(tracer xtracer.Tracer, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	return func(next http.Handler) http.Handler {
		if tracer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = cfg.serveHTTP(tracer, w, r, func(w http.ResponseWriter, r *http.Request) error {
				next.ServeHTTP(w, r)
				return nil
			})
		})
	}
}

// HandlerFuncE 返回错误的 HTTP handler
type HandlerFuncE func(w http.ResponseWriter, r *http.Request) error

// WrapE 为返回错误的 handler 增加追踪。
//
// handler 返回的错误在结束注解记录之后原样返回给调用方；
// 未写响应头且返回错误时记录的状态码为 500。tracer 为 nil 时直接返回 h。
func WrapE(tracer xtracer.Tracer, h HandlerFuncE, opts ...Option) HandlerFuncE {
	if tracer == nil || h == nil {
		return h
	}
	cfg := newConfig(opts)
	return func(w http.ResponseWriter, r *http.Request) error {
		return cfg.serveHTTP(tracer, w, r, h)
	}
}

func (c *config) serveHTTP(tracer xtracer.Tracer, w http.ResponseWriter, r *http.Request, next HandlerFuncE) (err error) {
	if c.cors {
		setCORSHeaders(w.Header())
	}

	h := r.Header
	method := strings.ToUpper(r.Method)
	url := FormatRequestURL(r)
	ctx, span := c.begin(r.Context(), tracer,
		func(name string) xoption.Option[string] { return readHeader(h, name) },
		method, BinaryHTTPURL, url)

	ctx, obs := xmetrics.Start(ctx, c.observer, xmetrics.SpanOptions{
		Component: "xtrace",
		Operation: method,
		Kind:      xmetrics.KindServer,
		Attrs: []xmetrics.Attr{
			xmetrics.String("service", c.serviceName),
			xmetrics.String(BinaryHTTPURL, url),
		},
	})

	sw := newStatusWriter(w)
	defer func() {
		// recover 后重新 panic，保持向上传播
		rec := recover()
		panicked := rec != nil
		status := sw.resolve(panicked || err != nil)
		span.finish(ctx, BinaryHTTPStatusCode, strconv.Itoa(status))
		obs.End(observeResult(status, panicked, err))
		if panicked {
			// http.ErrAbortHandler 是 ReverseProxy 等在客户端断开时的正常中止信号
			if rec != http.ErrAbortHandler {
				c.logger.Error(ctx, "xtrace: handler panicked", xlog.StatusCode(status))
			}
			panic(rec)
		}
	}()

	return next(sw, r.WithContext(ctx))
}

func observeResult(status int, panicked bool, err error) xmetrics.Result {
	res := xmetrics.Result{
		Err:   err,
		Attrs: []xmetrics.Attr{xmetrics.Int(BinaryHTTPStatusCode, status)},
	}
	switch {
	case panicked:
		res.Status = xmetrics.StatusError
		if res.Err == nil {
			res.Err = errHandlerPanic
		}
	case err != nil || status >= http.StatusInternalServerError:
		res.Status = xmetrics.StatusError
	default:
		res.Status = xmetrics.StatusOK
	}
	return res
}

// =============================================================================
// 状态码捕获
// =============================================================================

// statusWriter 记录 handler 写出的状态码
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.status = http.StatusOK
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush 透传 http.Flusher
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if !w.wroteHeader {
			w.status = http.StatusOK
			w.wroteHeader = true
		}
		f.Flush()
	}
}

// Unwrap 供 http.ResponseController 访问底层 ResponseWriter
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// resolve 返回应记录的状态码：已写出的状态码优先，否则失败为 500、正常为 200
func (w *statusWriter) resolve(failed bool) int {
	if w.wroteHeader {
		return w.status
	}
	if failed {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

// =============================================================================
// Context 辅助函数
// =============================================================================

// IDFromRequest 返回中间件绑定到请求上的追踪标识
func IDFromRequest(r *http.Request) (xtracer.ID, bool) {
	if r == nil {
		return xtracer.ID{}, false
	}
	return xtracer.IDFromContext(r.Context())
}
