package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// errUpstreamStatus 上游 5xx 响应计为一次失败，响应本身仍原样返回
var errUpstreamStatus = errors.New("xzipkind: upstream returned 5xx")

// BreakerSettings 上游熔断配置
type BreakerSettings struct {
	// ConsecutiveFailures 连续失败多少次后熔断，0 表示不启用
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
	Timeout             time.Duration `koanf:"timeout"`
}

// breakerTransport 熔断保护的 RoundTripper，熔断期间直接返回 gobreaker.ErrOpenState
type breakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker[*http.Response]
}

func newBreakerTransport(base http.RoundTripper, s BreakerSettings) http.RoundTripper {
	if s.ConsecutiveFailures == 0 {
		return base
	}
	threshold := s.ConsecutiveFailures
	return &breakerTransport{
		base: base,
		cb: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:    "upstream",
			Timeout: s.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
	}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.cb.Execute(func() (*http.Response, error) {
		resp, err := t.base.RoundTrip(req)
		if err == nil && resp.StatusCode >= http.StatusInternalServerError {
			return resp, errUpstreamStatus
		}
		return resp, err
	})
	if errors.Is(err, errUpstreamStatus) {
		return resp, nil
	}
	return resp, err
}

// proxyErrorHandler 熔断时返回 503，其余上游错误返回 502
func proxyErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		http.Error(w, "upstream circuit open", http.StatusServiceUnavailable)
		return
	}
	http.Error(w, "upstream unavailable", http.StatusBadGateway)
}
