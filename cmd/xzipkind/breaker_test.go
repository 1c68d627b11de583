package main

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBreakerTransport_Disabled(t *testing.T) {
	base := http.DefaultTransport
	assert.Same(t, base, newBreakerTransport(base, BreakerSettings{}))
}

func TestProxy_BreakerOpensOnUpstreamFailures(t *testing.T) {
	var hits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	s := defaultSettings()
	s.Server.Upstream = backend.URL
	s.Server.Breaker = BreakerSettings{ConsecutiveFailures: 2, Timeout: time.Minute}
	h, _ := newTestHandler(t, s)

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items", nil))
		codes = append(codes, w.Code)
	}

	require.Equal(t, []int{http.StatusInternalServerError, http.StatusInternalServerError, http.StatusServiceUnavailable}, codes)
	assert.Equal(t, int32(2), hits.Load(), "熔断后请求不再到达上游")
}

func TestProxy_UpstreamUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	s := defaultSettings()
	s.Server.Upstream = url
	h, _ := newTestHandler(t, s)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
