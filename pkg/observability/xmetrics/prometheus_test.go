package xmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrometheusObserver_NilRegisterer(t *testing.T) {
	obs, err := NewPrometheusObserver(nil)
	assert.Nil(t, obs)
	assert.ErrorIs(t, err, ErrNilRegisterer)
}

func TestPrometheusObserver_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewPrometheusObserver(reg, 0.01, 0.1, 1)
	require.NoError(t, err)

	for _, code := range []int{200, 200, 500} {
		_, span := obs.Start(context.Background(), SpanOptions{Component: "xtrace", Operation: "GET"})
		res := Result{Attrs: []Attr{Int(AttrStatusCode, code)}}
		if code >= 500 {
			res.Status = StatusError
		}
		span.End(res)
		span.End(res)
	}

	p := obs.(*promObserver)
	assert.InDelta(t, 2, testutil.ToFloat64(p.total.WithLabelValues("xtrace", "GET", "ok", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(p.total.WithLabelValues("xtrace", "GET", "error", "500")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(p.duration, PromRequestDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{PromRequestsTotal, PromRequestDuration}, names)
}

func TestPrometheusObserver_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver(reg)
	require.NoError(t, err)
	second, err := NewPrometheusObserver(reg)
	require.NoError(t, err)

	_, span := first.Start(context.Background(), SpanOptions{Component: "a", Operation: "GET"})
	span.End(Result{Err: errors.New("x")})
	_, span = second.Start(context.Background(), SpanOptions{Component: "a", Operation: "GET"})
	span.End(Result{Err: errors.New("x")})

	assert.InDelta(t, 2, testutil.ToFloat64(first.(*promObserver).total.WithLabelValues("a", "GET", "error", "")), 0)
}
