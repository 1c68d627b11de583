package xsampling

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xzipkin/pkg/context/xctx"
)

func TestConstSamplers(t *testing.T) {
	ctx := context.Background()
	for range 50 {
		assert.True(t, Always().ShouldSample(ctx))
		assert.False(t, Never().ShouldSample(ctx))
	}
}

func TestRateSampler(t *testing.T) {
	ctx := context.Background()

	t.Run("边界值", func(t *testing.T) {
		zero, err := NewRateSampler(0)
		require.NoError(t, err)
		one, err := NewRateSampler(1)
		require.NoError(t, err)
		for range 100 {
			assert.False(t, zero.ShouldSample(ctx))
			assert.True(t, one.ShouldSample(ctx))
		}
	})

	t.Run("非法比率", func(t *testing.T) {
		for _, r := range []float64{-0.1, 1.1, math.NaN()} {
			_, err := NewRateSampler(r)
			assert.ErrorIs(t, err, ErrInvalidRate)
		}
	})

	t.Run("近似比率", func(t *testing.T) {
		s, err := NewRateSampler(0.5)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, s.Rate(), 0)

		hits := 0
		const total = 10000
		for range total {
			if s.ShouldSample(ctx) {
				hits++
			}
		}
		assert.InDelta(t, 0.5, float64(hits)/total, 0.05)
	})
}

func TestCountSampler(t *testing.T) {
	_, err := NewCountSampler(0)
	assert.ErrorIs(t, err, ErrInvalidCount)

	s, err := NewCountSampler(3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.N())

	ctx := context.Background()
	got := make([]bool, 0, 6)
	for range 6 {
		got = append(got, s.ShouldSample(ctx))
	}
	assert.Equal(t, []bool{true, false, false, true, false, false}, got)

	s.Reset()
	assert.True(t, s.ShouldSample(ctx))
}

func TestCountSampler_Concurrent(t *testing.T) {
	s, err := NewCountSampler(10)
	require.NoError(t, err)

	var hits atomic.Int64
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if s.ShouldSample(context.Background()) {
					hits.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), hits.Load())
}

func TestKeyBasedSampler(t *testing.T) {
	t.Run("参数校验", func(t *testing.T) {
		_, err := NewKeyBasedSampler(0.5, nil)
		assert.ErrorIs(t, err, ErrNilKeyFunc)
		_, err = NewKeyBasedSampler(2, xctx.TraceID)
		assert.ErrorIs(t, err, ErrInvalidRate)
		_, err = NewKeyBasedSampler(0.5, xctx.TraceID, nil)
		assert.ErrorIs(t, err, ErrNilOption)
	})

	t.Run("相同key决策一致", func(t *testing.T) {
		s, err := TraceIDSampler(0.3)
		require.NoError(t, err)
		for i := range 50 {
			ctx, _ := xctx.WithTraceID(context.Background(), xctx.GenerateSpanID())
			first := s.ShouldSample(ctx)
			for range 5 {
				assert.Equal(t, first, s.ShouldSample(ctx), "iteration %d", i)
			}
		}
	})

	t.Run("空key回调", func(t *testing.T) {
		var calls atomic.Int32
		s, err := TraceIDSampler(0.5, WithOnEmptyKey(func() { calls.Add(1) }))
		require.NoError(t, err)
		s.ShouldSample(context.Background())
		s.ShouldSample(nil)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("rate边界短路", func(t *testing.T) {
		all, _ := TraceIDSampler(1)
		none, _ := TraceIDSampler(0)
		assert.True(t, all.ShouldSample(context.Background()))
		assert.False(t, none.ShouldSample(context.Background()))
	})
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		check   func(t *testing.T, s Sampler)
	}{
		{name: "默认", cfg: Config{}, check: func(t *testing.T, s Sampler) { assert.Equal(t, Always(), s) }},
		{name: "never", cfg: Config{Strategy: "NEVER"}, check: func(t *testing.T, s Sampler) { assert.Equal(t, Never(), s) }},
		{name: "rate", cfg: Config{Strategy: "rate", Rate: 0.2}, check: func(t *testing.T, s Sampler) {
			assert.IsType(t, &RateSampler{}, s)
		}},
		{name: "count", cfg: Config{Strategy: "count", N: 5}, check: func(t *testing.T, s Sampler) {
			assert.IsType(t, &CountSampler{}, s)
		}},
		{name: "trace_id", cfg: Config{Strategy: " trace_id ", Rate: 0.2}, check: func(t *testing.T, s Sampler) {
			assert.IsType(t, &KeyBasedSampler{}, s)
		}},
		{name: "非法rate", cfg: Config{Strategy: "rate", Rate: 3}, wantErr: ErrInvalidRate},
		{name: "未知策略", cfg: Config{Strategy: "adaptive"}, wantErr: ErrUnknownStrategy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromConfig(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}
