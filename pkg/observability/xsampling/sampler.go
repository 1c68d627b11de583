package xsampling

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"sync/atomic"
)

// Sampler 采样策略接口
//
// ctx 携带采样决策所需的上下文信息（如 trace_id），不得为 nil。
type Sampler interface {
	ShouldSample(ctx context.Context) bool
}

// =============================================================================
// 固定策略
// =============================================================================

type constSampler bool

var (
	alwaysSampler = constSampler(true)
	neverSampler  = constSampler(false)
)

// Always 返回全采样策略
func Always() Sampler { return alwaysSampler }

// Never 返回不采样策略
func Never() Sampler { return neverSampler }

func (s constSampler) ShouldSample(context.Context) bool { return bool(s) }

// =============================================================================
// 比率采样
// =============================================================================

// RateSampler 固定比率随机采样
type RateSampler struct {
	rate float64
}

// NewRateSampler 创建固定比率采样器
//
// rate 超出 [0.0, 1.0] 或为 NaN 时返回 ErrInvalidRate。
func NewRateSampler(rate float64) (*RateSampler, error) {
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	return &RateSampler{rate: rate}, nil
}

func (s *RateSampler) ShouldSample(context.Context) bool {
	switch {
	case s.rate <= 0:
		return false
	case s.rate >= 1:
		return true
	}
	return randomFloat64() < s.rate
}

// Rate 返回采样比率
func (s *RateSampler) Rate() float64 { return s.rate }

// =============================================================================
// 计数采样
// =============================================================================

// CountSampler 每 n 个事件采样 1 个，第 1、n+1、2n+1... 个被采样。
type CountSampler struct {
	n       uint64
	counter atomic.Uint64
}

// NewCountSampler 创建计数采样器，n < 1 时返回 ErrInvalidCount。
func NewCountSampler(n int) (*CountSampler, error) {
	if n < 1 {
		return nil, ErrInvalidCount
	}
	return &CountSampler{n: uint64(n)}, nil
}

func (s *CountSampler) ShouldSample(context.Context) bool {
	if s.n == 0 {
		return true
	}
	return (s.counter.Add(1)-1)%s.n == 0
}

// Reset 重置计数器
func (s *CountSampler) Reset() { s.counter.Store(0) }

// N 返回采样间隔
func (s *CountSampler) N() int { return int(s.n) }

// =============================================================================
// 内部工具
// =============================================================================

const (
	floatBits  = 53
	floatScale = 1.0 / (1 << floatBits)
)

// randomFloat64 返回 [0.0, 1.0) 的随机数。熵源不可用时 panic。
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("xsampling: crypto/rand.Read failed: " + err.Error())
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>(64-floatBits)) * floatScale
}

func validateRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return ErrInvalidRate
	}
	return nil
}

var (
	_ Sampler = constSampler(true)
	_ Sampler = (*RateSampler)(nil)
	_ Sampler = (*CountSampler)(nil)
)
