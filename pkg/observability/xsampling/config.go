package xsampling

import (
	"fmt"
	"strings"
)

// 采样策略名称
const (
	StrategyAlways  = "always"
	StrategyNever   = "never"
	StrategyRate    = "rate"
	StrategyCount   = "count"
	StrategyTraceID = "trace_id"
)

// Config 采样器配置，对应配置文件中的 tracing.sampler 段
type Config struct {
	// Strategy 采样策略，默认 always
	Strategy string `koanf:"strategy"`

	// Rate 采样比率，用于 rate 和 trace_id 策略
	Rate float64 `koanf:"rate"`

	// N 采样间隔，用于 count 策略
	N int `koanf:"n"`
}

// FromConfig 根据配置创建采样器
func FromConfig(cfg Config) (Sampler, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Strategy)) {
	case "", StrategyAlways:
		return Always(), nil
	case StrategyNever:
		return Never(), nil
	case StrategyRate:
		return NewRateSampler(cfg.Rate)
	case StrategyCount:
		return NewCountSampler(cfg.N)
	case StrategyTraceID:
		return TraceIDSampler(cfg.Rate)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}
