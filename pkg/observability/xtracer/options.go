package xtracer

import (
	"time"

	"github.com/omeyang/xzipkin/pkg/observability/xsampling"
)

// Option 追踪器配置选项
type Option func(*options)

type options struct {
	sampler       xsampling.Sampler
	traceID128Bit bool
	clock         func() time.Time
	localAddrHost string
}

func defaultOptions() options {
	return options{
		sampler: xsampling.Always(),
		clock:   time.Now,
	}
}

// WithSampler 设置根标识的采样器，nil 被忽略。默认全采样。
func WithSampler(s xsampling.Sampler) Option {
	return func(o *options) {
		if s != nil {
			o.sampler = s
		}
	}
}

// WithTraceID128Bit 根标识使用独立生成的 128-bit trace id。
//
// 默认 trace id 与根 span id 相同（64-bit）。
func WithTraceID128Bit(enable bool) Option {
	return func(o *options) {
		o.traceID128Bit = enable
	}
}

// WithClock 设置注解时间戳来源，nil 被忽略。
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLocalHost 设置 LocalAddr 注解缺省的主机地址。
func WithLocalHost(host string) Option {
	return func(o *options) {
		o.localAddrHost = host
	}
}
