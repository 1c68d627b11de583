package xtrace

import (
	"github.com/omeyang/xzipkin/pkg/observability/xlog"
	"github.com/omeyang/xzipkin/pkg/observability/xmetrics"
)

// DefaultServiceName 未配置服务名时记录的值
const DefaultServiceName = "unknown"

// Option 中间件选项
type Option func(*config)

type config struct {
	serviceName string
	port        int
	observer    xmetrics.Observer
	cors        bool
	logger      xlog.Logger
}

func newConfig(opts []Option) *config {
	cfg := &config{
		serviceName: DefaultServiceName,
		cors:        true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = xlog.Default()
	}
	return cfg
}

// WithServiceName 设置记录的服务名，空字符串被忽略。默认 "unknown"。
func WithServiceName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.serviceName = name
		}
	}
}

// WithPort 设置 LocalAddr 注解中的端口。默认 0。
func WithPort(port int) Option {
	return func(c *config) {
		c.port = port
	}
}

// WithObserver 设置请求级观测（指标与 OTel span），默认不观测
func WithObserver(obs xmetrics.Observer) Option {
	return func(c *config) {
		c.observer = obs
	}
}

// WithCORS 设置是否写入 CORS 响应头。默认 true。
func WithCORS(enable bool) Option {
	return func(c *config) {
		c.cors = enable
	}
}

// WithLogger 设置日志器，nil 被忽略。默认 xlog.Default()。
func WithLogger(logger xlog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
