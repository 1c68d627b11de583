package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xzipkin/pkg/observability/xlog"
)

// Option 配置 Group
type Option func(*groupOptions)

type groupOptions struct {
	logger  xlog.Logger
	name    string
	signals []os.Signal
	noSig   bool
	sigCh   <-chan os.Signal
}

func defaultOptions() *groupOptions {
	return &groupOptions{name: "xrun"}
}

// DefaultSignals SIGHUP、SIGINT、SIGTERM、SIGQUIT，每次返回新切片
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// WithLogger 记录服务启停的 logger，默认 xlog.Default()
func WithLogger(logger xlog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName Group 名称，出现在日志的 group 字段
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 覆盖 Run 监听的信号，空列表等价于 DefaultSignals
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *groupOptions) { o.signals = copied }
}

// WithoutSignalHandler Run 不监听系统信号
func WithoutSignalHandler() Option {
	return func(o *groupOptions) { o.noSig = true }
}

// withSignalChan 以给定通道代替 signal.Notify，用于测试
func withSignalChan(c <-chan os.Signal) Option {
	return func(o *groupOptions) { o.sigCh = c }
}
