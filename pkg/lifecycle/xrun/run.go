package xrun

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/omeyang/xzipkin/pkg/observability/xlog"
)

// Service 可被 Run 管理的服务，Run 阻塞直到 ctx 结束或出错
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc 函数适配为 Service
type ServiceFunc func(ctx context.Context) error

func (f ServiceFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Named 带名称的服务，名称用于日志
type Named struct {
	Name    string
	Service Service
}

// Run 运行服务直到全部退出
//
// 默认监听 DefaultSignals：收到信号后取消所有服务，返回 *SignalError。
// 所有服务都正常返回时信号监听随之结束。
func Run(ctx context.Context, services []Named, opts ...Option) error {
	g, _ := NewGroup(ctx, opts...)

	var wg sync.WaitGroup
	for _, svc := range services {
		wg.Add(1)
		g.Go(svc.Name, func(ctx context.Context) error {
			defer wg.Done()
			if svc.Service == nil {
				return ErrNilService
			}
			return svc.Service.Run(ctx)
		})
	}

	if !g.opts.noSig {
		servicesDone := make(chan struct{})
		go func() {
			wg.Wait()
			close(servicesDone)
		}()
		g.Go("signal", func(ctx context.Context) error {
			return waitSignal(ctx, g, servicesDone)
		})
	}
	return g.Wait()
}

func waitSignal(ctx context.Context, g *Group, servicesDone <-chan struct{}) error {
	ch := g.opts.sigCh
	if ch == nil {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		notify := make(chan os.Signal, 1)
		signal.Notify(notify, signals...)
		defer signal.Stop(notify)
		ch = notify
	}

	select {
	case sig := <-ch:
		g.opts.logger.Info(ctx, "received signal",
			xlog.Component("xrun"), xlog.Operation(sig.String()))
		g.Cancel(&SignalError{Signal: sig})
		return nil
	case <-servicesDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
