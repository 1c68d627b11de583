// Package xrun 基于 errgroup 管理进程内服务的并发运行与协调关闭。
//
// xzipkind 用它同时运行 HTTP 服务、配置监视与指标端点：
//
//	err := xrun.Run(ctx, []xrun.Named{
//		{Name: "http", Service: xrun.HTTPServer(srv, nil, 10*time.Second)},
//		{Name: "config-watch", Service: watcher},
//	}, xrun.WithLogger(logger))
//	if errors.Is(err, xrun.ErrSignal) {
//		// 正常的信号退出
//	}
//
// 任一服务返回错误即取消其余服务；收到 SIGHUP/SIGINT/SIGTERM/SIGQUIT 时
// 返回 *SignalError。
package xrun
