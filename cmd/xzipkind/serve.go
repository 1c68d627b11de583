package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/omeyang/xzipkin/pkg/config/xconf"
	"github.com/omeyang/xzipkin/pkg/lifecycle/xrun"
	"github.com/omeyang/xzipkin/pkg/observability/xlog"
	"github.com/omeyang/xzipkin/pkg/observability/xrotate"
)

// telemetryFlushTimeout 退出时刷新导出器的最长等待
const telemetryFlushTimeout = 5 * time.Second

// buildLogger 按 log 段配置构建日志器；配置了 file 时写入轮转文件
func buildLogger(s LogSettings, service string) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetLevel(s.Level).
		SetFormat(s.Format).
		SetService(service)
	if s.File != "" {
		b.SetRotation(s.File,
			xrotate.WithMaxSize(s.MaxSizeMB),
			xrotate.WithMaxBackups(s.MaxBackups),
			xrotate.WithMaxAge(s.MaxAgeDays),
			xrotate.WithCompress(s.Compress),
		)
	}
	return b.Build()
}

// reloadHandler 返回配置重载回调：只有日志级别支持热更新，其余字段需要重启
func reloadHandler(logger xlog.LoggerWithLevel) xconf.WatchCallback {
	return func(cfg xconf.Config, err error) {
		ctx := context.Background()
		if err != nil {
			logger.Warn(ctx, "config reload failed, keeping previous settings",
				xlog.Component("xzipkind"), xlog.Err(err))
			return
		}
		var log LogSettings
		log.Level = logger.GetLevel()
		if err := cfg.Unmarshal("log", &log); err != nil {
			logger.Warn(ctx, "config reload: invalid log section",
				xlog.Component("xzipkind"), xlog.Err(err))
			return
		}
		if log.Level != logger.GetLevel() {
			logger.SetLevel(log.Level)
			logger.Info(ctx, "log level changed",
				xlog.Component("xzipkind"), xlog.Operation(log.Level.String()))
		}
	}
}

// newRegistry 创建指标注册表并注册 Go 运行时与进程指标
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// serve 启动追踪服务并阻塞到收到信号或服务出错
func serve(ctx context.Context, s Settings, cfg xconf.Config) (err error) {
	logger, closeLog, err := buildLogger(s.Log, s.Tracing.ServiceName)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeLog()) }()

	tel, err := newTelemetry(ctx, s.Tracing, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryFlushTimeout)
		defer cancel()
		err = errors.Join(err, tel.Shutdown(flushCtx))
	}()

	handler, err := newHandler(handlerDeps{
		settings: s.Server,
		tracing:  s.Tracing,
		tracer:   tel.tracer,
		logger:   logger,
		registry: newRegistry(),
	})
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.Server.Addr)
	if err != nil {
		return fmt.Errorf("xzipkind: listen %s: %w", s.Server.Addr, err)
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	services := []xrun.Named{
		{Name: "http", Service: xrun.HTTPServer(server, ln, s.Server.ShutdownTimeout)},
	}
	if cfg != nil {
		w, err := xconf.Watch(cfg, reloadHandler(logger))
		if err != nil {
			_ = ln.Close()
			return err
		}
		services = append(services, xrun.Named{Name: "config-watcher", Service: w})
	}

	logger.Info(ctx, "xzipkind started",
		xlog.Addr(ln.Addr().String()),
		xlog.Component("xzipkind"),
	)
	err = xrun.Run(ctx, services, xrun.WithLogger(logger), xrun.WithName("xzipkind"))
	if errors.Is(err, xrun.ErrSignal) {
		logger.Info(ctx, "xzipkind stopped", xlog.Err(err))
		return nil
	}
	return err
}
