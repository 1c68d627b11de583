// xzipkind 是带 Zipkin B3 追踪的 HTTP 服务。
//
// 用法:
//
//	xzipkind [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件路径（yaml/json），为空时使用默认配置
//
// 命令:
//
//	serve          启动服务（默认命令）
//	check          校验配置并打印生效值
//	headers        生成一个根追踪标识并以 B3 头形式打印
//
// serve 未配置 upstream 时，任意路径返回本次请求绑定的追踪标识（JSON）；
// 配置了 upstream 时反向代理到上游，出站请求携带子 span 的 B3 头。
// /healthz 与指标端点不经过追踪。
//
// 配置文件变更后日志级别热更新，其余字段需重启生效。
//
// 退出码:
//
//	0: 正常退出（含收到 SIGINT/SIGTERM 后优雅关闭）
//	1: 运行失败
//	2: 参数或配置错误
//
// 示例:
//
//	xzipkind serve --addr :9411 --exporter stdout
//	xzipkind -c /etc/xzipkind.yaml check
//	curl -H "$(xzipkind headers | head -1)" localhost:8080/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xzipkin/pkg/config/xconf"
	"github.com/omeyang/xzipkin/pkg/observability/xtrace"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// usageError 参数或配置错误，对应退出码 2
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout)
	app.ErrWriter = stderr
	if err := app.Run(ctx, args); err != nil {
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// createApp 创建 CLI 应用。
func createApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "xzipkind",
		Usage:   "带 Zipkin B3 追踪的 HTTP 服务",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml/json）",
				Sources: cli.EnvVars("XZIPKIN_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			createServeCommand(),
			createCheckCommand(),
			createHeadersCommand(),
		},
		DefaultCommand: "serve",
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		OnUsageError:   onUsageError,
	}
}

// onUsageError 把 urfave/cli 的参数解析错误包装为 usageError，子命令各自设置
func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{err: err}
}

// overrideFlags 各子命令共用的配置覆盖参数，显式设置时优先于配置文件
func overrideFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "addr", Usage: "监听地址"},
		&cli.StringFlag{Name: "upstream", Usage: "反向代理的上游地址"},
		&cli.StringFlag{Name: "service-name", Usage: "记录的服务名"},
		&cli.StringFlag{Name: "exporter", Usage: "span 导出器: none/stdout/otlp"},
		&cli.StringFlag{Name: "otlp-endpoint", Usage: "OTLP gRPC 端点"},
		&cli.StringFlag{Name: "sampler", Usage: "采样策略: always/never/rate/count/trace_id"},
		&cli.FloatFlag{Name: "sample-rate", Usage: "rate/trace_id 策略的采样比率"},
		&cli.StringFlag{Name: "log-level", Usage: "日志级别: debug/info/warn/error"},
	}
}

// settingsFromCommand 加载配置文件、叠加命令行覆盖并校验
func settingsFromCommand(cmd *cli.Command) (Settings, error) {
	s, _, err := loadAndOverride(cmd)
	return s, err
}

func applyOverrides(cmd *cli.Command, s *Settings) error {
	if cmd.IsSet("addr") {
		s.Server.Addr = cmd.String("addr")
	}
	if cmd.IsSet("upstream") {
		s.Server.Upstream = cmd.String("upstream")
	}
	if cmd.IsSet("service-name") {
		s.Tracing.ServiceName = cmd.String("service-name")
	}
	if cmd.IsSet("exporter") {
		s.Tracing.Exporter.Type = cmd.String("exporter")
	}
	if cmd.IsSet("otlp-endpoint") {
		s.Tracing.Exporter.Endpoint = cmd.String("otlp-endpoint")
	}
	if cmd.IsSet("sampler") {
		s.Tracing.Sampler.Strategy = cmd.String("sampler")
	}
	if cmd.IsSet("sample-rate") {
		s.Tracing.Sampler.Rate = cmd.Float("sample-rate")
	}
	if cmd.IsSet("log-level") {
		if err := s.Log.Level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return err
		}
	}
	return nil
}

func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:         "serve",
		OnUsageError: onUsageError,
		Usage:        "启动服务",
		Flags:        overrideFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, cfg, err := loadAndOverride(cmd)
			if err != nil {
				return err
			}
			return serve(ctx, s, cfg)
		},
	}
}

func createCheckCommand() *cli.Command {
	return &cli.Command{
		Name:         "check",
		OnUsageError: onUsageError,
		Usage:        "校验配置并打印生效值",
		Flags:        overrideFlags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			s, err := settingsFromCommand(cmd)
			if err != nil {
				return err
			}
			printSettings(cmd.Root().Writer, s)
			return nil
		},
	}
}

func createHeadersCommand() *cli.Command {
	return &cli.Command{
		Name:         "headers",
		OnUsageError: onUsageError,
		Usage:        "生成根追踪标识并打印 B3 头",
		Flags:        overrideFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, err := settingsFromCommand(cmd)
			if err != nil {
				return err
			}
			// 只生成标识，不需要导出
			s.Tracing.Exporter.Type = exporterNone
			s.Tracing.LogAnnotations = false
			tel, err := newTelemetry(ctx, s.Tracing, nil)
			if err != nil {
				return err
			}
			h := make(http.Header)
			xtrace.InjectIDToHeader(h, tel.tracer.CreateRootID(ctx))
			printHeaders(cmd.Root().Writer, h)
			return nil
		},
	}
}

// loadAndOverride 返回的 xconf.Config 在未指定配置文件时为 nil
func loadAndOverride(cmd *cli.Command) (Settings, xconf.Config, error) {
	s, cfg, err := loadSettings(cmd.String("config"))
	if err != nil {
		return s, nil, &usageError{err: err}
	}
	if err := applyOverrides(cmd, &s); err != nil {
		return s, nil, &usageError{err: err}
	}
	if err := s.Validate(); err != nil {
		return s, nil, &usageError{err: err}
	}
	return s, cfg, nil
}

// b3Headers 打印顺序
var b3Headers = []string{
	xtrace.HeaderTraceID, xtrace.HeaderSpanID, xtrace.HeaderParentSpanID,
	xtrace.HeaderSampled, xtrace.HeaderFlags,
}

// printHeaders 按 B3 原始大小写打印，便于直接粘贴到 curl -H
func printHeaders(w io.Writer, h http.Header) {
	for _, name := range b3Headers {
		if v := h.Get(name); v != "" {
			fmt.Fprintf(w, "%s: %s\n", name, v)
		}
	}
}

func printSettings(w io.Writer, s Settings) {
	fmt.Fprintf(w, "server.addr: %s\n", s.Server.Addr)
	fmt.Fprintf(w, "server.shutdown_timeout: %s\n", s.Server.ShutdownTimeout)
	fmt.Fprintf(w, "server.upstream: %s\n", s.Server.Upstream)
	fmt.Fprintf(w, "server.breaker.consecutive_failures: %d\n", s.Server.Breaker.ConsecutiveFailures)
	fmt.Fprintf(w, "server.metrics_path: %s\n", s.Server.MetricsPath)
	fmt.Fprintf(w, "tracing.service_name: %s\n", s.Tracing.ServiceName)
	fmt.Fprintf(w, "tracing.port: %d\n", s.Tracing.Port)
	fmt.Fprintf(w, "tracing.trace_id_128bit: %t\n", s.Tracing.TraceID128Bit)
	fmt.Fprintf(w, "tracing.cors: %t\n", s.Tracing.CORS)
	fmt.Fprintf(w, "tracing.log_annotations: %t\n", s.Tracing.LogAnnotations)
	fmt.Fprintf(w, "tracing.max_pending_spans: %d\n", s.Tracing.MaxPendingSpans)
	fmt.Fprintf(w, "tracing.sampler.strategy: %s\n", s.Tracing.Sampler.Strategy)
	fmt.Fprintf(w, "tracing.sampler.rate: %g\n", s.Tracing.Sampler.Rate)
	fmt.Fprintf(w, "tracing.sampler.n: %d\n", s.Tracing.Sampler.N)
	fmt.Fprintf(w, "tracing.exporter.type: %s\n", s.Tracing.Exporter.Type)
	fmt.Fprintf(w, "tracing.exporter.endpoint: %s\n", s.Tracing.Exporter.Endpoint)
	fmt.Fprintf(w, "log.level: %s\n", s.Log.Level)
	fmt.Fprintf(w, "log.format: %s\n", s.Log.Format)
	fmt.Fprintf(w, "log.file: %s\n", s.Log.File)
}
