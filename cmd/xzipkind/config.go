package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/omeyang/xzipkin/pkg/config/xconf"
	"github.com/omeyang/xzipkin/pkg/observability/xlog"
	"github.com/omeyang/xzipkin/pkg/observability/xsampling"
)

// 导出器类型
const (
	exporterNone   = "none"
	exporterStdout = "stdout"
	exporterOTLP   = "otlp"
)

var (
	errInvalidExporter = errors.New("xzipkind: tracing.exporter.type must be none, stdout or otlp")
	errMissingEndpoint = errors.New("xzipkind: tracing.exporter.endpoint is required for otlp")
	errInvalidUpstream = errors.New("xzipkind: server.upstream must be an absolute http(s) URL")
	errInvalidAddr     = errors.New("xzipkind: server.addr is required")
)

// Settings 服务配置，对应配置文件的 server、tracing、log 三段
type Settings struct {
	Server  ServerSettings  `koanf:"server"`
	Tracing TracingSettings `koanf:"tracing"`
	Log     LogSettings     `koanf:"log"`
}

type ServerSettings struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Upstream 非空时把请求反向代理到该地址，出站请求带 B3 头
	Upstream    string          `koanf:"upstream"`
	Breaker     BreakerSettings `koanf:"breaker"`
	MetricsPath string          `koanf:"metrics_path"`
}

type TracingSettings struct {
	ServiceName    string `koanf:"service_name"`
	Port           int    `koanf:"port"`
	LocalHost      string `koanf:"local_host"`
	TraceID128Bit  bool   `koanf:"trace_id_128bit"`
	CORS           bool   `koanf:"cors"`
	LogAnnotations bool   `koanf:"log_annotations"`

	// MaxPendingSpans 导出器侧未结束 span 的上限，0 表示使用默认值
	MaxPendingSpans int `koanf:"max_pending_spans"`

	Sampler  xsampling.Config `koanf:"sampler"`
	Exporter ExporterSettings `koanf:"exporter"`
}

type ExporterSettings struct {
	Type     string `koanf:"type"`
	Endpoint string `koanf:"endpoint"`
	Insecure bool   `koanf:"insecure"`
}

type LogSettings struct {
	Level      xlog.Level `koanf:"level"`
	Format     string     `koanf:"format"`
	File       string     `koanf:"file"`
	MaxSizeMB  int        `koanf:"max_size_mb"`
	MaxBackups int        `koanf:"max_backups"`
	MaxAgeDays int        `koanf:"max_age_days"`
	Compress   bool       `koanf:"compress"`
}

func defaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			MetricsPath:     "/metrics",
			Breaker:         BreakerSettings{Timeout: 30 * time.Second},
		},
		Tracing: TracingSettings{
			ServiceName: "xzipkind",
			CORS:        true,
			Sampler:     xsampling.Config{Strategy: xsampling.StrategyAlways},
			Exporter:    ExporterSettings{Type: exporterNone},
		},
		Log: LogSettings{
			Level:      xlog.LevelInfo,
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// loadSettings 读取配置文件并叠加到默认值上，path 为空时只用默认值
func loadSettings(path string) (Settings, xconf.Config, error) {
	s := defaultSettings()
	if path == "" {
		return s, nil, nil
	}
	cfg, err := xconf.New(path)
	if err != nil {
		return s, nil, err
	}
	if err := cfg.Unmarshal("", &s); err != nil {
		return s, nil, err
	}
	return s, cfg, nil
}

// Validate 校验配置
func (s *Settings) Validate() error {
	if s.Server.Addr == "" {
		return errInvalidAddr
	}
	s.Tracing.Exporter.Type = strings.ToLower(strings.TrimSpace(s.Tracing.Exporter.Type))
	switch s.Tracing.Exporter.Type {
	case "":
		s.Tracing.Exporter.Type = exporterNone
	case exporterNone, exporterStdout:
	case exporterOTLP:
		if s.Tracing.Exporter.Endpoint == "" {
			return errMissingEndpoint
		}
	default:
		return fmt.Errorf("%w: got %q", errInvalidExporter, s.Tracing.Exporter.Type)
	}
	if s.Server.Upstream != "" {
		u, err := url.Parse(s.Server.Upstream)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: got %q", errInvalidUpstream, s.Server.Upstream)
		}
	}
	if _, err := xsampling.FromConfig(s.Tracing.Sampler); err != nil {
		return err
	}
	return nil
}
