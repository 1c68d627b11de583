package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xzipkin/pkg/config/xconf"
	"github.com/omeyang/xzipkin/pkg/observability/xlog"
	"github.com/omeyang/xzipkin/pkg/observability/xtrace"
)

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"xzipkind"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_CheckPrintsEffectiveSettings(t *testing.T) {
	path := writeConfig(t, "xzipkind.yaml", "tracing:\n  service_name: from-file\n")

	code, out, stderr := runCLI("-c", path, "check", "--addr", ":9999", "--log-level", "warn")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "server.addr: :9999")
	assert.Contains(t, out, "tracing.service_name: from-file")
	assert.Contains(t, out, "log.level: WARN")
	assert.Contains(t, out, "tracing.exporter.type: none")
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "非法导出器", args: []string{"check", "--exporter", "zipkin-v1"}},
		{name: "非法日志级别", args: []string{"check", "--log-level", "verbose"}},
		{name: "配置文件不存在", args: []string{"-c", "/nonexistent/xzipkind.yaml", "check"}},
		{name: "未知参数", args: []string{"check", "--no-such-flag"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(tt.args...)
			assert.Equal(t, 2, code)
			assert.NotEmpty(t, stderr)
		})
	}
}

func TestRun_Headers(t *testing.T) {
	code, out, stderr := runCLI("headers", "--sampler", "never")
	require.Equal(t, 0, code, stderr)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], xtrace.HeaderTraceID+": "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], xtrace.HeaderSpanID+": "), lines[1])
	assert.Equal(t, xtrace.HeaderSampled+": 0", lines[2])

	// 64-bit 根标识的 trace_id 与 span_id 相同
	assert.Equal(t, strings.TrimPrefix(lines[0], xtrace.HeaderTraceID+": "),
		strings.TrimPrefix(lines[1], xtrace.HeaderSpanID+": "))
}

func TestBuildLogger_Rotation(t *testing.T) {
	s := defaultSettings().Log
	s.File = filepath.Join(t.TempDir(), "logs", "xzipkind.log")
	s.Format = "json"

	logger, cleanup, err := buildLogger(s, "checkout")
	require.NoError(t, err)
	logger.Info(context.Background(), "hello")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(s.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"checkout"`)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestReloadHandler_UpdatesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().SetOutput(&buf).Build()
	require.NoError(t, err)
	defer func() { _ = cleanup() }()

	cb := reloadHandler(logger)

	cfg, err := xconf.NewFromBytes([]byte("log:\n  level: debug\n"), xconf.FormatYAML)
	require.NoError(t, err)
	cb(cfg, nil)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())
	assert.Contains(t, buf.String(), "log level changed")

	// 缺少 log 段时保留当前级别
	cfg, err = xconf.NewFromBytes([]byte("server:\n  addr: :1\n"), xconf.FormatYAML)
	require.NoError(t, err)
	cb(cfg, nil)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())

	cfg, err = xconf.NewFromBytes([]byte("log:\n  level: loud\n"), xconf.FormatYAML)
	require.NoError(t, err)
	cb(cfg, nil)
	assert.Equal(t, xlog.LevelDebug, logger.GetLevel())
	assert.Contains(t, buf.String(), "invalid log section")

	cb(nil, assert.AnError)
	assert.Contains(t, buf.String(), "config reload failed")
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	path := writeConfig(t, "xzipkind.yaml", "server:\n  addr: 127.0.0.1:0\n")
	s, cfg, err := loadSettings(path)
	require.NoError(t, err)
	s.Log.File = filepath.Join(t.TempDir(), "serve.log")
	require.NoError(t, s.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, s, cfg) }()

	// 等待服务写出启动日志
	require.Eventually(t, func() bool {
		data, _ := os.ReadFile(s.Log.File)
		return strings.Contains(string(data), "xzipkind started")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after context cancel")
	}
}
