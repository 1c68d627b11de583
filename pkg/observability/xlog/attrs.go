package xlog

import (
	"log/slog"
	"time"
)

// =============================================================================
// 标准属性 Key
// =============================================================================

const (
	KeyError      = "error"
	KeyStack      = "stack"
	KeyDuration   = "duration"
	KeyComponent  = "component"
	KeyOperation  = "operation"
	KeyService    = "service"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatusCode = "status_code"
	KeyAddr       = "addr"
)

// =============================================================================
// 便捷属性构造
// =============================================================================

// Err 创建错误属性，err 为 nil 时返回会被 slog 忽略的空属性
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 以人类可读格式（如 "1.5s"）记录耗时
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Service 标识被追踪服务的名称
func Service(name string) slog.Attr {
	return slog.String(KeyService, name)
}

func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Addr 监听或对端地址
func Addr(addr string) slog.Attr {
	return slog.String(KeyAddr, addr)
}
