package xtrace

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/omeyang/xzipkin/pkg/util/xoption"
)

// =============================================================================
// B3 Header 常量
// =============================================================================

// B3 传播头名称，匹配时大小写不敏感
const (
	HeaderTraceID      = "X-B3-TraceId"
	HeaderSpanID       = "X-B3-SpanId"
	HeaderParentSpanID = "X-B3-ParentSpanId"
	HeaderSampled      = "X-B3-Sampled"
	HeaderFlags        = "X-B3-Flags"
)

// PropagationHeaders 按固定顺序列出全部 B3 传播头
var PropagationHeaders = [...]string{
	HeaderTraceID,
	HeaderSpanID,
	HeaderParentSpanID,
	HeaderSampled,
	HeaderFlags,
}

// =============================================================================
// Header 解释
// =============================================================================

// ReadHeader 大小写不敏感地读取请求头。
//
// 头存在即返回 Some，空字符串同样视为存在；r 或 r.Header 为 nil 时返回 None。
func ReadHeader(r *http.Request, name string) xoption.Option[string] {
	if r == nil {
		return xoption.None[string]()
	}
	return readHeader(r.Header, name)
}

func readHeader(h http.Header, name string) xoption.Option[string] {
	if h == nil {
		return xoption.None[string]()
	}
	if v, ok := h[http.CanonicalHeaderKey(name)]; ok && len(v) > 0 {
		return xoption.Some(v[0])
	}
	// 直接写入 map 的非规范 key（如 "x-b3-traceid"）
	for k, v := range h {
		if len(v) > 0 && strings.EqualFold(k, name) {
			return xoption.Some(v[0])
		}
	}
	return xoption.None[string]()
}

// ContainsRequiredHeaders 报告 trace-id 与 span-id 头是否都存在（值可以为空）
func ContainsRequiredHeaders(r *http.Request) bool {
	return ReadHeader(r, HeaderTraceID).IsPresent() && ReadHeader(r, HeaderSpanID).IsPresent()
}

// StringToBoolean 仅当 s == "1" 时返回 true。
//
// "true"、"0"、空字符串等一律为 false。
func StringToBoolean(s string) bool {
	return s == "1"
}

// StringToIntOption 按十进制解析整数，失败返回 None
func StringToIntOption(s string) xoption.Option[int] {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return xoption.None[int]()
	}
	return xoption.Some(n)
}

// FormatRequestURL 重建外部可见的请求 URL：scheme://host + path + query。
//
// scheme 取 X-Forwarded-Proto，缺省时按是否 TLS 判定；host 取 Host 头；
// path 与 query 取未经改写的 RequestURI。仅用于注解展示，格式化失败时尽力而为。
func FormatRequestURL(r *http.Request) string {
	if r == nil {
		return ""
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := ReadHeader(r, "X-Forwarded-Proto").OrElse(""); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}

	host := r.Host
	if host == "" && r.URL != nil {
		host = r.URL.Host
	}

	return scheme + "://" + host + requestPath(r)
}

// requestPath 返回 path+query，优先使用原始 RequestURI
func requestPath(r *http.Request) string {
	raw := r.RequestURI
	if raw == "" {
		if r.URL == nil {
			return ""
		}
		return r.URL.RequestURI()
	}
	// 代理形式的绝对 URI 只保留 path+query
	if !strings.HasPrefix(raw, "/") {
		if u, err := url.ParseRequestURI(raw); err == nil && u.Host != "" {
			return u.RequestURI()
		}
	}
	return raw
}
