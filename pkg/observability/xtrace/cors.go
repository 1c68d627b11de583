package xtrace

import (
	"net/http"
	"strings"
)

// CORS 响应头
const (
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"
)

var allowHeaders = strings.Join([]string{
	"Origin", "Accept", "X-Requested-With",
	HeaderTraceID, HeaderParentSpanID, HeaderSpanID, HeaderSampled, HeaderFlags,
}, ", ")

// setCORSHeaders 允许浏览器端跨域携带 B3 头
func setCORSHeaders(h http.Header) {
	h.Set(HeaderAllowOrigin, "*")
	h.Set(HeaderAllowHeaders, allowHeaders)
}
