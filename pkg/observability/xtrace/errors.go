package xtrace

import "errors"

// errHandlerPanic 标记 handler panic 的观测结果
var errHandlerPanic = errors.New("xtrace: handler panicked")
