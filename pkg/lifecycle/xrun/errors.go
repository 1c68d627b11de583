package xrun

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSignal 因收到系统信号而退出，使用 errors.Is 判断
	ErrSignal = errors.New("xrun: received signal")

	// ErrNilService 注册了 nil 服务
	ErrNilService = errors.New("xrun: nil service")

	// ErrNilServer HTTPServer 收到 nil server
	ErrNilServer = errors.New("xrun: nil http server")
)

// SignalError 携带触发退出的信号
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("xrun: received signal %v", e.Signal)
}

func (e *SignalError) Unwrap() error {
	return ErrSignal
}
