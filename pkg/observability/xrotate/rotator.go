package xrotate

import "io"

var _ io.WriteCloser = (Rotator)(nil)

// Rotator 日志轮转器
//
// 在 io.WriteCloser 之上增加手动轮转能力，可直接作为 xlog 的输出目标。
type Rotator interface {
	// Write 写入日志数据，达到大小阈值时自动轮转
	Write(p []byte) (n int, err error)

	// Close 关闭当前文件，重复调用返回 [ErrClosed]
	Close() error

	// Rotate 立即轮转：当前文件改名为备份，随后写入新文件
	Rotate() error
}
