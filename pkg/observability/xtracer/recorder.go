package xtracer

import (
	"context"
	"slices"
	"sync"
)

//go:generate mockgen -source=recorder.go -destination=mock_recorder_test.go -package=xtracer_test Recorder

// Recorder 接收追踪器产生的注解记录
//
// 实现必须并发安全：多个请求会同时调用 Record。
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// RecorderFunc 函数适配器
type RecorderFunc func(ctx context.Context, rec Record)

// Record 实现 Recorder
func (f RecorderFunc) Record(ctx context.Context, rec Record) { f(ctx, rec) }

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Record) {}

// NopRecorder 返回丢弃所有记录的 Recorder
func NopRecorder() Recorder { return nopRecorder{} }

// =============================================================================
// MultiRecorder
// =============================================================================

type multiRecorder []Recorder

// MultiRecorder 将记录依次转发给多个 Recorder，nil 元素被跳过
func MultiRecorder(recorders ...Recorder) Recorder {
	out := make(multiRecorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m multiRecorder) Record(ctx context.Context, rec Record) {
	for _, r := range m {
		r.Record(ctx, rec)
	}
}

// =============================================================================
// MemoryRecorder
// =============================================================================

// MemoryRecorder 在内存中保存所有记录
type MemoryRecorder struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryRecorder 创建内存 Recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record 实现 Recorder
func (m *MemoryRecorder) Record(_ context.Context, rec Record) {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
}

// Records 返回所有记录的副本
func (m *MemoryRecorder) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

// BySpan 返回指定 span 的记录，保持记录顺序
func (m *MemoryRecorder) BySpan(spanID string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.ID.SpanID() == spanID {
			out = append(out, r)
		}
	}
	return out
}

// Len 返回记录数
func (m *MemoryRecorder) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Reset 清空记录
func (m *MemoryRecorder) Reset() {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
}

var (
	_ Recorder = RecorderFunc(nil)
	_ Recorder = nopRecorder{}
	_ Recorder = multiRecorder(nil)
	_ Recorder = (*MemoryRecorder)(nil)
)
