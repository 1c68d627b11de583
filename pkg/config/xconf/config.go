package xconf

import "github.com/knadh/koanf/v2"

// Format 配置文件格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 配置实例
//
// 基础读取直接使用 Client() 返回的 koanf 实例，这里只提供反序列化与重载。
type Config interface {
	// Client 返回当前生效的 koanf 实例，Reload 后返回新实例
	Client() *koanf.Koanf

	// Unmarshal 将 path 下的配置解码到 target，path 为空时解码整个配置
	//
	// target 中已有的值在配置缺失对应键时保持不变，可用于预置默认值。
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件，解析失败时保留旧配置
	Reload() error

	// Path 配置文件路径，从字节创建时为空
	Path() string

	Format() Format
}
