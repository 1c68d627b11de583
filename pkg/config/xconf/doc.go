// Package xconf 基于 koanf 加载 YAML/JSON 配置，并通过 fsnotify 监视文件变更。
//
// # 加载
//
//	cfg, err := xconf.New("/etc/xzipkind/config.yaml")
//	settings := defaultSettings()
//	err = cfg.Unmarshal("", &settings) // 缺失的键保留默认值
//
// # 热更新
//
// [Watcher.Run] 阻塞直到 ctx 结束，适合作为 xrun 服务运行。文件变更经防抖后调用
// Reload，再把结果交给回调；解析失败时旧配置继续生效。
//
//	w, err := xconf.Watch(cfg, func(c xconf.Config, err error) { ... })
//	go w.Run(ctx)
package xconf
