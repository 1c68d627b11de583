package xctx

import "context"

type contextFieldSetter struct {
	value string
	set   func(context.Context, string) (context.Context, error)
}

// 设计决策: 仅注入非空字段，无法表达"显式清空"。
// 父 context 中已存在的字段会被保留，入口层设置基础值，后续层只补充缺失字段。
func applyOptionalFields(ctx context.Context, fields []contextFieldSetter) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		var err error
		ctx, err = field.set(ctx, field.value)
		if err != nil {
			return nil, err
		}
	}
	return ctx, nil
}
