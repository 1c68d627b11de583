package xtracer

import "context"

type idContextKey struct{}

// ContextWithID 返回绑定了 id 的派生 context
//
// ctx 为 nil 时以 context.Background() 为父。
func ContextWithID(ctx context.Context, id ID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, idContextKey{}, id)
}

// IDFromContext 返回 ctx 上绑定的当前标识
func IDFromContext(ctx context.Context) (ID, bool) {
	if ctx == nil {
		return ID{}, false
	}
	id, ok := ctx.Value(idContextKey{}).(ID)
	return id, ok
}
