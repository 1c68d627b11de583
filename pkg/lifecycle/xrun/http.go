package xrun

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// HTTPServer 把 http.Server 包装为服务：ctx 结束时 Shutdown，等待在途请求
//
// ln 非 nil 时在 ln 上 Serve，否则 ListenAndServe。
// shutdownTimeout 非正表示不限时等待。
func HTTPServer(server *http.Server, ln net.Listener, shutdownTimeout time.Duration) Service {
	return ServiceFunc(func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}

		shutdownErr := make(chan error, 1)
		serveDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				sctx := context.WithoutCancel(ctx)
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					sctx, cancel = context.WithTimeout(sctx, shutdownTimeout)
					defer cancel()
				}
				shutdownErr <- server.Shutdown(sctx)
			case <-serveDone:
			}
		}()

		var err error
		if ln != nil {
			err = server.Serve(ln)
		} else {
			err = server.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			close(serveDone)
			return err
		}
		select {
		case <-ctx.Done():
			return <-shutdownErr
		default:
			// 外部直接关闭了 server
			close(serveDone)
			return nil
		}
	})
}
