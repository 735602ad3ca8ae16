package middleware

import (
	"context"

	"google.golang.org/grpc"
)

// Chain 按顺序组合客户端拦截器，第一个拦截器位于最外层
func Chain(interceptors ...grpc.UnaryClientInterceptor) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		// 构建调用链
		chainInvoker := invoker
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chainInvoker
			chainInvoker = func(currentCtx context.Context, currentMethod string, currentReq, currentReply interface{}, currentCC *grpc.ClientConn, currentOpts ...grpc.CallOption) error {
				return current(currentCtx, currentMethod, currentReq, currentReply, currentCC, next, currentOpts...)
			}
		}
		return chainInvoker(ctx, method, req, reply, cc, opts...)
	}
}
