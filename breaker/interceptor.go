package breaker

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Interceptor 熔断器拦截器
// cb 为 *Set 时按连接地址选择断路器
// 断路器开启时返回 codes.Unavailable，由调用方归类为连接失败
func Interceptor(cb CircuitBreaker) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		breaker := cb
		if set, ok := cb.(*Set); ok && cc != nil {
			breaker = set.For(cc.Target())
		}
		return breaker.Execute(
			ctx,
			func() error {
				return invoker(ctx, method, req, reply, cc, opts...)
			},
			func(err error) error {
				if errors.Is(err, ErrOpen) {
					return status.Error(codes.Unavailable, ErrOpen.Error())
				}
				return err
			},
		)
	}
}
