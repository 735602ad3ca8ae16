package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

func Logging(log *zap.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		startTime := time.Now()

		err := invoker(ctx, method, req, reply, cc, opts...)

		// 获取 grpc 状态码
		st, _ := status.FromError(err)
		fields := []zap.Field{
			zap.String("method", method),
			zap.Float64("latency_ms", float64(time.Since(startTime).Nanoseconds())/1e6),
			zap.String("status_code", st.Code().String()),
		}

		if cc != nil {
			fields = append(fields, zap.String("target", cc.Target()))
		}

		if err != nil {
			fields = append(fields, zap.Error(err))
			log.Warn("rpc call failed", fields...)
		} else {
			log.Debug("rpc call completed", fields...)
		}

		return err
	}
}
