package middleware

import (
	"context"
	"time"

	"github.com/dysodeng/discovery/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

func Metrics() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		startTime := time.Now()

		err := invoker(ctx, method, req, reply, cc, opts...)

		st, _ := status.FromError(err)
		metrics.RecordRequest(
			ctx,
			method,
			st.Code().String(),
			time.Since(startTime).Seconds(),
		)

		return err
	}
}
