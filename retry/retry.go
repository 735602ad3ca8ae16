package retry

import (
	"context"
	"time"

	rpcError "github.com/dysodeng/discovery/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Policy 重试策略
// 服务发现本身不做重试，由调用方用 Do 包装整次发现，或通过 Interceptor 配置在传输层
type Policy struct {
	// MaxAttempts 最大重试次数（包括首次请求），小于1时按1处理
	MaxAttempts uint
	// InitialBackoff 初始重试等待时间
	InitialBackoff time.Duration
	// MaxBackoff 最大重试等待时间
	MaxBackoff time.Duration
	// BackoffMultiplier 重试等待时间的增长倍数
	BackoffMultiplier float64
	// RetryableErrors 传输层可重试的 grpc 错误码列表
	RetryableErrors []codes.Code
	// RetryableCodes 整次发现可重试的错误码列表
	RetryableCodes []rpcError.ErrorCode
}

// DefaultRetryPolicy 默认重试策略
var DefaultRetryPolicy = &Policy{
	MaxAttempts:       3,                      // 最多重试3次（包括首次请求）
	InitialBackoff:    100 * time.Millisecond, // 首次重试等待100ms
	MaxBackoff:        1 * time.Second,        // 最大重试等待时间1秒
	BackoffMultiplier: 2.0,                    // 每次重试等待时间是上次的2倍
	RetryableErrors: []codes.Code{
		codes.Unavailable,       // 服务不可用
		codes.ResourceExhausted, // 资源耗尽（如限流）
	},
	RetryableCodes: []rpcError.ErrorCode{
		rpcError.RegistryUnreachable, // 注册中心不可达
		rpcError.ConnectFailed,       // 服务提供方连接失败
	},
}

func (p *Policy) retryableStatus(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return true
	}
	for _, code := range p.RetryableErrors {
		if st.Code() == code {
			return true
		}
	}
	return false
}

func (p *Policy) retryableCode(err error) bool {
	code := rpcError.CodeOf(err)
	for _, c := range p.RetryableCodes {
		if code == c {
			return true
		}
	}
	return false
}

// run 按策略执行 fn，retryable 判断错误是否可重试
func (p *Policy) run(ctx context.Context, fn func() error, retryable func(error) bool) error {
	var lastErr error
	var backoff = p.InitialBackoff
	// 至少执行一次
	attempts := max(p.MaxAttempts, 1)

	for attempt := uint(0); attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if !retryable(err) {
			return err
		}

		// 计算下一次重试的等待时间
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
			backoff = time.Duration(float64(backoff) * p.BackoffMultiplier)
			if backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		}
	}

	return lastErr
}

// Do 按策略重复执行整次服务发现
// 协议不兼容、调用失败等非基础设施错误不会重试
func Do(ctx context.Context, policy *Policy, fn func(ctx context.Context) error) error {
	if policy == nil {
		policy = DefaultRetryPolicy
	}
	return policy.run(ctx, func() error {
		return fn(ctx)
	}, policy.retryableCode)
}

// Interceptor 创建重试拦截器
func Interceptor(policy *Policy) grpc.UnaryClientInterceptor {
	if policy == nil {
		policy = DefaultRetryPolicy
	}
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return policy.run(ctx, func() error {
			return invoker(ctx, method, req, reply, cc, opts...)
		}, policy.retryableStatus)
	}
}
