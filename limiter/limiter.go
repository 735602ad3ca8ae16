package limiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RateLimiter 限流器
type RateLimiter interface {
	Allow() bool
	Wait(ctx context.Context) error
}

// TokenBucketLimiter 令牌桶限流器
type TokenBucketLimiter struct {
	*rate.Limiter
}

// NewTokenBucketLimiter 创建令牌桶限流器
// @params tokenRate 每秒产生的令牌数，不小于1
// @params bucketSize 令牌桶容量
func NewTokenBucketLimiter(tokenRate float64, bucketSize int) *TokenBucketLimiter {
	return &TokenBucketLimiter{Limiter: rate.NewLimiter(rate.Limit(max(tokenRate, 1)), bucketSize)}
}

// TargetLimiter 按服务地址独立限流
type TargetLimiter struct {
	tokenRate  float64
	bucketSize int

	mu       sync.Mutex
	limiters map[string]*TokenBucketLimiter
}

func NewTargetLimiter(tokenRate float64, bucketSize int) *TargetLimiter {
	return &TargetLimiter{
		tokenRate:  tokenRate,
		bucketSize: bucketSize,
		limiters:   make(map[string]*TokenBucketLimiter),
	}
}

// For 获取地址对应的限流器
func (l *TargetLimiter) For(target string) RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	tb, ok := l.limiters[target]
	if !ok {
		tb = NewTokenBucketLimiter(l.tokenRate, l.bucketSize)
		l.limiters[target] = tb
	}
	return tb
}

func (l *TargetLimiter) Allow() bool {
	return l.For("").Allow()
}

func (l *TargetLimiter) Wait(ctx context.Context) error {
	return l.For("").Wait(ctx)
}

// Interceptor 客户端限流拦截器，限制向注册中心或服务提供方发出的请求速率
// limiter 为 *TargetLimiter 时按连接地址限流
func Interceptor(limiter RateLimiter) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		l := limiter
		if tl, ok := limiter.(*TargetLimiter); ok && cc != nil {
			l = tl.For(cc.Target())
		}
		if err := l.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return status.FromContextError(ctx.Err()).Err()
			}
			// 等待时间超过 ctx 截止时间或请求数超过桶容量
			return status.Error(codes.ResourceExhausted, "client rate limit exceeded")
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
