package transport

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dysodeng/discovery/breaker"
	"github.com/dysodeng/discovery/limiter"
	"github.com/dysodeng/discovery/logger"
	"github.com/dysodeng/discovery/middleware"
	"github.com/dysodeng/discovery/retry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Dial 创建 grpc 客户端连接
// 连接在首次调用时才真正建立，连接失败体现为调用返回 codes.Unavailable
func Dial(location string, opts ...Option) (*grpc.ClientConn, error) {
	options := &option{
		grpcDialOptions: []grpc.DialOption{},
		lb:              PickFirst,
	}
	for _, opt := range opts {
		opt(options)
	}

	target, err := Target(location)
	if err != nil {
		return nil, err
	}

	if options.credentials == nil {
		options.grpcDialOptions = append(
			options.grpcDialOptions,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	} else {
		options.grpcDialOptions = append(
			options.grpcDialOptions,
			grpc.WithTransportCredentials(options.credentials),
		)
	}

	// 拦截器
	var chain []grpc.UnaryClientInterceptor
	if options.withLogging {
		chain = append(chain, middleware.Logging(logger.Logger()))
	}
	if options.withMetrics {
		chain = append(chain, middleware.Metrics())
	}
	if options.withBreaker { // 熔断器
		chain = append(chain, breaker.Interceptor(options.cb))
	}
	if options.withRetry { // 重试
		chain = append(chain, retry.Interceptor(options.retryPolicy))
	}
	if options.withLimiter { // 限流
		chain = append(chain, limiter.Interceptor(options.rateLimiter))
	}
	if len(chain) > 0 {
		options.grpcDialOptions = append(
			options.grpcDialOptions,
			grpc.WithUnaryInterceptor(middleware.Chain(chain...)),
		)
	}

	switch options.lb {
	case RoundRobin, PickFirst:
		options.grpcDialOptions = append(
			options.grpcDialOptions,
			grpc.WithDefaultServiceConfig(fmt.Sprintf(`{"loadBalancingConfig":[{"%s":{}}]}`, options.lb)),
		)
	}

	conn, err := grpc.NewClient(target, options.grpcDialOptions...)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// Target 将服务地址转换为 grpc target
// http://host:port 与 https://host:port 取 host:port，无 scheme 的地址使用 passthrough 解析
func Target(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("empty service location")
	}

	if !strings.Contains(location, "://") {
		return "passthrough:///" + location, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("invalid service location %q: %w", location, err)
	}
	switch u.Scheme {
	case "http", "https", "grpc":
		if u.Host == "" {
			return "", fmt.Errorf("invalid service location %q: missing host", location)
		}
		return "passthrough:///" + u.Host, nil
	default:
		// dns:///, unix:// 等交由 grpc 解析
		return location, nil
	}
}

// LB 负载均衡
type LB string

const (
	PickFirst  LB = "pick_first"  // 选择第一个
	RoundRobin LB = "round_robin" // 轮询
)

type option struct {
	grpcDialOptions []grpc.DialOption
	lb              LB
	credentials     credentials.TransportCredentials
	withLogging     bool
	withMetrics     bool
	withBreaker     bool
	cb              breaker.CircuitBreaker
	withRetry       bool
	retryPolicy     *retry.Policy
	withLimiter     bool
	rateLimiter     limiter.RateLimiter
}

type Option func(o *option)

// WithLB 添加负载均衡选项
func WithLB(lb LB) Option {
	return func(o *option) {
		o.lb = lb
	}
}

// WithKeepalive 添加保活与超时选项
func WithKeepalive(keepaliveTime, timeout time.Duration, backoffConf backoff.Config) Option {
	return func(o *option) {
		o.grpcDialOptions = append(
			o.grpcDialOptions,
			grpc.WithConnectParams(grpc.ConnectParams{
				Backoff:           backoffConf,
				MinConnectTimeout: timeout,
			}),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                keepaliveTime, // 保活时间
				Timeout:             timeout,       // 保活超时
				PermitWithoutStream: true,          // 没有活动流时也保持连接
			}),
		)
	}
}

func WithTransportCredentials(credentials credentials.TransportCredentials) Option {
	return func(o *option) {
		o.credentials = credentials
	}
}

func WithGrpcDialOption(opts ...grpc.DialOption) Option {
	return func(o *option) {
		o.grpcDialOptions = append(o.grpcDialOptions, opts...)
	}
}

// WithLogging 记录每次 rpc 调用日志
func WithLogging() Option {
	return func(o *option) {
		o.withLogging = true
	}
}

// WithMetrics 记录每次 rpc 调用指标
func WithMetrics() Option {
	return func(o *option) {
		o.withMetrics = true
	}
}

// WithBreaker 设置熔断器
func WithBreaker(cb breaker.CircuitBreaker) Option {
	return func(o *option) {
		o.withBreaker = true
		o.cb = cb
	}
}

// WithRetry 设置传输层重试
func WithRetry(retryPolicy *retry.Policy) Option {
	return func(o *option) {
		o.withRetry = true
		o.retryPolicy = retryPolicy
	}
}

// WithLimiter 设置客户端限流
func WithLimiter(rateLimiter limiter.RateLimiter) Option {
	return func(o *option) {
		o.withLimiter = true
		o.rateLimiter = rateLimiter
	}
}
