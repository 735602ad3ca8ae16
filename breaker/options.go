package breaker

import "time"

// Option 断路器配置选项
type Option func(*circuitBreaker)

// WithFailureThreshold 设置故障阈值
func WithFailureThreshold(threshold uint32) Option {
	return func(cb *circuitBreaker) {
		cb.failureThreshold = threshold
	}
}

// WithSuccessThreshold 设置成功阈值
func WithSuccessThreshold(threshold uint32) Option {
	return func(cb *circuitBreaker) {
		cb.successThreshold = threshold
	}
}

// WithTimeout 设置开启状态持续时间，超过后进入半开状态
func WithTimeout(timeout time.Duration) Option {
	return func(cb *circuitBreaker) {
		cb.timeout = timeout
	}
}

// WithIsFailureFunc 设置错误判断函数
func WithIsFailureFunc(f func(err error) bool) Option {
	return func(cb *circuitBreaker) {
		cb.isFailure = f
	}
}

// withClock 替换时钟，仅用于测试
func withClock(now func() time.Time) Option {
	return func(cb *circuitBreaker) {
		cb.now = now
	}
}
