package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// State 断路器状态
type State int

const (
	StateClosed   State = iota // 放行所有请求
	StateHalfOpen              // 放行探测请求
	StateOpen                  // 拒绝所有请求
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrOpen 断路器开启时直接返回的错误
var ErrOpen = errors.New("circuit breaker open")

// CircuitBreaker 断路器
type CircuitBreaker interface {
	// Execute 执行 run，断路器开启或 run 计入失败时交给 fallback 处理
	Execute(ctx context.Context, run func() error, fallback func(error) error) error
	State() State
}

type circuitBreaker struct {
	mu sync.Mutex

	failureThreshold uint32
	successThreshold uint32
	timeout          time.Duration
	isFailure        func(err error) bool
	now              func() time.Time

	state      State
	generation uint64 // 每次状态切换加一，丢弃切换前发出的请求结果
	failures   uint32
	successes  uint32
	openedAt   time.Time
}

func NewCircuitBreaker(options ...Option) CircuitBreaker {
	cb := &circuitBreaker{
		failureThreshold: 5,
		successThreshold: 3,
		timeout:          10 * time.Second,
		isFailure:        DefaultIsFailure,
		now:              time.Now,
	}
	for _, option := range options {
		option(cb)
	}
	return cb
}

// DefaultIsFailure 只有连接类故障计入失败，服务提供方返回的业务错误不影响断路器
func DefaultIsFailure(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return true
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal, codes.Unknown:
		return true
	}
	return false
}

func (cb *circuitBreaker) Execute(_ context.Context, run func() error, fallback func(error) error) error {
	generation, ok := cb.allow()
	if !ok {
		return fallback(ErrOpen)
	}

	err := run()
	failed := cb.isFailure(err)
	cb.record(generation, failed)

	if failed {
		return fallback(err)
	}
	return err
}

func (cb *circuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.current()
}

// allow 判断请求能否放行，返回放行时的代数
func (cb *circuitBreaker) allow() (uint64, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.current() == StateOpen {
		return 0, false
	}
	return cb.generation, true
}

func (cb *circuitBreaker) record(generation uint64, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.current()
	if generation != cb.generation {
		return
	}

	switch {
	case failed && state == StateHalfOpen:
		cb.transition(StateOpen)
	case failed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.transition(StateOpen)
		}
	case state == StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.transition(StateClosed)
		}
	default:
		cb.failures = 0
	}
}

// current 开启超时后切换到半开，调用方需持有锁
func (cb *circuitBreaker) current() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) > cb.timeout {
		cb.transition(StateHalfOpen)
	}
	return cb.state
}

func (cb *circuitBreaker) transition(state State) {
	cb.state = state
	cb.generation++
	cb.failures = 0
	cb.successes = 0
	if state == StateOpen {
		cb.openedAt = cb.now()
	}
}
