package breaker

import (
	"context"
	"sort"
	"sync"
)

// Set 按服务地址隔离的断路器
// 一个服务提供方故障不会影响对其它地址的调用
type Set struct {
	mu       sync.Mutex
	options  []Option
	breakers map[string]CircuitBreaker
}

func NewSet(options ...Option) *Set {
	return &Set{
		options:  options,
		breakers: make(map[string]CircuitBreaker),
	}
}

// For 获取地址对应的断路器，不存在时创建
func (s *Set) For(target string) CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[target]
	if !ok {
		cb = NewCircuitBreaker(s.options...)
		s.breakers[target] = cb
	}
	return cb
}

// Execute 地址未知的调用共用空地址的断路器
func (s *Set) Execute(ctx context.Context, run func() error, fallback func(error) error) error {
	return s.For("").Execute(ctx, run, fallback)
}

func (s *Set) State() State {
	return s.For("").State()
}

// Open 当前处于开启状态的地址
func (s *Set) Open() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var targets []string
	for target, cb := range s.breakers {
		if cb.State() == StateOpen {
			targets = append(targets, target)
		}
	}
	sort.Strings(targets)
	return targets
}
