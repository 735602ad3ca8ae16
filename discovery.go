package discovery

import (
	"context"
	"time"

	"github.com/dysodeng/discovery/contracts"
	"github.com/dysodeng/discovery/dispatcher"
	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/logger"
	"github.com/dysodeng/discovery/metadata"
	"github.com/dysodeng/discovery/metrics"
	"github.com/dysodeng/discovery/naming"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ServiceDiscovery 服务发现
// 每次调用依次执行 查询 -> 协议校验 -> 调用，不做重试，不缓存服务描述
type ServiceDiscovery interface {
	// Discover 发现服务并发起一次调用
	// 未找到服务时返回 OutcomeNoProvider 且 error 为 nil
	// 其余失败返回对应阶段的原始错误，同时记录在 Result.Err 中
	Discover(ctx context.Context, query metadata.ServiceQuery, request any) (*Result, error)
}

// Validator 协议校验
type Validator interface {
	Validate(descriptor *metadata.ServiceDescriptor) (contracts.InvocationStrategy, error)
}

// Invoker 协议调度
type Invoker interface {
	Invoke(ctx context.Context, strategy contracts.InvocationStrategy, descriptor *metadata.ServiceDescriptor, request any) (any, error)
}

type serviceDiscovery struct {
	registry  naming.Registry
	validator Validator
	invoker   Invoker
}

func NewServiceDiscovery(registry naming.Registry, validator Validator, opts ...ServiceDiscoveryOption) ServiceDiscovery {
	s := &serviceDiscovery{
		registry:  registry,
		validator: validator,
		invoker:   dispatcher.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *serviceDiscovery) Discover(ctx context.Context, query metadata.ServiceQuery, request any) (*Result, error) {
	r := &Result{
		RunID:     uuid.NewString(),
		Query:     query,
		State:     StateQuerying,
		Durations: make(map[State]time.Duration, 3),
	}
	log := logger.Logger().With(
		zap.String("run_id", r.RunID),
		zap.Stringer("query", query),
	)

	// 查询
	if err := query.Validate(); err != nil {
		return s.fail(ctx, log, r, rpcError.Wrap(rpcError.InvalidArgument, err, "invalid service query"))
	}
	if err := rpcError.FromContext(ctx); err != nil {
		return s.fail(ctx, log, r, err)
	}
	descriptor, err := timed(ctx, r, func() (*metadata.ServiceDescriptor, error) {
		return s.registry.Resolve(ctx, query)
	})
	if err != nil {
		return s.fail(ctx, log, r, err)
	}
	if descriptor == nil {
		r.State = StateDone
		r.Outcome = OutcomeNoProvider
		log.Info("no service found")
		metrics.RecordDiscovery(ctx, r.Outcome.String(), "")
		return r, nil
	}
	r.Descriptor = descriptor
	log.Info("discovered service", zap.Stringer("service", descriptor))

	// 协议校验
	r.State = StateValidating
	if err = rpcError.FromContext(ctx); err != nil {
		return s.fail(ctx, log, r, err)
	}
	strategy, err := timed(ctx, r, func() (contracts.InvocationStrategy, error) {
		return s.validator.Validate(descriptor)
	})
	if err != nil {
		return s.fail(ctx, log, r, err)
	}

	// 调用
	r.State = StateInvoking
	if err = rpcError.FromContext(ctx); err != nil {
		return s.fail(ctx, log, r, err)
	}
	resp, err := timed(ctx, r, func() (any, error) {
		return s.invoker.Invoke(ctx, strategy, descriptor, request)
	})
	if err != nil {
		return s.fail(ctx, log, r, err)
	}

	r.State = StateDone
	r.Outcome = OutcomeSuccess
	r.Response = resp
	metrics.RecordDiscovery(ctx, r.Outcome.String(), "")
	return r, nil
}

func (s *serviceDiscovery) fail(ctx context.Context, log *zap.Logger, r *Result, err error) (*Result, error) {
	r.FailedIn = r.State
	r.State = StateDone
	r.Outcome = OutcomeFailure
	r.Err = err

	code := rpcError.CodeOf(err)
	log.Warn("service discovery failed",
		zap.String("phase", r.FailedIn.String()),
		zap.String("code", code.String()),
		zap.String("action", r.OperatorAction()),
		zap.Error(err),
	)
	metrics.RecordDiscovery(ctx, r.Outcome.String(), code.String())
	return r, err
}

// timed 记录当前阶段耗时
func timed[T any](ctx context.Context, r *Result, fn func() (T, error)) (T, error) {
	startTime := time.Now()
	v, err := fn()
	d := time.Since(startTime)
	r.Durations[r.State] = d
	metrics.RecordPhase(ctx, r.State.String(), d.Seconds())
	return v, err
}

// ServiceDiscoveryOption 服务发现选项
type ServiceDiscoveryOption func(s *serviceDiscovery)

// WithInvoker 替换协议调度器
func WithInvoker(invoker Invoker) ServiceDiscoveryOption {
	return func(s *serviceDiscovery) {
		if invoker != nil {
			s.invoker = invoker
		}
	}
}
