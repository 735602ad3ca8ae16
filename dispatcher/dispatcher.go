// Package dispatcher 协议调度
// 对已通过协议校验的服务发起一次调用，传输相关逻辑全部封装在调用策略中
package dispatcher

import (
	"context"
	"time"

	"github.com/dysodeng/discovery/contracts"
	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/logger"
	"github.com/dysodeng/discovery/metadata"
	"go.uber.org/zap"
)

// Dispatcher 协议调度器
type Dispatcher struct{}

func New() *Dispatcher {
	return &Dispatcher{}
}

// Invoke 使用调用策略向服务发起一次调用
// strategy 必须来自协议校验结果，且与服务声明的协议完全一致
func (d *Dispatcher) Invoke(ctx context.Context, strategy contracts.InvocationStrategy, descriptor *metadata.ServiceDescriptor, request any) (any, error) {
	if strategy == nil || descriptor == nil {
		return nil, rpcError.New(rpcError.InvalidArgument, "dispatcher requires a validated strategy and descriptor")
	}
	if strategy.Protocol() != descriptor.Protocol() {
		return nil, rpcError.WithFields(
			rpcError.New(rpcError.IncompatibleProtocol, "strategy does not match the provider's protocol"),
			map[string]string{
				"protocol_kind":      descriptor.ProtocolKind,
				"protocol_reference": descriptor.ProtocolReference,
				"strategy":           strategy.Protocol().String(),
			},
		)
	}
	if err := rpcError.FromContext(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()
	resp, err := strategy.Invoke(ctx, descriptor.Location, request)

	fields := []zap.Field{
		zap.String("location", descriptor.Location),
		zap.String("protocol_kind", descriptor.ProtocolKind),
		zap.String("protocol_reference", descriptor.ProtocolReference),
		zap.Float64("latency_ms", float64(time.Since(startTime).Nanoseconds())/1e6),
	}

	if err != nil {
		if rpcError.CodeOf(err) == rpcError.Unknown {
			err = rpcError.Wrap(rpcError.CallFailed, err, "provider call failed")
		}
		fields = append(fields, zap.Error(err))
		logger.Logger().Warn("provider invocation failed", fields...)
		return nil, err
	}

	logger.Logger().Debug("provider invocation completed", fields...)
	return resp, nil
}
