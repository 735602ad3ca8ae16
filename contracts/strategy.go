package contracts

import (
	"context"

	"github.com/dysodeng/discovery/metadata"
)

// InvocationStrategy 协议调用策略
// 每种受支持的协议实现一次，负责建立连接并发起一次类型确定的调用
type InvocationStrategy interface {
	// Protocol 策略可处理的协议
	Protocol() metadata.Protocol

	// Invoke 向服务地址发起一次调用
	// location string 服务地址
	// request any 应用层请求
	Invoke(ctx context.Context, location string, request any) (any, error)
}

// InvocationFunc 函数形式的调用策略，主要用于测试
type InvocationFunc struct {
	Proto metadata.Protocol
	Func  func(ctx context.Context, location string, request any) (any, error)
}

func (f InvocationFunc) Protocol() metadata.Protocol {
	return f.Proto
}

func (f InvocationFunc) Invoke(ctx context.Context, location string, request any) (any, error) {
	return f.Func(ctx, location, request)
}
