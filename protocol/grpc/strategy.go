// Package grpc grpc 协议调用策略
package grpc

import (
	"context"
	"fmt"

	"github.com/dysodeng/discovery/contracts"
	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/metadata"
	helloworldv1 "github.com/dysodeng/discovery/proto/helloworld/v1"
	"github.com/dysodeng/discovery/transport"
	"google.golang.org/grpc"
)

const (
	// Kind grpc 协议族
	Kind = "grpc+proto"
	// HelloWorldReference 示例服务接口契约
	HelloWorldReference = "hello_world_service.v1.proto"
)

// Call 一次类型确定的 grpc 调用
type Call[Req, Resp any] func(ctx context.Context, cc grpc.ClientConnInterface, req *Req) (*Resp, error)

type unary[Req, Resp any] struct {
	protocol metadata.Protocol
	call     Call[Req, Resp]
	opts     []transport.Option
}

// NewUnary 创建一元调用策略
// 每次调用都重新建立连接，服务地址可能在两次发现之间发生变化
func NewUnary[Req, Resp any](reference string, call Call[Req, Resp], opts ...transport.Option) contracts.InvocationStrategy {
	return &unary[Req, Resp]{
		protocol: metadata.Protocol{Kind: Kind, Reference: reference},
		call:     call,
		opts:     opts,
	}
}

// NewHelloWorld 示例服务调用策略，请求为 *helloworldv1.HelloRequest，响应为 *helloworldv1.HelloResponse
func NewHelloWorld(opts ...transport.Option) contracts.InvocationStrategy {
	return NewUnary[helloworldv1.HelloRequest, helloworldv1.HelloResponse](HelloWorldReference, func(ctx context.Context, cc grpc.ClientConnInterface, req *helloworldv1.HelloRequest) (*helloworldv1.HelloResponse, error) {
		return helloworldv1.NewHelloWorldClient(cc).SayHello(ctx, req)
	}, opts...)
}

func (u *unary[Req, Resp]) Protocol() metadata.Protocol {
	return u.protocol
}

func (u *unary[Req, Resp]) Invoke(ctx context.Context, location string, request any) (any, error) {
	var req *Req
	switch r := request.(type) {
	case *Req:
		req = r
	case Req:
		req = &r
	default:
		return nil, rpcError.New(rpcError.InvalidArgument, fmt.Sprintf("%s: unexpected request type %T", u.protocol, request))
	}
	if req == nil {
		return nil, rpcError.New(rpcError.InvalidArgument, fmt.Sprintf("%s: nil request", u.protocol))
	}

	conn, err := transport.Dial(location, u.opts...)
	if err != nil {
		return nil, rpcError.WithFields(
			rpcError.Wrap(rpcError.ConnectFailed, err, "could not connect to provider"),
			map[string]string{"location": location},
		)
	}
	defer func() {
		_ = conn.Close()
	}()

	resp, err := u.call(ctx, conn, req)
	if err != nil {
		return nil, rpcError.WithFields(
			rpcError.FromStatus(err, rpcError.ConnectFailed, rpcError.CallFailed, "provider call failed"),
			map[string]string{"location": location},
		)
	}
	if resp == nil {
		return nil, rpcError.New(rpcError.CallFailed, "provider returned an empty response")
	}

	return resp, nil
}
