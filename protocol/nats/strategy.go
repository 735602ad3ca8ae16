// Package nats 基于 NATS request/reply 的 json 调用策略
// 服务地址即请求主题
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dysodeng/discovery/contracts"
	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/metadata"
	comms "github.com/nats-io/nats.go"
)

const (
	// Kind nats 协议族
	Kind = "nats+json"
	// ErrorHeader 服务提供方返回业务错误时设置的消息头
	ErrorHeader = "Nats-Service-Error"
)

type strategy[Resp any] struct {
	nc       *comms.Conn
	protocol metadata.Protocol
}

// NewJSON 创建 json 请求应答策略，响应解码为 *Resp
func NewJSON[Resp any](nc *comms.Conn, reference string) contracts.InvocationStrategy {
	return &strategy[Resp]{
		nc:       nc,
		protocol: metadata.Protocol{Kind: Kind, Reference: reference},
	}
}

func (s *strategy[Resp]) Protocol() metadata.Protocol {
	return s.protocol
}

func (s *strategy[Resp]) Invoke(ctx context.Context, location string, request any) (any, error) {
	if location == "" {
		return nil, rpcError.New(rpcError.ConnectFailed, "empty provider subject")
	}

	data, err := json.Marshal(request)
	if err != nil {
		return nil, rpcError.Wrap(rpcError.InvalidArgument, err, fmt.Sprintf("%s: encode request", s.protocol))
	}

	msg, err := s.nc.RequestWithContext(ctx, location, data)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, rpcError.FromContext(ctx)
		case errors.Is(err, comms.ErrNoResponders), errors.Is(err, comms.ErrConnectionClosed), errors.Is(err, comms.ErrBadSubject):
			return nil, rpcError.WithFields(
				rpcError.Wrap(rpcError.ConnectFailed, err, "could not reach provider"),
				map[string]string{"location": location},
			)
		default:
			return nil, rpcError.WithFields(
				rpcError.Wrap(rpcError.CallFailed, err, "provider call failed"),
				map[string]string{"location": location},
			)
		}
	}

	if msg.Header != nil {
		if desc := msg.Header.Get(ErrorHeader); desc != "" {
			return nil, rpcError.WithFields(
				rpcError.New(rpcError.CallFailed, desc),
				map[string]string{"location": location},
			)
		}
	}

	resp := new(Resp)
	if err = json.Unmarshal(msg.Data, resp); err != nil {
		return nil, rpcError.Wrap(rpcError.CallFailed, err, "malformed provider response")
	}

	return resp, nil
}
