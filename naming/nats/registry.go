// Package nats 基于 NATS request/reply 的注册中心客户端
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/logger"
	"github.com/dysodeng/discovery/metadata"
	"github.com/dysodeng/discovery/naming"
	comms "github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultSubject 默认服务发现主题
const DefaultSubject = "registry.discover"

// DiscoverReply 服务发现应答，Service 为空表示未找到服务
type DiscoverReply struct {
	Service *metadata.ServiceDescriptor `json:"service"`
	Error   string                      `json:"error,omitempty"`
}

type registry struct {
	nc      *comms.Conn
	subject string
	owned   bool
}

// Connect 连接 NATS 并创建注册中心客户端
func Connect(url, name string, opts ...Option) (naming.Registry, error) {
	nc, err := comms.Connect(url,
		comms.Name(name),
		comms.Timeout(10*time.Second),
		comms.ReconnectWait(2*time.Second),
		comms.MaxReconnects(60),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			logger.Logger().Warn("registry nats disconnected", zap.Error(err))
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			logger.Logger().Info("registry nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, rpcError.Wrap(rpcError.RegistryUnreachable, errors.Wrapf(err, "connect %s", url), "registry unreachable")
	}

	r := NewRegistry(nc, opts...).(*registry)
	r.owned = true
	return r, nil
}

// NewRegistry 使用已有连接创建注册中心客户端，连接的生命周期由调用方管理
func NewRegistry(nc *comms.Conn, opts ...Option) naming.Registry {
	r := &registry{
		nc:      nc,
		subject: DefaultSubject,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *registry) Resolve(ctx context.Context, query metadata.ServiceQuery) (*metadata.ServiceDescriptor, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return nil, rpcError.Wrap(rpcError.InvalidArgument, err, "encode discover request")
	}

	msg, err := r.nc.RequestWithContext(ctx, r.subject, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, rpcError.FromContext(ctx)
		}
		return nil, rpcError.Wrap(rpcError.RegistryUnreachable, errors.Wrapf(err, "request %s", r.subject), "registry unreachable")
	}

	var reply DiscoverReply
	if err = json.Unmarshal(msg.Data, &reply); err != nil {
		return nil, rpcError.Wrap(rpcError.RegistryProtocolError, err, "malformed registry reply")
	}
	if reply.Error != "" {
		return nil, rpcError.Wrap(rpcError.RegistryProtocolError, fmt.Errorf("%s", reply.Error), "registry rejected discover request")
	}
	if reply.Service == nil {
		return nil, nil
	}
	if err = reply.Service.Validate(); err != nil {
		return nil, rpcError.Wrap(rpcError.RegistryProtocolError, err, "malformed registry reply")
	}

	return reply.Service, nil
}

func (r *registry) Close() error {
	if r.owned {
		r.nc.Close()
	}
	return nil
}

// Option nats 注册中心选项
type Option func(r *registry)

// WithSubject 设置服务发现主题
func WithSubject(subject string) Option {
	return func(r *registry) {
		if subject != "" {
			r.subject = subject
		}
	}
}
