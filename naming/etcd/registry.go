package etcd

import (
	"context"
	"strings"
	"time"

	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/logger"
	"github.com/dysodeng/discovery/metadata"
	"github.com/dysodeng/discovery/naming"
	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// etcd 注册中心客户端
// 服务描述以 json 形式存储在 /{namespace}/{服务命名空间}/{服务名称}/{服务版本}
type etcd struct {
	namespace   string
	dialTimeout time.Duration
	kv          clientv3.KV
	closer      func() error
}

const (
	defaultTimeout   = 5          // 默认etcd连接超时时长(秒)
	defaultNamespace = "services" // 默认服务命名空间
)

// NewEtcdRegistry 创建 etcd 注册中心客户端
// etcdAddress 多个地址以逗号分隔
func NewEtcdRegistry(etcdAddress string, opts ...Option) (naming.Registry, error) {
	etcdRegistry := &etcd{
		namespace:   defaultNamespace,
		dialTimeout: defaultTimeout * time.Second,
	}
	for _, opt := range opts {
		opt(etcdRegistry)
	}

	conf := clientv3.Config{
		Endpoints:   strings.Split(etcdAddress, ","),
		DialTimeout: etcdRegistry.dialTimeout,
	}

	cli, err := clientv3.New(conf)
	if err != nil {
		return nil, rpcError.Wrap(rpcError.RegistryUnreachable, errors.Wrap(err, "could not connect to etcd"), "registry unreachable")
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), etcdRegistry.dialTimeout)
	defer cancel()
	if _, err = cli.Status(timeoutCtx, conf.Endpoints[0]); err != nil {
		_ = cli.Close()
		return nil, rpcError.Wrap(rpcError.RegistryUnreachable, errors.Wrap(err, "etcd status check failed"), "registry unreachable")
	}

	etcdRegistry.kv = cli
	etcdRegistry.closer = cli.Close

	return etcdRegistry, nil
}

// NewEtcdRegistryWithKV 使用已有的 etcd KV 创建注册中心客户端，连接的生命周期由调用方管理
func NewEtcdRegistryWithKV(kv clientv3.KV, opts ...Option) naming.Registry {
	etcdRegistry := &etcd{
		namespace:   defaultNamespace,
		dialTimeout: defaultTimeout * time.Second,
		kv:          kv,
		closer:      func() error { return nil },
	}
	for _, opt := range opts {
		opt(etcdRegistry)
	}
	return etcdRegistry
}

func (registry *etcd) Resolve(ctx context.Context, query metadata.ServiceQuery) (*metadata.ServiceDescriptor, error) {
	serviceKey := query.Key(registry.namespace)

	resp, err := registry.kv.Get(ctx, serviceKey)
	if err != nil {
		if ctx.Err() != nil {
			return nil, rpcError.FromContext(ctx)
		}
		return nil, rpcError.Wrap(rpcError.RegistryUnreachable, errors.Wrapf(err, "get %s", serviceKey), "registry unreachable")
	}
	if len(resp.Kvs) == 0 {
		logger.Logger().Debug("no service registered in etcd", zap.String("key", serviceKey))
		return nil, nil
	}

	descriptor := &metadata.ServiceDescriptor{}
	if err = descriptor.Unmarshal(resp.Kvs[0].Value); err != nil {
		return nil, rpcError.Wrap(rpcError.RegistryProtocolError, errors.Wrapf(err, "decode %s", serviceKey), "malformed registry record")
	}
	if err = descriptor.Validate(); err != nil {
		return nil, rpcError.Wrap(rpcError.RegistryProtocolError, err, "malformed registry record")
	}

	return descriptor, nil
}

func (registry *etcd) Close() error {
	return registry.closer()
}

// Option etcd 注册中心选项
type Option func(registry *etcd)

// WithNamespace 设置命名空间
func WithNamespace(namespace string) Option {
	return func(registry *etcd) {
		registry.namespace = namespace
	}
}

// WithDialTimeout 设置连接超时时间
func WithDialTimeout(timeout time.Duration) Option {
	return func(registry *etcd) {
		if timeout > 0 {
			registry.dialTimeout = timeout
		}
	}
}
