package grpc

import (
	"context"

	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/logger"
	"github.com/dysodeng/discovery/metadata"
	"github.com/dysodeng/discovery/naming"
	serviceregistryv1 "github.com/dysodeng/discovery/proto/serviceregistry/v1"
	"github.com/dysodeng/discovery/transport"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultAddress 默认注册中心地址
const DefaultAddress = "http://0.0.0.0:50000"

// registry grpc 注册中心客户端
type registry struct {
	address string
	conn    *grpc.ClientConn
	client  serviceregistryv1.ServiceRegistryClient
}

// NewRegistry 创建 grpc 注册中心客户端
// address 注册中心地址，如 http://0.0.0.0:50000
func NewRegistry(address string, opts ...transport.Option) (naming.Registry, error) {
	if address == "" {
		address = DefaultAddress
	}

	conn, err := transport.Dial(address, opts...)
	if err != nil {
		return nil, rpcError.Wrap(rpcError.RegistryUnreachable, err, "could not create registry client")
	}

	return &registry{
		address: address,
		conn:    conn,
		client:  serviceregistryv1.NewServiceRegistryClient(conn),
	}, nil
}

func (r *registry) Resolve(ctx context.Context, query metadata.ServiceQuery) (*metadata.ServiceDescriptor, error) {
	resp, err := r.client.Discover(ctx, &serviceregistryv1.DiscoverRequest{
		Namespace: query.Namespace,
		Name:      query.Name,
		Version:   query.Version,
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		logger.Logger().Debug("registry discover failed",
			zap.String("registry", r.address),
			zap.Stringer("query", query),
			zap.Error(err),
		)
		return nil, rpcError.FromStatus(err, rpcError.RegistryUnreachable, rpcError.RegistryProtocolError, "registry discover failed")
	}

	service := resp.GetService()
	if service == nil {
		return nil, nil
	}

	descriptor := &metadata.ServiceDescriptor{
		Namespace:         service.Namespace,
		Name:              service.Name,
		Version:           service.Version,
		Location:          service.Uri,
		ProtocolKind:      service.CommunicationKind,
		ProtocolReference: service.CommunicationReference,
	}
	if err = descriptor.Validate(); err != nil {
		return nil, rpcError.Wrap(rpcError.RegistryProtocolError, err, "malformed registry response")
	}

	return descriptor, nil
}

func (r *registry) Close() error {
	return r.conn.Close()
}
