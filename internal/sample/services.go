package sample

import (
	"context"
	"sync"

	"github.com/dysodeng/discovery/metadata"
	helloworldv1 "github.com/dysodeng/discovery/proto/helloworld/v1"
	serviceregistryv1 "github.com/dysodeng/discovery/proto/serviceregistry/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HelloWorld 示例服务提供方，返回 "Hello, " + name
type HelloWorld struct {
	helloworldv1.UnimplementedHelloWorldServer

	mu    sync.Mutex
	calls int
}

func (h *HelloWorld) SayHello(_ context.Context, req *helloworldv1.HelloRequest) (*helloworldv1.HelloResponse, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()

	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	return &helloworldv1.HelloResponse{Message: "Hello, " + req.Name}, nil
}

// Calls 已处理的调用次数
func (h *HelloWorld) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// StaticRegistry 内存注册中心
type StaticRegistry struct {
	serviceregistryv1.UnimplementedServiceRegistryServer

	mu       sync.RWMutex
	services map[metadata.ServiceQuery]*serviceregistryv1.ServiceMetadata
	// NotFoundAsError 未找到服务时返回 codes.NotFound 而不是空响应
	NotFoundAsError bool
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		services: make(map[metadata.ServiceQuery]*serviceregistryv1.ServiceMetadata),
	}
}

// Add 添加服务记录
func (r *StaticRegistry) Add(query metadata.ServiceQuery, descriptor metadata.ServiceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[query] = &serviceregistryv1.ServiceMetadata{
		Namespace:              query.Namespace,
		Name:                   query.Name,
		Version:                query.Version,
		Uri:                    descriptor.Location,
		CommunicationKind:      descriptor.ProtocolKind,
		CommunicationReference: descriptor.ProtocolReference,
	}
}

func (r *StaticRegistry) Discover(_ context.Context, req *serviceregistryv1.DiscoverRequest) (*serviceregistryv1.DiscoverResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := metadata.NewServiceQuery(req.Namespace, req.Name, req.Version)
	service, ok := r.services[query]
	if !ok {
		if r.NotFoundAsError {
			return nil, status.Errorf(codes.NotFound, "no service registered for %s", query)
		}
		return &serviceregistryv1.DiscoverResponse{}, nil
	}
	return &serviceregistryv1.DiscoverResponse{Service: service}, nil
}
