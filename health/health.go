// Package health 服务提供方健康检查
package health

import (
	"context"
	"fmt"
	"sync"

	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/transport"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server 健康检查服务，空服务名表示整个服务进程
type Server struct {
	grpc_health_v1.UnimplementedHealthServer

	mu       sync.RWMutex
	statuses map[string]grpc_health_v1.HealthCheckResponse_ServingStatus
}

func NewServer() *Server {
	return &Server{
		statuses: map[string]grpc_health_v1.HealthCheckResponse_ServingStatus{
			"": grpc_health_v1.HealthCheckResponse_SERVING,
		},
	}
}

// SetServingStatus 设置服务状态
func (h *Server) SetServingStatus(service string, servingStatus grpc_health_v1.HealthCheckResponse_ServingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[service] = servingStatus
}

func (h *Server) Check(_ context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	servingStatus, ok := h.statuses[req.GetService()]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", req.GetService())
	}
	return &grpc_health_v1.HealthCheckResponse{Status: servingStatus}, nil
}

// Probe 检查服务提供方是否可用
// 不可达返回 ConnectFailed，状态非 SERVING 返回 CallFailed
func Probe(ctx context.Context, location, service string, opts ...transport.Option) error {
	conn, err := transport.Dial(location, opts...)
	if err != nil {
		return rpcError.Wrap(rpcError.ConnectFailed, err, "could not connect to provider")
	}
	defer func() {
		_ = conn.Close()
	}()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	if err != nil {
		return rpcError.FromStatus(err, rpcError.ConnectFailed, rpcError.CallFailed, "health check failed")
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return rpcError.New(rpcError.CallFailed, fmt.Sprintf("provider is %s", resp.GetStatus()))
	}
	return nil
}
