// Package sample 示例注册中心与示例服务提供方
// 供 cmd/sample-services 本地演示与各包测试使用
package sample

import (
	"context"
	"net"

	"github.com/dysodeng/discovery/codec"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

// Server grpc服务
type Server interface {
	// RegisterService 注册 grpc 服务
	// grpcRegister 为 grpc 生成的注册函数，如 helloworldv1.RegisterHelloWorldServer
	RegisterService(register func(grpc.ServiceRegistrar))
	Serve() error
	Stop()
	// Dialer 内存连接拨号器，仅在 NewBufServer 创建的服务上可用
	Dialer() func(context.Context, string) (net.Conn, error)
}

type server struct {
	serviceAddr string
	listener    net.Listener
	bufListener *bufconn.Listener
	grpcServer  *grpc.Server
}

// NewServer 创建监听 tcp 地址的服务
func NewServer(serviceAddr string, opts ...grpc.ServerOption) Server {
	return &server{
		serviceAddr: serviceAddr,
		grpcServer:  grpc.NewServer(serverOptions(opts)...),
	}
}

// NewBufServer 创建基于内存连接的服务，所有地址都拨号到同一个服务
func NewBufServer(opts ...grpc.ServerOption) Server {
	return &server{
		bufListener: bufconn.Listen(bufSize),
		grpcServer:  grpc.NewServer(serverOptions(opts)...),
	}
}

// serverOptions 示例服务使用手写的 protobuf 消息，需要指定编解码器
// 调用方传入的 grpc.ForceServerCodec 会覆盖默认值
func serverOptions(opts []grpc.ServerOption) []grpc.ServerOption {
	return append([]grpc.ServerOption{grpc.ForceServerCodec(codec.Proto{})}, opts...)
}

func (s *server) RegisterService(register func(grpc.ServiceRegistrar)) {
	register(s.grpcServer)
}

func (s *server) Serve() error {
	var listen net.Listener = s.bufListener
	if listen == nil {
		var err error
		listen, err = net.Listen("tcp", s.serviceAddr)
		if err != nil {
			return errors.Wrapf(err, "listen on %s", s.serviceAddr)
		}
	}
	s.listener = listen

	err := s.grpcServer.Serve(listen)
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}

func (s *server) Stop() {
	s.grpcServer.Stop()
}

func (s *server) Dialer() func(context.Context, string) (net.Conn, error) {
	return func(ctx context.Context, _ string) (net.Conn, error) {
		if s.bufListener == nil {
			return nil, errors.New("dialer is only available on buffer servers")
		}
		return s.bufListener.DialContext(ctx)
	}
}
