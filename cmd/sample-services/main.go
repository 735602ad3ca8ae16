package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/dysodeng/discovery/health"
	"github.com/dysodeng/discovery/internal/sample"
	"github.com/dysodeng/discovery/logger"
	"github.com/dysodeng/discovery/metadata"
	grpcprotocol "github.com/dysodeng/discovery/protocol/grpc"
	helloworldv1 "github.com/dysodeng/discovery/proto/helloworld/v1"
	serviceregistryv1 "github.com/dysodeng/discovery/proto/serviceregistry/v1"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// 本地演示用的注册中心与 hello world 服务提供方
type sampleConfig struct {
	RegistryAddr string `envconfig:"SAMPLE_REGISTRY_ADDR" default:"0.0.0.0:50000"`
	ProviderAddr string `envconfig:"SAMPLE_PROVIDER_ADDR" default:"127.0.0.1:50064"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	var cfg sampleConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	logger.Init(false, cfg.LogLevel)
	log := logger.Logger()

	registry := sample.NewStaticRegistry()
	registry.Add(
		metadata.NewServiceQuery("sdv.samples", "hello-world", "1.0.0.0"),
		metadata.ServiceDescriptor{
			Location:          "http://" + cfg.ProviderAddr,
			ProtocolKind:      grpcprotocol.Kind,
			ProtocolReference: grpcprotocol.HelloWorldReference,
		},
	)
	// 协议版本不兼容的服务，用于演示协议校验失败
	registry.Add(
		metadata.NewServiceQuery("sdv.samples", "hello-world", "2.0.0.0"),
		metadata.ServiceDescriptor{
			Location:          "http://" + cfg.ProviderAddr,
			ProtocolKind:      grpcprotocol.Kind,
			ProtocolReference: "hello_world_service.v2.proto",
		},
	)

	registryServer := sample.NewServer(cfg.RegistryAddr)
	registryServer.RegisterService(func(r grpc.ServiceRegistrar) {
		serviceregistryv1.RegisterServiceRegistryServer(r, registry)
	})

	healthServer := health.NewServer()
	providerServer := sample.NewServer(cfg.ProviderAddr)
	providerServer.RegisterService(func(r grpc.ServiceRegistrar) {
		helloworldv1.RegisterHelloWorldServer(r, &sample.HelloWorld{})
		grpc_health_v1.RegisterHealthServer(r, healthServer)
	})
	healthServer.SetServingStatus("hello_world.v1.HelloWorld", grpc_health_v1.HealthCheckResponse_SERVING)

	for name, s := range map[string]sample.Server{"registry": registryServer, "provider": providerServer} {
		go func(name string, s sample.Server) {
			if err := s.Serve(); err != nil {
				log.Fatal("serve failed", zap.String("server", name), zap.Error(err))
			}
		}(name, s)
	}
	log.Info("sample services started",
		zap.String("registry", cfg.RegistryAddr),
		zap.String("provider", cfg.ProviderAddr),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	registryServer.Stop()
	providerServer.Stop()
	log.Info("sample services stopped")
}
