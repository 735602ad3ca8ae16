package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/dysodeng/discovery"
	"github.com/dysodeng/discovery/breaker"
	"github.com/dysodeng/discovery/config"
	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/health"
	"github.com/dysodeng/discovery/limiter"
	"github.com/dysodeng/discovery/logger"
	"github.com/dysodeng/discovery/metrics"
	"github.com/dysodeng/discovery/naming"
	etcdnaming "github.com/dysodeng/discovery/naming/etcd"
	grpcnaming "github.com/dysodeng/discovery/naming/grpc"
	natsnaming "github.com/dysodeng/discovery/naming/nats"
	"github.com/dysodeng/discovery/protocol"
	grpcprotocol "github.com/dysodeng/discovery/protocol/grpc"
	helloworldv1 "github.com/dysodeng/discovery/proto/helloworld/v1"
	"github.com/dysodeng/discovery/retry"
	"github.com/dysodeng/discovery/transport"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger.Init(cfg.Log.Production, cfg.Log.Level)
	log := logger.Logger()
	defer func() {
		_ = log.Sync()
	}()

	if err = cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.MetricsEnabled {
		if err = metrics.SetMeter(otel.Meter(cfg.ServiceName), cfg.ServiceName); err != nil {
			log.Fatal("metrics init failed", zap.Error(err))
		}
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		log.Fatal("registry init failed", zap.String("kind", cfg.Registry.Kind), zap.Error(err))
	}
	defer func() {
		_ = registry.Close()
	}()

	providerOpts := []transport.Option{
		transport.WithLogging(),
		transport.WithBreaker(breaker.NewSet(
			breaker.WithFailureThreshold(5),
			breaker.WithTimeout(10*time.Second),
		)),
		transport.WithLimiter(limiter.NewTargetLimiter(100, 10)),
	}
	if metrics.Enabled() {
		providerOpts = append(providerOpts, transport.WithMetrics())
	}
	table := protocol.MustNewTable(protocol.For(grpcprotocol.NewHelloWorld(providerOpts...)))

	sd := discovery.NewServiceDiscovery(registry, protocol.NewValidator(table))

	policy := *retry.DefaultRetryPolicy
	policy.MaxAttempts = cfg.RetryAttempts

	var result *discovery.Result
	err = retry.Do(context.Background(), &policy, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.Registry.Timeout)
		defer cancel()
		result, err = sd.Discover(ctx, cfg.Target.Query(), &helloworldv1.HelloRequest{Name: "World"})
		return err
	})

	switch {
	case err != nil:
		log.Error("service discovery failed",
			zap.Stringer("query", cfg.Target.Query()),
			zap.String("code", rpcError.CodeOf(err).String()),
			zap.String("action", result.OperatorAction()),
			zap.Error(err),
		)
		if result.Descriptor != nil && rpcError.Retryable(err) {
			probeProvider(result.Descriptor.Location)
		}
		os.Exit(1)
	case result.NoProvider():
		log.Warn("no provider registered",
			zap.Stringer("query", cfg.Target.Query()),
			zap.String("action", result.OperatorAction()),
		)
	default:
		log.Info("service call succeeded",
			zap.String("run_id", result.RunID),
			zap.String("message", result.Response.(*helloworldv1.HelloResponse).GetMessage()),
		)
	}
}

func newRegistry(cfg *config.ConsumerConfig) (naming.Registry, error) {
	switch cfg.Registry.Kind {
	case config.RegistryGrpc:
		opts := []transport.Option{transport.WithLogging()}
		if metrics.Enabled() {
			opts = append(opts, transport.WithMetrics())
		}
		return grpcnaming.NewRegistry(cfg.Registry.Address, opts...)
	case config.RegistryEtcd:
		return etcdnaming.NewEtcdRegistry(
			strings.Join(cfg.EtcdConfig.Endpoints, ","),
			etcdnaming.WithNamespace(cfg.EtcdConfig.Namespace),
			etcdnaming.WithDialTimeout(cfg.EtcdConfig.DialTimeout),
		)
	case config.RegistryNats:
		return natsnaming.Connect(cfg.NatsConfig.URL, cfg.ServiceName, natsnaming.WithSubject(cfg.NatsConfig.Subject))
	default:
		return nil, errors.Errorf("unknown registry kind %q", cfg.Registry.Kind)
	}
}

// probeProvider 调用失败后检查服务提供方健康状态，仅记录日志
func probeProvider(location string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := health.Probe(ctx, location, ""); err != nil {
		logger.Logger().Warn("provider health check failed", zap.String("location", location), zap.Error(err))
		return
	}
	logger.Logger().Info("provider reports serving", zap.String("location", location))
}
