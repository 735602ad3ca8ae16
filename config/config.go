// Package config 服务消费方配置，从环境变量加载
package config

import (
	"fmt"
	"time"

	"github.com/dysodeng/discovery/metadata"
	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// 注册中心类型
const (
	RegistryGrpc = "grpc"
	RegistryEtcd = "etcd"
	RegistryNats = "nats"
)

type ConsumerConfig struct {
	ServiceName string         `envconfig:"SERVICE_NAME" default:"simple-discovery-consumer"`
	Registry    RegistryConfig `envconfig:"REGISTRY"`
	EtcdConfig  EtcdConfig     `envconfig:"ETCD"`
	NatsConfig  NatsConfig     `envconfig:"NATS"`
	Target      TargetConfig   `envconfig:"TARGET"`
	Log         LogConfig      `envconfig:"LOG"`

	MetricsEnabled bool `envconfig:"METRICS_ENABLED" default:"false"`
	// RetryAttempts 整次服务发现的最大尝试次数，1 表示不重试
	RetryAttempts uint `envconfig:"RETRY_ATTEMPTS" default:"1"`
}

type RegistryConfig struct {
	Kind    string        `envconfig:"KIND" default:"grpc"`                    // grpc, etcd, nats
	Address string        `envconfig:"ADDRESS" default:"http://0.0.0.0:50000"` // grpc 注册中心地址
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`                  // 单次服务发现超时
}

type EtcdConfig struct {
	Endpoints   []string      `envconfig:"ENDPOINTS" default:"127.0.0.1:2379"`
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	Namespace   string        `envconfig:"NAMESPACE" default:"services"`
}

type NatsConfig struct {
	URL     string `envconfig:"URL" default:"nats://127.0.0.1:4222"`
	Subject string `envconfig:"SUBJECT" default:"registry.discover"`
}

// TargetConfig 要发现的服务
type TargetConfig struct {
	Namespace string `envconfig:"NAMESPACE" default:"sdv.samples"`
	Name      string `envconfig:"NAME" default:"hello-world"`
	Version   string `envconfig:"VERSION" default:"1.0.0.0"`
}

// Query 构造服务发现查询条件
func (t TargetConfig) Query() metadata.ServiceQuery {
	return metadata.NewServiceQuery(t.Namespace, t.Name, t.Version)
}

type LogConfig struct {
	Level      string `envconfig:"LEVEL" default:"info"`
	Production bool   `envconfig:"PRODUCTION" default:"false"`
}

// LoadConfig 从环境变量加载配置
func LoadConfig() (*ConsumerConfig, error) {
	var c ConsumerConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate 校验配置
func (c *ConsumerConfig) Validate() error {
	switch c.Registry.Kind {
	case RegistryGrpc:
		if c.Registry.Address == "" {
			return fmt.Errorf("%s - REGISTRY_ADDRESS is required for grpc registry", logPrefix)
		}
	case RegistryEtcd:
		if len(c.EtcdConfig.Endpoints) == 0 {
			return fmt.Errorf("%s - ETCD_ENDPOINTS is required for etcd registry", logPrefix)
		}
	case RegistryNats:
		if c.NatsConfig.URL == "" {
			return fmt.Errorf("%s - NATS_URL is required for nats registry", logPrefix)
		}
	default:
		return fmt.Errorf("%s - unknown REGISTRY_KIND %q (use grpc, etcd, nats)", logPrefix, c.Registry.Kind)
	}
	if c.Registry.Timeout <= 0 {
		return fmt.Errorf("%s - REGISTRY_TIMEOUT must be positive", logPrefix)
	}
	if c.RetryAttempts == 0 {
		return fmt.Errorf("%s - RETRY_ATTEMPTS must be at least 1", logPrefix)
	}
	if err := c.Target.Query().Validate(); err != nil {
		return fmt.Errorf("%s - %w", logPrefix, err)
	}
	return nil
}
