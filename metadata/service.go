package metadata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ServiceQuery 服务发现查询条件
// 每次发现构造一次，构造后不可修改
type ServiceQuery struct {
	Namespace string `json:"namespace"` // 命名空间
	Name      string `json:"name"`      // 服务名称
	Version   string `json:"version"`   // 服务版本
}

func NewServiceQuery(namespace, name, version string) ServiceQuery {
	return ServiceQuery{
		Namespace: namespace,
		Name:      name,
		Version:   version,
	}
}

// Validate 校验查询条件
func (q ServiceQuery) Validate() error {
	switch {
	case q.Namespace == "":
		return fmt.Errorf("service query: namespace is required")
	case q.Name == "":
		return fmt.Errorf("service query: name is required")
	case q.Version == "":
		return fmt.Errorf("service query: version is required")
	}
	return nil
}

// Key 注册中心存储键 /{prefix}/{namespace}/{name}/{version}
func (q ServiceQuery) Key(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return fmt.Sprintf("/%s/%s/%s", q.Namespace, q.Name, q.Version)
	}
	return fmt.Sprintf("/%s/%s/%s/%s", prefix, q.Namespace, q.Name, q.Version)
}

func (q ServiceQuery) String() string {
	return q.Namespace + "/" + q.Name + "@" + q.Version
}

// Protocol 服务提供方声明的通信协议
type Protocol struct {
	Kind      string // 协议族，如 grpc+proto
	Reference string // 接口契约，如 hello_world_service.v1.proto
}

func (p Protocol) String() string {
	return p.Kind + "|" + p.Reference
}

// ServiceDescriptor 注册中心返回的服务描述
// 只读，仅用于一次调用，不做缓存
type ServiceDescriptor struct {
	Namespace         string `json:"namespace,omitempty"`
	Name              string `json:"name,omitempty"`
	Version           string `json:"version,omitempty"`
	Location          string `json:"location"`           // 服务地址
	ProtocolKind      string `json:"protocol_kind"`      // 协议族
	ProtocolReference string `json:"protocol_reference"` // 接口契约
}

// Protocol 获取服务声明的协议
func (s *ServiceDescriptor) Protocol() Protocol {
	return Protocol{Kind: s.ProtocolKind, Reference: s.ProtocolReference}
}

// Validate 校验注册中心返回的必填字段
func (s *ServiceDescriptor) Validate() error {
	var missing []string
	if s.Location == "" {
		missing = append(missing, "location")
	}
	if s.ProtocolKind == "" {
		missing = append(missing, "protocol_kind")
	}
	if s.ProtocolReference == "" {
		missing = append(missing, "protocol_reference")
	}
	if len(missing) > 0 {
		return fmt.Errorf("service descriptor: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func (s *ServiceDescriptor) Unmarshal(value []byte) error {
	if err := json.Unmarshal(value, s); err != nil {
		return err
	}
	return nil
}

func (s *ServiceDescriptor) String() string {
	data, _ := json.Marshal(s)
	return string(data)
}
