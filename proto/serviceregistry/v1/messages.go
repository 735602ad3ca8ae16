// Package serviceregistryv1 注册中心消息定义
//
// 字段编号与 service_registry.proto 一致，按 protobuf 二进制格式编码，构建时无需 protoc。
package serviceregistryv1

import (
	"github.com/dysodeng/discovery/codec"
	"google.golang.org/protobuf/encoding/protowire"
)

// DiscoverRequest 服务发现请求
type DiscoverRequest struct {
	Namespace string `protobuf:"bytes,1,opt,name=namespace,proto3" json:"namespace,omitempty"`
	Name      string `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Version   string `protobuf:"bytes,3,opt,name=version,proto3" json:"version,omitempty"`
}

func (x *DiscoverRequest) MarshalProto() ([]byte, error) {
	var b []byte
	b = codec.AppendString(b, 1, x.Namespace)
	b = codec.AppendString(b, 2, x.Name)
	b = codec.AppendString(b, 3, x.Version)
	return b, nil
}

func (x *DiscoverRequest) UnmarshalProto(b []byte) error {
	*x = DiscoverRequest{}
	return codec.Fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		switch num {
		case 1:
			x.Namespace, n, err = codec.String(typ, b)
		case 2:
			x.Name, n, err = codec.String(typ, b)
		case 3:
			x.Version, n, err = codec.String(typ, b)
		}
		return n, err
	})
}

// DiscoverResponse 服务发现响应，Service 为空表示未找到服务
type DiscoverResponse struct {
	Service *ServiceMetadata `protobuf:"bytes,1,opt,name=service,proto3" json:"service,omitempty"`
}

func (x *DiscoverResponse) GetService() *ServiceMetadata {
	if x != nil {
		return x.Service
	}
	return nil
}

func (x *DiscoverResponse) MarshalProto() ([]byte, error) {
	if x.Service == nil {
		return nil, nil
	}
	return codec.AppendMessage(nil, 1, x.Service)
}

func (x *DiscoverResponse) UnmarshalProto(b []byte) error {
	*x = DiscoverResponse{}
	return codec.Fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		data, n, err := codec.Bytes(typ, b)
		if err != nil {
			return 0, err
		}
		// 重复出现的嵌套消息按 protobuf 规则合并
		if x.Service == nil {
			x.Service = &ServiceMetadata{}
		}
		return n, x.Service.merge(data)
	})
}

// ServiceMetadata 注册中心中的服务记录
type ServiceMetadata struct {
	Namespace              string `protobuf:"bytes,1,opt,name=namespace,proto3" json:"namespace,omitempty"`
	Name                   string `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Version                string `protobuf:"bytes,3,opt,name=version,proto3" json:"version,omitempty"`
	Uri                    string `protobuf:"bytes,4,opt,name=uri,proto3" json:"uri,omitempty"`
	CommunicationKind      string `protobuf:"bytes,5,opt,name=communication_kind,json=communicationKind,proto3" json:"communication_kind,omitempty"`
	CommunicationReference string `protobuf:"bytes,6,opt,name=communication_reference,json=communicationReference,proto3" json:"communication_reference,omitempty"`
}

func (x *ServiceMetadata) GetUri() string {
	if x != nil {
		return x.Uri
	}
	return ""
}

func (x *ServiceMetadata) MarshalProto() ([]byte, error) {
	var b []byte
	b = codec.AppendString(b, 1, x.Namespace)
	b = codec.AppendString(b, 2, x.Name)
	b = codec.AppendString(b, 3, x.Version)
	b = codec.AppendString(b, 4, x.Uri)
	b = codec.AppendString(b, 5, x.CommunicationKind)
	b = codec.AppendString(b, 6, x.CommunicationReference)
	return b, nil
}

func (x *ServiceMetadata) UnmarshalProto(b []byte) error {
	*x = ServiceMetadata{}
	return x.merge(b)
}

func (x *ServiceMetadata) merge(b []byte) error {
	return codec.Fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		var field *string
		switch num {
		case 1:
			field = &x.Namespace
		case 2:
			field = &x.Name
		case 3:
			field = &x.Version
		case 4:
			field = &x.Uri
		case 5:
			field = &x.CommunicationKind
		case 6:
			field = &x.CommunicationReference
		default:
			return 0, nil
		}
		*field, n, err = codec.String(typ, b)
		return n, err
	})
}
