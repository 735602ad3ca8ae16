// Package helloworldv1 示例服务 hello_world_service.v1.proto 的消息定义
//
// 字段编号与 hello_world_service.v1.proto 一致，按 protobuf 二进制格式编码。
package helloworldv1

import (
	"github.com/dysodeng/discovery/codec"
	"google.golang.org/protobuf/encoding/protowire"
)

// HelloRequest 问候请求
type HelloRequest struct {
	Name string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
}

func (x *HelloRequest) GetName() string {
	if x != nil {
		return x.Name
	}
	return ""
}

func (x *HelloRequest) MarshalProto() ([]byte, error) {
	return codec.AppendString(nil, 1, x.Name), nil
}

func (x *HelloRequest) UnmarshalProto(b []byte) error {
	*x = HelloRequest{}
	return codec.Fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		if num == 1 {
			x.Name, n, err = codec.String(typ, b)
		}
		return n, err
	})
}

// HelloResponse 问候响应
type HelloResponse struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

func (x *HelloResponse) GetMessage() string {
	if x != nil {
		return x.Message
	}
	return ""
}

func (x *HelloResponse) MarshalProto() ([]byte, error) {
	return codec.AppendString(nil, 1, x.Message), nil
}

func (x *HelloResponse) UnmarshalProto(b []byte) error {
	*x = HelloResponse{}
	return codec.Fields(b, func(num protowire.Number, typ protowire.Type, b []byte) (n int, err error) {
		if num == 1 {
			x.Message, n, err = codec.String(typ, b)
		}
		return n, err
	})
}
