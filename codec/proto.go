// Package codec grpc protobuf 编解码器
//
// 手写的消息类型实现 Marshaler / Unmarshaler，按 protobuf 二进制格式编码，
// 与 protoc 生成的服务端、客户端互通。proto.Message 交给 google.golang.org/protobuf 处理。
package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// Name 编解码器名称，对应 content-type application/grpc+proto
const Name = "proto"

// Marshaler 按 protobuf 二进制格式编码
type Marshaler interface {
	MarshalProto() ([]byte, error)
}

// Unmarshaler 按 protobuf 二进制格式解码
type Unmarshaler interface {
	UnmarshalProto(b []byte) error
}

// Proto grpc protobuf 编解码器
// 客户端通过 grpc.ForceCodec 使用，服务端通过 grpc.ForceServerCodec 使用
type Proto struct{}

func (Proto) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Marshaler:
		return m.MarshalProto()
	case proto.Message:
		return proto.Marshal(m)
	default:
		return nil, fmt.Errorf("codec: cannot marshal %T as protobuf", v)
	}
}

func (Proto) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Unmarshaler:
		return m.UnmarshalProto(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	default:
		return fmt.Errorf("codec: cannot unmarshal protobuf into %T", v)
	}
}

func (Proto) Name() string {
	return Name
}

// AppendString 追加 string 字段，空字符串为默认值不编码
func AppendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// AppendMessage 追加嵌套消息字段，空消息也会编码以保留字段存在性
func AppendMessage(b []byte, num protowire.Number, m Marshaler) ([]byte, error) {
	data, err := m.MarshalProto()
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, data), nil
}

// Fields 逐个解析字段
// fn 返回该字段值消费的字节数，返回 0 表示未知字段，按 wire type 跳过
func Fields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if n == 0 {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return nil
}

// String 解析 string 字段值
func String(typ protowire.Type, b []byte) (string, int, error) {
	v, n, err := Bytes(typ, b)
	return string(v), n, err
}

// Bytes 解析 bytes 或嵌套消息字段值
func Bytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("codec: wire type %d for length-delimited field", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}
