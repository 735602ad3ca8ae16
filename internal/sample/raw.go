package sample

import (
	"context"
	"fmt"

	"github.com/dysodeng/discovery/codec"
	"google.golang.org/grpc"
)

// RawHandler 处理未解码的请求体，返回未编码的响应体
type RawHandler func(ctx context.Context, method string, req []byte) ([]byte, error)

// NewRawBufServer 只收发原始字节的内存服务，所有方法都交给 handler 处理
// 相当于一个不依赖本项目消息类型的 protobuf 服务端
func NewRawBufServer(handler RawHandler) Server {
	return NewBufServer(
		grpc.ForceServerCodec(rawCodec{}),
		grpc.UnknownServiceHandler(func(_ any, stream grpc.ServerStream) error {
			method, _ := grpc.MethodFromServerStream(stream)
			var req []byte
			if err := stream.RecvMsg(&req); err != nil {
				return err
			}
			resp, err := handler(stream.Context(), method, req)
			if err != nil {
				return err
			}
			return stream.SendMsg(resp)
		}),
	)
}

type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("raw codec: cannot marshal %T", v)
	}
	return b, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	p, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("raw codec: cannot unmarshal into %T", v)
	}
	*p = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string {
	return codec.Name
}
