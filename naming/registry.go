package naming

import (
	"context"

	"github.com/dysodeng/discovery/metadata"
)

// Registry 注册中心客户端
type Registry interface {
	// Resolve 服务发现
	// query metadata.ServiceQuery 查询条件
	// 未找到服务时返回 (nil, nil)，这是正常的业务结果而非错误
	// 注册中心不可达返回 RegistryUnreachable，响应无法解析返回 RegistryProtocolError
	Resolve(ctx context.Context, query metadata.ServiceQuery) (*metadata.ServiceDescriptor, error)

	// Close 关闭注册中心连接
	Close() error
}
