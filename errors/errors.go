package errors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode 定义错误码类型
type ErrorCode int32

const (
	// 系统级错误码
	Unknown         ErrorCode = 10000
	InvalidArgument ErrorCode = 10002
	Canceled        ErrorCode = 10006

	// 服务发现错误码 (12000-12999)
	RegistryUnreachable   ErrorCode = 12000 // 注册中心不可达
	RegistryProtocolError ErrorCode = 12001 // 注册中心响应无法解析
	IncompatibleProtocol  ErrorCode = 12002 // 服务提供方协议不受支持

	// 服务调用错误码 (13000-13999)
	ConnectFailed ErrorCode = 13000 // 无法连接服务提供方
	CallFailed    ErrorCode = 13001 // 服务提供方返回错误或响应格式错误
)

var codeNames = map[ErrorCode]string{
	Unknown:               "Unknown",
	InvalidArgument:       "InvalidArgument",
	Canceled:              "Canceled",
	RegistryUnreachable:   "RegistryUnreachable",
	RegistryProtocolError: "RegistryProtocolError",
	IncompatibleProtocol:  "IncompatibleProtocol",
	ConnectFailed:         "ConnectFailed",
	CallFailed:            "CallFailed",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int32(c))
}

// Error 定义错误结构
type Error struct {
	Code    ErrorCode
	Message string
	Fields  map[string]string // 诊断字段
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error: code = %s message = %s", e.Code, e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s = %q", k, e.Fields[k])
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较，便于 errors.Is(err, &Error{Code: CallFailed})
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New 创建新的错误
func New(code ErrorCode, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装底层错误
func Wrap(code ErrorCode, cause error, message string) error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithFields 添加诊断字段
func WithFields(err error, kv map[string]string) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Fields == nil {
			e.Fields = make(map[string]string, len(kv))
		}
		for k, v := range kv {
			e.Fields[k] = v
		}
		return e
	}
	return err
}

// CodeOf 获取错误码，非本包错误返回 Unknown
func CodeOf(err error) ErrorCode {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Canceled
	}
	return Unknown
}

// IsCode 判断错误是否为指定错误码
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Retryable 是否为可由调用方重试的错误（基础设施类故障）
func Retryable(err error) bool {
	switch CodeOf(err) {
	case RegistryUnreachable, ConnectFailed:
		return true
	default:
		return false
	}
}

// FromContext 调用方放弃时转换为 Canceled
func FromContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Wrap(Canceled, err, "discovery run abandoned by caller")
	}
	return nil
}

// FromStatus 从 gRPC 错误转换为本包错误
// unavailable 为连接类故障对应的错误码，other 为其它故障对应的错误码
func FromStatus(err error, unavailable, other ErrorCode, message string) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return Wrap(other, err, message)
	}

	switch st.Code() {
	case codes.Canceled:
		return Wrap(Canceled, err, message)
	case codes.Unavailable, codes.DeadlineExceeded:
		return Wrap(unavailable, err, message)
	default:
		return WithFields(Wrap(other, err, message), map[string]string{
			"grpc_code": st.Code().String(),
		})
	}
}
