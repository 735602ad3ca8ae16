package discovery

import (
	"time"

	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/metadata"
)

// State 服务发现状态
type State int

const (
	StateQuerying   State = iota // 查询注册中心
	StateValidating              // 协议校验
	StateInvoking                // 调用服务提供方
	StateDone                    // 结束
)

func (s State) String() string {
	switch s {
	case StateQuerying:
		return "querying"
	case StateValidating:
		return "validating"
	case StateInvoking:
		return "invoking"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Outcome 服务发现结果
type Outcome int

const (
	OutcomeSuccess    Outcome = iota // 调用成功
	OutcomeNoProvider                // 未找到服务，不是错误
	OutcomeFailure                   // 失败，原因见 Result.Err
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoProvider:
		return "no_provider"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Result 一次服务发现的结果
type Result struct {
	RunID      string
	Query      metadata.ServiceQuery
	State      State
	Outcome    Outcome
	FailedIn   State // 失败所在阶段，仅 OutcomeFailure 时有效
	Descriptor *metadata.ServiceDescriptor
	Response   any
	Err        error
	Durations  map[State]time.Duration
}

// NoProvider 是否未找到服务
func (r *Result) NoProvider() bool {
	return r.Outcome == OutcomeNoProvider
}

// Incompatible 是否找到了协议不兼容的服务
func (r *Result) Incompatible() bool {
	return r.Outcome == OutcomeFailure && rpcError.IsCode(r.Err, rpcError.IncompatibleProtocol)
}

// OperatorAction 运维处理建议
func (r *Result) OperatorAction() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return ""
	case OutcomeNoProvider:
		return "register a provider for the requested service"
	}

	switch rpcError.CodeOf(r.Err) {
	case rpcError.RegistryUnreachable:
		return "check registry availability"
	case rpcError.RegistryProtocolError:
		return "check registry version and service records"
	case rpcError.IncompatibleProtocol:
		return "fix the protocol mismatch between provider and consumer"
	case rpcError.ConnectFailed, rpcError.CallFailed:
		return "check provider health"
	case rpcError.Canceled:
		return "none, the run was abandoned by the caller"
	case rpcError.InvalidArgument:
		return "fix the consumer request"
	default:
		return "inspect the error"
	}
}
