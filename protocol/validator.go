package protocol

import (
	"strings"

	"github.com/dysodeng/discovery/contracts"
	rpcError "github.com/dysodeng/discovery/errors"
	"github.com/dysodeng/discovery/metadata"
)

// Validator 协议校验器
type Validator struct {
	table *Table
}

func NewValidator(table *Table) *Validator {
	return &Validator{table: table}
}

// Validate 校验服务声明的协议是否受支持
// 协议族相同但接口契约不同同样视为不兼容
func (v *Validator) Validate(descriptor *metadata.ServiceDescriptor) (contracts.InvocationStrategy, error) {
	if descriptor == nil {
		return nil, rpcError.New(rpcError.InvalidArgument, "nil service descriptor")
	}

	if strategy, ok := v.table.Lookup(descriptor.Protocol()); ok {
		return strategy, nil
	}

	fields := map[string]string{
		"protocol_kind":      descriptor.ProtocolKind,
		"protocol_reference": descriptor.ProtocolReference,
	}
	if refs := v.table.References(descriptor.ProtocolKind); len(refs) > 0 {
		fields["supported_references"] = strings.Join(refs, ",")
	}

	return nil, rpcError.WithFields(
		rpcError.New(rpcError.IncompatibleProtocol, "consumer does not recognize the provider's protocol kind or reference"),
		fields,
	)
}
