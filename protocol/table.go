// Package protocol 受支持协议表与协议校验
//
// 注册中心返回的协议声明来自外部，只有与协议表精确匹配（协议族与接口契约均相同）
// 的服务才会被调用。协议表在启动时构建，运行期间只读，可被并发访问。
package protocol

import (
	"fmt"
	"sort"

	"github.com/dysodeng/discovery/contracts"
	"github.com/dysodeng/discovery/metadata"
)

// Entry 协议表条目
type Entry struct {
	Protocol metadata.Protocol
	Strategy contracts.InvocationStrategy
}

// Table 受支持协议表
type Table struct {
	entries map[metadata.Protocol]contracts.InvocationStrategy
}

// NewTable 创建协议表
// 协议族或接口契约为空、重复注册、策略声明的协议与条目不一致时返回错误
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{
		entries: make(map[metadata.Protocol]contracts.InvocationStrategy, len(entries)),
	}
	for _, e := range entries {
		if e.Protocol.Kind == "" || e.Protocol.Reference == "" {
			return nil, fmt.Errorf("protocol table: kind and reference are required, got %q", e.Protocol)
		}
		if e.Strategy == nil {
			return nil, fmt.Errorf("protocol table: nil strategy for %q", e.Protocol)
		}
		if e.Strategy.Protocol() != e.Protocol {
			return nil, fmt.Errorf("protocol table: strategy speaks %q, registered as %q", e.Strategy.Protocol(), e.Protocol)
		}
		if _, ok := t.entries[e.Protocol]; ok {
			return nil, fmt.Errorf("protocol table: duplicate entry %q", e.Protocol)
		}
		t.entries[e.Protocol] = e.Strategy
	}
	return t, nil
}

// MustNewTable 同 NewTable，出错时 panic
func MustNewTable(entries ...Entry) *Table {
	t, err := NewTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// For 以策略自身声明的协议创建条目
func For(strategy contracts.InvocationStrategy) Entry {
	return Entry{Protocol: strategy.Protocol(), Strategy: strategy}
}

// Lookup 精确匹配协议
func (t *Table) Lookup(p metadata.Protocol) (contracts.InvocationStrategy, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := t.entries[p]
	return s, ok
}

// References 指定协议族下受支持的接口契约，按字典序排列
func (t *Table) References(kind string) []string {
	if t == nil {
		return nil
	}
	var refs []string
	for p := range t.entries {
		if p.Kind == kind {
			refs = append(refs, p.Reference)
		}
	}
	sort.Strings(refs)
	return refs
}

// Protocols 所有受支持的协议
func (t *Table) Protocols() []metadata.Protocol {
	if t == nil {
		return nil
	}
	out := make([]metadata.Protocol, 0, len(t.entries))
	for p := range t.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
