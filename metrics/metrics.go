package metrics

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	discoveryCounter  metric.Int64Counter
	discoveryDuration metric.Float64Histogram
	requestCounter    metric.Int64Counter
	requestLatency    metric.Float64Histogram
}

// current 为空表示未设置 meter，SetMeter 可以与 Record* 并发调用
var current atomic.Pointer[instruments]

// SetMeter 从外部设置 meter
func SetMeter(m metric.Meter, serviceName string) error {
	var (
		ins instruments
		err error
	)

	ins.discoveryCounter, err = m.Int64Counter(
		fmt.Sprintf("%s_discovery_runs_total", serviceName),
		metric.WithDescription("Total number of discovery runs by outcome"),
	)
	if err != nil {
		return err
	}

	ins.discoveryDuration, err = m.Float64Histogram(
		fmt.Sprintf("%s_discovery_phase_duration_seconds", serviceName),
		metric.WithDescription("Discovery phase duration in seconds"),
	)
	if err != nil {
		return err
	}

	ins.requestCounter, err = m.Int64Counter(
		fmt.Sprintf("%s_rpc_client_requests_total", serviceName),
		metric.WithDescription("Total number of outgoing RPC requests"),
	)
	if err != nil {
		return err
	}

	ins.requestLatency, err = m.Float64Histogram(
		fmt.Sprintf("%s_rpc_client_request_duration_seconds", serviceName),
		metric.WithDescription("Outgoing RPC request duration in seconds"),
	)
	if err != nil {
		return err
	}

	current.Store(&ins)
	return nil
}

// Enabled 是否已设置 meter
func Enabled() bool {
	return current.Load() != nil
}

// RecordDiscovery 记录一次服务发现的结果
func RecordDiscovery(ctx context.Context, outcome, code string) {
	ins := current.Load()
	if ins == nil {
		return
	}
	ins.discoveryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("code", code),
	))
}

// RecordPhase 记录服务发现各阶段耗时
func RecordPhase(ctx context.Context, phase string, duration float64) {
	ins := current.Load()
	if ins == nil {
		return
	}
	ins.discoveryDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("phase", phase),
	))
}

func RecordRequest(ctx context.Context, method, status string, duration float64) {
	ins := current.Load()
	if ins == nil {
		return
	}

	ins.requestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
	ins.requestLatency.Record(ctx, duration, metric.WithAttributes(
		attribute.String("method", method),
	))
}

// reset 仅用于测试
func reset() {
	current.Store(nil)
}
