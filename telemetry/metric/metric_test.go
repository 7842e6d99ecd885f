//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopm "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	itelemetry "trpc.group/trpc-go/trpc-ctxagent-go/internal/telemetry"
)

func TestMetricsEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "custom-metric:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "generic-endpoint:4317")
	assert.Equal(t, "custom-metric:4317", metricsEndpoint(itelemetry.ProtocolGRPC))

	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	assert.Equal(t, "generic-endpoint:4317", metricsEndpoint(itelemetry.ProtocolGRPC))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	assert.Equal(t, "localhost:4317", metricsEndpoint(itelemetry.ProtocolGRPC))
	assert.Equal(t, "localhost:4318", metricsEndpoint(itelemetry.ProtocolHTTP))
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestRecorders(t *testing.T) {
	defer SetMeter(noopm.Meter{})

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	SetMeter(provider.Meter("test"))

	ctx := context.Background()
	RecordNodeExecution(ctx, "planner", 0.1, nil)
	RecordNodeExecution(ctx, "runner", 0.2, errors.New("boom"))
	RecordToolCall(ctx, "read_file", true)
	RecordToolCall(ctx, "read_file", false)
	RecordToolCall(ctx, "grep_code", true)
	RecordCheckpoint(ctx, "memory", nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), sumOf(t, rm, "ctxagent.node.executions"))
	assert.Equal(t, int64(3), sumOf(t, rm, "ctxagent.tool.calls"))
	assert.Equal(t, int64(1), sumOf(t, rm, "ctxagent.checkpoint.writes"))
}

func TestRecordersNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordNodeExecution(context.Background(), "x", 0, nil)
		RecordToolCall(context.Background(), "x", true)
		RecordCheckpoint(context.Background(), "x", nil)
	})
}

func TestStartAndClean(t *testing.T) {
	defer SetMeter(noopm.Meter{})
	for _, protocol := range []string{itelemetry.ProtocolGRPC, itelemetry.ProtocolHTTP} {
		clean, err := Start(context.Background(), WithEndpoint("localhost:4317"), WithProtocol(protocol))
		require.NoError(t, err, protocol)
		require.NotNil(t, clean)
		_ = clean()
	}
}
