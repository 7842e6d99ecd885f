//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package metric exports run counters over OTLP. The instruments are no-ops
// until Start installs a meter provider.
package metric

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	noopm "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	itelemetry "trpc.group/trpc-go/trpc-ctxagent-go/internal/telemetry"
)

// Outcome values recorded on every instrument.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// Meter is the global OpenTelemetry meter for the agent.
	Meter metric.Meter = noopm.Meter{}

	mu          sync.RWMutex
	instruments = newInstruments(Meter)
)

type instrumentSet struct {
	nodeExecutions metric.Int64Counter
	nodeDuration   metric.Float64Histogram
	toolCalls      metric.Int64Counter
	checkpoints    metric.Int64Counter
}

func newInstruments(m metric.Meter) *instrumentSet {
	// Instrument creation only fails on invalid names; the names below are static.
	nodeExecutions, _ := m.Int64Counter("ctxagent.node.executions",
		metric.WithDescription("Number of graph node executions"))
	nodeDuration, _ := m.Float64Histogram("ctxagent.node.duration",
		metric.WithDescription("Graph node execution time"), metric.WithUnit("s"))
	toolCalls, _ := m.Int64Counter("ctxagent.tool.calls",
		metric.WithDescription("Number of dispatched tool calls"))
	checkpoints, _ := m.Int64Counter("ctxagent.checkpoint.writes",
		metric.WithDescription("Number of checkpoint writes"))
	return &instrumentSet{
		nodeExecutions: nodeExecutions,
		nodeDuration:   nodeDuration,
		toolCalls:      toolCalls,
		checkpoints:    checkpoints,
	}
}

// SetMeter replaces Meter and rebuilds the instruments on top of it.
func SetMeter(m metric.Meter) {
	mu.Lock()
	defer mu.Unlock()
	Meter = m
	instruments = newInstruments(m)
}

func current() *instrumentSet {
	mu.RLock()
	defer mu.RUnlock()
	return instruments
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RecordNodeExecution counts one node execution and its duration in seconds.
func RecordNodeExecution(ctx context.Context, nodeID string, seconds float64, err error) {
	attrs := metric.WithAttributes(
		attribute.String(itelemetry.KeyNodeID, nodeID),
		attribute.String(itelemetry.KeyOutcome, outcome(err)),
	)
	set := current()
	set.nodeExecutions.Add(ctx, 1, attrs)
	set.nodeDuration.Record(ctx, seconds, attrs)
}

// RecordToolCall counts one dispatched tool call.
func RecordToolCall(ctx context.Context, toolName string, ok bool) {
	result := OutcomeOK
	if !ok {
		result = OutcomeError
	}
	current().toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(itelemetry.KeyToolName, toolName),
		attribute.String(itelemetry.KeyOutcome, result),
	))
}

// RecordCheckpoint counts one checkpoint write against a backend.
func RecordCheckpoint(ctx context.Context, backend string, err error) {
	current().checkpoints.Add(ctx, 1, metric.WithAttributes(
		attribute.String(itelemetry.KeyBackend, backend),
		attribute.String(itelemetry.KeyOutcome, outcome(err)),
	))
}

// Start collects telemetry with optional configuration.
// The environment variables described below can be used for Endpoint configuration.
// OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_METRICS_ENDPOINT (default: "localhost:4317")
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	options := &options{
		serviceName:      itelemetry.ServiceName,
		serviceVersion:   itelemetry.ServiceVersion,
		serviceNamespace: itelemetry.ServiceNamespace,
		protocol:         itelemetry.ProtocolGRPC,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.metricsEndpoint == "" {
		options.metricsEndpoint = metricsEndpoint(options.protocol)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNamespace(options.serviceNamespace),
			semconv.ServiceName(options.serviceName),
			semconv.ServiceVersion(options.serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch options.protocol {
	case itelemetry.ProtocolHTTP:
		exporter, err = otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(options.metricsEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		conn, connErr := itelemetry.NewGRPCConn(options.metricsEndpoint)
		if connErr != nil {
			return nil, fmt.Errorf("failed to initialize metrics connection: %w", connErr)
		}
		exporter, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)
	SetMeter(meterProvider.Meter(itelemetry.InstrumentName))

	return func() error {
		if err := meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown MeterProvider: %w", err)
		}
		return nil
	}, nil
}

func metricsEndpoint(protocol string) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if protocol == itelemetry.ProtocolHTTP {
		return "localhost:4318"
	}
	return "localhost:4317"
}

// Option is a function that configures meter options.
type Option func(*options)

type options struct {
	metricsEndpoint  string
	serviceName      string
	serviceVersion   string
	serviceNamespace string
	protocol         string
}

// WithEndpoint sets the metrics endpoint(host and port) the Exporter will connect to.
// The provided endpoint should resemble "example.com:4317" (no scheme or path).
// It takes precedence over the OTEL_EXPORTER_OTLP_* environment variables.
func WithEndpoint(endpoint string) Option {
	return func(opts *options) {
		opts.metricsEndpoint = endpoint
	}
}

// WithProtocol selects "grpc" (default) or "http".
func WithProtocol(protocol string) Option {
	return func(opts *options) {
		opts.protocol = protocol
	}
}
