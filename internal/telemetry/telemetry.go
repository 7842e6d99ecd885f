//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the names, attribute keys and connection helpers
// shared by the trace and metric packages.
package telemetry

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// telemetry service constants.
const (
	ServiceName      = "ctxagent"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-agent"
	InstrumentName   = "trpc.ctxagent.go"

	SpanNamePrefixChat        = "chat"
	SpanNamePrefixExecuteTool = "execute_tool"
	SpanNamePrefixNode        = "graph_node"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporter.
	ProtocolHTTP string = "http"
)

// telemetry attribute keys.
const (
	KeyThreadID   = "trpc.go.agent.thread_id"
	KeyNodeID     = "trpc.go.agent.node_id"
	KeyStep       = "trpc.go.agent.step"
	KeyToolName   = "gen_ai.tool.name"
	KeyToolCallID = "gen_ai.tool.call.id"
	KeyModelName  = "gen_ai.request.model"
	KeyBackend    = "trpc.go.agent.checkpoint_backend"
	KeyOutcome    = "trpc.go.agent.outcome"
)

// NewChatSpanName returns the span name for a model call.
func NewChatSpanName(modelName string) string {
	if modelName == "" {
		return SpanNamePrefixChat
	}
	return SpanNamePrefixChat + " " + modelName
}

// NewExecuteToolSpanName returns the span name for a tool call.
func NewExecuteToolSpanName(toolName string) string {
	return SpanNamePrefixExecuteTool + " " + toolName
}

// NewNodeSpanName returns the span name for a graph node execution.
func NewNodeSpanName(nodeID string) string {
	return SpanNamePrefixNode + " " + nodeID
}

// NewGRPCConn creates a new gRPC connection to the OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	// TLS is left to the collector side proxy.
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}
	return conn, nil
}
