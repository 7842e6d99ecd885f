//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	itelemetry "trpc.group/trpc-go/trpc-ctxagent-go/internal/telemetry"
)

func TestTracesEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "custom-trace:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "generic-endpoint:4317")
	assert.Equal(t, "custom-trace:4317", tracesEndpoint(itelemetry.ProtocolGRPC))

	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	assert.Equal(t, "generic-endpoint:4317", tracesEndpoint(itelemetry.ProtocolGRPC))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	assert.Equal(t, "localhost:4317", tracesEndpoint(itelemetry.ProtocolGRPC))
	assert.Equal(t, "localhost:4318", tracesEndpoint(itelemetry.ProtocolHTTP))
}

func TestParseEndpointURL(t *testing.T) {
	endpoint, path, err := parseEndpointURL("http://localhost:3000/api/public/otel")
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", endpoint)
	assert.Equal(t, "/api/public/otel", path)

	endpoint, path, err = parseEndpointURL("collector:4318")
	require.NoError(t, err)
	assert.Equal(t, "collector:4318", endpoint)
	assert.Equal(t, "/", path)

	_, _, err = parseEndpointURL("http://")
	assert.Error(t, err)
}

func TestStartAndClean(t *testing.T) {
	old := Tracer
	defer func() { Tracer = old }()

	for _, protocol := range []string{itelemetry.ProtocolGRPC, itelemetry.ProtocolHTTP} {
		clean, err := Start(context.Background(), WithEndpoint("localhost:4317"), WithProtocol(protocol))
		require.NoError(t, err, protocol)
		require.NotNil(t, clean)
		// No collector is running, so shutdown may report an export failure.
		_ = clean()
	}
}

func TestStart_HTTPEndpointURLAndHeaders(t *testing.T) {
	old := Tracer
	defer func() { Tracer = old }()

	var (
		mu      sync.Mutex
		paths   []string
		tenants []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		tenants = append(tenants, r.Header.Get("x-tenant"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	clean, err := Start(context.Background(),
		WithProtocol(itelemetry.ProtocolHTTP),
		WithEndpointURL(srv.URL+"/api/otel/v1/traces"),
		WithHeaders(map[string]string{"x-tenant": "docs"}),
	)
	require.NoError(t, err)
	_, span := Tracer.Start(context.Background(), "export")
	span.End()
	require.NoError(t, clean())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/api/otel/v1/traces", paths[0])
	assert.Equal(t, "docs", tenants[0])
}
