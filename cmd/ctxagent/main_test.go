//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-ctxagent-go/agent"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/internal/config"
	"trpc.group/trpc-go/trpc-ctxagent-go/runner"
)

func TestReadTasks(t *testing.T) {
	tasks, err := readTasks(strings.NewReader("first\n\n# skipped\n  second  \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, tasks)

	_, err = readTasks(strings.NewReader("\n# only comments\n"))
	assert.Error(t, err)
}

func TestNewSaver(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name string
		cfg  config.CheckpointConfig
	}{
		{"memory", config.CheckpointConfig{Backend: config.BackendMemory, MaxPerThread: 10}},
		{"sqlite", config.CheckpointConfig{Backend: config.BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "cp.db")}},
		{"redis", config.CheckpointConfig{Backend: config.BackendRedis, RedisURL: "redis://" + mr.Addr(), RedisPrefix: "test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newSaver(ctx, tt.cfg)
			require.NoError(t, err)
			defer s.Close()
			seq, err := s.Put(ctx, "t", graph.NewCheckpoint("t", "", graph.Start, -1, graph.CheckpointSourceInput, []byte(`{}`)))
			require.NoError(t, err)
			assert.Equal(t, int64(1), seq)
		})
	}

	_, err := newSaver(ctx, config.CheckpointConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestNewModel_RequiresKey(t *testing.T) {
	_, err := newModel(config.ModelConfig{Name: "gpt-4"})
	assert.Error(t, err)

	m, err := newModel(config.ModelConfig{Name: "gpt-4", APIKey: "k", BaseURL: "http://localhost:1"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", m.Info().Name)
}

func TestNewTools(t *testing.T) {
	r, err := newTools(config.ToolsConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"read_file", "search_files", "grep_code"}, r.Names())
}

// echoAgent answers every task with its own text.
type echoAgent struct {
	mu      sync.Mutex
	threads []string
	fail    string
}

func (e *echoAgent) Run(_ context.Context, task string, opts ...agent.RunOption) (*agent.Result, error) {
	o := agent.NewRunOptions(opts...)
	e.mu.Lock()
	e.threads = append(e.threads, o.ThreadID)
	e.mu.Unlock()
	if task == e.fail {
		return nil, errors.New("model unavailable")
	}
	return &agent.Result{ThreadID: o.ThreadID, Response: "echo: " + task, Verdict: "good"}, nil
}

func (e *echoAgent) Resume(context.Context, string, ...agent.RunOption) (*agent.Result, error) {
	return nil, errors.New("not supported")
}

func (e *echoAgent) Info() agent.Info { return agent.Info{Name: "echo"} }

func TestChat(t *testing.T) {
	a := &echoAgent{fail: "broken"}
	var out, errOut bytes.Buffer
	in := strings.NewReader("hello\n\nbroken\nagain\nquit\nnever\n")

	require.NoError(t, chat(context.Background(), a, "th", in, &out, &errOut))

	assert.Contains(t, out.String(), "echo: hello")
	assert.Contains(t, out.String(), "echo: again")
	assert.NotContains(t, out.String(), "never")
	assert.Contains(t, errOut.String(), "model unavailable")
	assert.Equal(t, []string{"th", "th", "th"}, a.threads)
}

func TestChat_EOF(t *testing.T) {
	a := &echoAgent{}
	var out bytes.Buffer
	require.NoError(t, chat(context.Background(), a, "th", strings.NewReader("one"), &out, &out))
	assert.Contains(t, out.String(), "echo: one")
}

func TestPrintResult_GaveUp(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, &agent.Result{ThreadID: "t1", Response: "partial", Verdict: "bad", Replans: 3, GaveUp: true})
	assert.Contains(t, out.String(), "partial")
	assert.Contains(t, out.String(), "[thread t1, verdict gave up, replans 3]")
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	cp := graph.NewCheckpoint("t", "", "planner", 0, graph.CheckpointSourceLoop, []byte(`{}`))
	cp.Seq = 2
	printHistory(&out, []*graph.Checkpoint{cp})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "SEQ"))
	assert.Contains(t, lines[1], "planner")
	assert.Contains(t, lines[1], cp.ID)
}

func TestPrintOutcomes(t *testing.T) {
	var out bytes.Buffer
	err := printOutcomes(&out, []runner.Outcome{
		{Task: "a", Result: &agent.Result{ThreadID: "1", Response: "done", Verdict: "good"}, Duration: time.Second},
		{Task: "b", Err: errors.New("boom")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 tasks failed")
	assert.Contains(t, out.String(), "== 1. a")
	assert.Contains(t, out.String(), "error: boom")
}

func TestTraceOptions(t *testing.T) {
	base := config.TelemetryConfig{Endpoint: "collector:4317", Protocol: "grpc", ServiceName: "ctxagent"}
	assert.Len(t, traceOptions(base), 3)

	full := base
	full.Protocol = "http"
	full.EndpointURL = "http://collector:4318/otel"
	full.Headers = map[string]string{"x-tenant": "docs"}
	assert.Len(t, traceOptions(full), 5)
}
