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
	"context"
	"errors"
	"fmt"

	"trpc.group/trpc-go/trpc-ctxagent-go/agent/contextagent"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph/checkpoint/inmemory"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph/checkpoint/redis"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph/checkpoint/sqlite"
	"trpc.group/trpc-go/trpc-ctxagent-go/internal/config"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
	"trpc.group/trpc-go/trpc-ctxagent-go/model/openai"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool/file"
)

// newSaver opens the configured checkpoint backend.
func newSaver(ctx context.Context, cfg config.CheckpointConfig) (graph.CheckpointSaver, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return inmemory.NewSaver().WithMaxCheckpointsPerThread(cfg.MaxPerThread), nil
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.BackendRedis:
		return redis.Open(ctx, cfg.RedisURL,
			redis.WithKeyPrefix(cfg.RedisPrefix),
			redis.WithTTL(cfg.RedisTTL),
		)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}

// newModel builds the OpenAI-compatible model.
func newModel(cfg config.ModelConfig) (model.Model, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("no API key: set model.api_key, CTXAGENT_MODEL_API_KEY or OPENAI_API_KEY")
	}
	opts := []openai.Option{openai.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(cfg.Name, opts...), nil
}

// newTools registers the file tools rooted at the configured directory.
func newTools(cfg config.ToolsConfig) (*tool.Registry, error) {
	opts := []file.Option{file.WithBaseDir(cfg.BaseDir)}
	if cfg.MaxFileSize > 0 {
		opts = append(opts, file.WithMaxFileSize(cfg.MaxFileSize))
	}
	set, err := file.NewToolSet(opts...)
	if err != nil {
		return nil, fmt.Errorf("file tools: %w", err)
	}
	return tool.NewRegistry(set.Tools()...)
}

// newAgent wires model, tools and saver into a context agent. The caller
// closes the returned saver.
func newAgent(ctx context.Context, cfg *config.Config, m model.Model) (*contextagent.Agent, graph.CheckpointSaver, error) {
	tools, err := newTools(cfg.Tools)
	if err != nil {
		return nil, nil, err
	}
	saver, err := newSaver(ctx, cfg.Checkpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint backend %s: %w", cfg.Checkpoint.Backend, err)
	}
	a, err := contextagent.New(m,
		contextagent.WithTools(tools),
		contextagent.WithCheckpointSaver(saver),
		contextagent.WithTemperature(cfg.Model.Temperature),
		contextagent.WithMaxReplans(cfg.Agent.MaxReplans),
		contextagent.WithMaxToolRounds(cfg.Agent.MaxToolRounds),
		contextagent.WithMaxSteps(cfg.Agent.MaxSteps),
		contextagent.WithMaxToolOutputBytes(cfg.Tools.MaxOutputBytes),
	)
	if err != nil {
		saver.Close()
		return nil, nil, err
	}
	return a, saver, nil
}
