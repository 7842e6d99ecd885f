//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package runner runs many tasks through one agent concurrently, each on
// its own thread.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trpc.group/trpc-go/trpc-ctxagent-go/agent"
	itelemetry "trpc.group/trpc-go/trpc-ctxagent-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-ctxagent-go/log"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/trace"
)

// DefaultPoolSize is the number of tasks run at once.
const DefaultPoolSize = 4

// Option is a function that configures a Runner.
type Option func(*Options)

// Options is the options for the Runner.
type Options struct {
	// PoolSize bounds the number of concurrent runs.
	PoolSize int
}

// WithPoolSize sets the number of concurrent runs.
func WithPoolSize(n int) Option {
	return func(opts *Options) {
		opts.PoolSize = n
	}
}

// Outcome is the result of one task.
type Outcome struct {
	Task     string
	Result   *agent.Result
	Err      error
	Duration time.Duration
}

// Runner runs tasks through an agent.
type Runner struct {
	agent    agent.Agent
	poolSize int
}

// New creates a Runner.
func New(a agent.Agent, opts ...Option) *Runner {
	options := Options{PoolSize: DefaultPoolSize}
	for _, opt := range opts {
		opt(&options)
	}
	if options.PoolSize <= 0 {
		options.PoolSize = DefaultPoolSize
	}
	return &Runner{agent: a, poolSize: options.PoolSize}
}

// Run runs a single task.
func (r *Runner) Run(ctx context.Context, task string, opts ...agent.RunOption) (*agent.Result, error) {
	ctx, span := trace.Tracer.Start(ctx, "run_task")
	defer span.End()
	res, err := r.agent.Run(ctx, task, opts...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String(itelemetry.KeyThreadID, res.ThreadID))
	return res, nil
}

// RunAll runs every task on the worker pool and returns their outcomes in
// input order. Each task gets a fresh thread, so opts must not carry a
// thread id. The error is only set when the pool cannot be created.
func (r *Runner) RunAll(ctx context.Context, tasks []string, opts ...agent.RunOption) ([]Outcome, error) {
	pool, err := ants.NewPool(r.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	outcomes := make([]Outcome, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		outcomes[i].Task = task
		wg.Add(1)
		idx := i
		err := pool.Submit(func() {
			defer wg.Done()
			start := time.Now()
			res, err := r.Run(ctx, task, opts...)
			outcomes[idx].Result = res
			outcomes[idx].Err = err
			outcomes[idx].Duration = time.Since(start)
			if err != nil {
				log.Warnf("task %d/%d failed: %v", idx+1, len(tasks), err)
			}
		})
		if err != nil {
			wg.Done()
			outcomes[idx].Err = fmt.Errorf("submit task: %w", err)
		}
	}
	wg.Wait()
	return outcomes, nil
}
