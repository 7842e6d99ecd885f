//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the contract shared by task agents and the result
// of a run.
package agent

import (
	"context"

	"trpc.group/trpc-go/trpc-ctxagent-go/event"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
)

// Info contains basic information about an agent.
type Info struct {
	Name        string
	Description string
}

// Agent is the interface that all agents must implement.
type Agent interface {
	// Run drives task to completion on a thread and returns the result.
	Run(ctx context.Context, task string, opts ...RunOption) (*Result, error)

	// Resume continues a thread from its latest checkpoint.
	Resume(ctx context.Context, threadID string, opts ...RunOption) (*Result, error)

	// Info returns the basic information about this agent.
	Info() Info
}

// Result is the outcome of a completed run.
type Result struct {
	// ThreadID identifies the thread the run used.
	ThreadID string
	// Response is the content of the last message in the final state.
	Response string
	// Verdict is the last evaluation verdict.
	Verdict string
	// Replans counts planner iterations.
	Replans int
	// GaveUp is set when the run stopped because the replan limit was hit.
	GaveUp bool
	// State is the final thread state.
	State graph.State
}

// EventHandler observes the events of a run as they are produced.
type EventHandler func(*event.Event)

// RunOptions is the options for a single run.
type RunOptions struct {
	// ThreadID reuses an existing thread instead of generating one.
	ThreadID string
	// EventHandler receives every event of the run.
	EventHandler EventHandler
}

// RunOption configures a run.
type RunOption func(*RunOptions)

// WithThreadID runs on the given thread.
func WithThreadID(threadID string) RunOption {
	return func(opts *RunOptions) {
		opts.ThreadID = threadID
	}
}

// WithEventHandler streams run events to h. Events arrive in order from a
// single goroutine; a slow h slows the run down.
func WithEventHandler(h EventHandler) RunOption {
	return func(opts *RunOptions) {
		opts.EventHandler = h
	}
}

// NewRunOptions applies opts to a zero RunOptions.
func NewRunOptions(opts ...RunOption) RunOptions {
	var o RunOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
