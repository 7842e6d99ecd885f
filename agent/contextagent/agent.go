//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package contextagent provides a planning agent that works on a task with
// tools, grades the result and replans when the grade is bad.
package contextagent

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-ctxagent-go/agent"
	"trpc.group/trpc-go/trpc-ctxagent-go/event"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph/checkpoint/inmemory"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool/dispatch"
)

// Agent runs the plan/run/evaluate graph.
type Agent struct {
	opts Options

	plannerModel   model.Model
	runnerModel    model.Model
	evaluatorModel model.Model
	optimizerModel model.Model

	saver      graph.CheckpointSaver
	dispatcher *dispatch.Dispatcher
	graph      *graph.Graph
	executor   *graph.Executor
}

var _ agent.Agent = (*Agent)(nil)

// New creates an agent. m serves every node without a dedicated model.
func New(m model.Model, opts ...Option) (*Agent, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxReplans <= 0 {
		options.MaxReplans = DefaultMaxReplans
	}
	if options.MaxToolRounds <= 0 {
		options.MaxToolRounds = DefaultMaxToolRounds
	}

	a := &Agent{
		opts:           options,
		plannerModel:   pick(options.PlannerModel, m),
		runnerModel:    pick(options.RunnerModel, m),
		evaluatorModel: pick(options.EvaluatorModel, m),
		optimizerModel: pick(options.OptimizerModel, m),
		saver:          options.CheckpointSaver,
	}
	for _, nm := range []model.Model{a.plannerModel, a.runnerModel, a.evaluatorModel, a.optimizerModel} {
		if nm == nil {
			return nil, errors.New("contextagent: model is nil")
		}
	}
	if a.saver == nil {
		a.saver = inmemory.NewSaver()
	}

	var dispatchOpts []dispatch.Option
	if options.MaxToolOutputBytes != 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithMaxOutputBytes(options.MaxToolOutputBytes))
	}
	dispatcher, err := dispatch.New(options.Tools, dispatchOpts...)
	if err != nil {
		return nil, fmt.Errorf("contextagent: %w", err)
	}
	a.dispatcher = dispatcher

	g, err := a.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("contextagent: build graph: %w", err)
	}
	a.graph = g

	execOpts := []graph.ExecutorOption{
		graph.WithCheckpointSaver(a.saver),
		graph.WithNodeCallbacks(options.NodeCallbacks),
	}
	if options.MaxSteps > 0 {
		execOpts = append(execOpts, graph.WithMaxSteps(options.MaxSteps))
	}
	executor, err := graph.NewExecutor(g, execOpts...)
	if err != nil {
		return nil, fmt.Errorf("contextagent: create executor: %w", err)
	}
	a.executor = executor
	return a, nil
}

func pick(m, fallback model.Model) model.Model {
	if m != nil {
		return m
	}
	return fallback
}

// Info implements agent.Agent.
func (a *Agent) Info() agent.Info {
	return agent.Info{Name: a.opts.Name, Description: a.opts.Description}
}

// Graph returns the compiled graph.
func (a *Agent) Graph() *graph.Graph {
	return a.graph
}

// Saver returns the checkpoint store.
func (a *Agent) Saver() graph.CheckpointSaver {
	return a.saver
}

// Run starts task on a fresh thread, or on the thread named by
// agent.WithThreadID, and waits for it to finish.
func (a *Agent) Run(ctx context.Context, task string, opts ...agent.RunOption) (*agent.Result, error) {
	runOpts := agent.NewRunOptions(opts...)
	threadID := runOpts.ThreadID
	if threadID == "" {
		threadID = uuid.New().String()
	}
	initial := graph.State{
		StateKeyThreadID: threadID,
		StateKeyTask:     task,
		StateKeyMessages: model.NewUserMessage(task),
	}
	ch, err := a.executor.Execute(ctx, initial, threadID)
	if err != nil {
		return nil, err
	}
	return a.wait(ctx, threadID, ch, runOpts.EventHandler)
}

// Resume continues threadID from its latest checkpoint.
func (a *Agent) Resume(ctx context.Context, threadID string, opts ...agent.RunOption) (*agent.Result, error) {
	runOpts := agent.NewRunOptions(opts...)
	ch, err := a.executor.Resume(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return a.wait(ctx, threadID, ch, runOpts.EventHandler)
}

// History returns the checkpoints of a thread in order.
func (a *Agent) History(ctx context.Context, threadID string) ([]*graph.Checkpoint, error) {
	return a.saver.List(ctx, threadID)
}

func (a *Agent) wait(ctx context.Context, threadID string, ch <-chan *event.Event,
	handler agent.EventHandler) (*agent.Result, error) {
	if handler != nil {
		ch = tee(ch, handler)
	}
	final, err := graph.Drain(ctx, ch)
	if err != nil {
		return nil, fmt.Errorf("thread %s: %w", threadID, err)
	}
	return a.result(threadID, final), nil
}

// tee calls h for every event before passing it on. The returned channel
// is unbuffered, so h runs in step with the consumer.
func tee(in <-chan *event.Event, h agent.EventHandler) <-chan *event.Event {
	out := make(chan *event.Event)
	go func() {
		defer close(out)
		for evt := range in {
			h(evt)
			out <- evt
		}
	}()
	return out
}

func (a *Agent) result(threadID string, final graph.State) *agent.Result {
	res := &agent.Result{
		ThreadID: threadID,
		Verdict:  string(stateVerdict(final)),
		Replans:  stateReplans(final),
		State:    final,
	}
	if msgs := final.Messages(); len(msgs) > 0 {
		res.Response = msgs[len(msgs)-1].Content
	}
	res.GaveUp = stateVerdict(final) == VerdictBad && res.Replans >= a.opts.MaxReplans
	return res
}
