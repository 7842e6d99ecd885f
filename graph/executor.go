//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trpc.group/trpc-go/trpc-ctxagent-go/event"
	itelemetry "trpc.group/trpc-go/trpc-ctxagent-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-ctxagent-go/log"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/trace"
)

const (
	defaultChannelBufferSize = 256
	defaultMaxSteps          = 100
)

// Executor executes a graph with the given initial state.
type Executor struct {
	graph             *Graph
	saver             CheckpointSaver
	callbacks         *NodeCallbacks
	channelBufferSize int
	maxSteps          int
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*ExecutorOptions)

// ExecutorOptions contains configuration options for creating an Executor.
type ExecutorOptions struct {
	// ChannelBufferSize is the buffer size for event channels (default: 256).
	ChannelBufferSize int
	// MaxSteps caps the node executions of one Execute or Resume call
	// (default: 100).
	MaxSteps int
	// CheckpointSaver persists a checkpoint after every step. Optional.
	CheckpointSaver CheckpointSaver
	// NodeCallbacks run around every node.
	NodeCallbacks *NodeCallbacks
}

// WithChannelBufferSize sets the buffer size for event channels.
func WithChannelBufferSize(size int) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.ChannelBufferSize = size
	}
}

// WithMaxSteps sets the maximum number of steps for graph execution.
func WithMaxSteps(maxSteps int) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.MaxSteps = maxSteps
	}
}

// WithCheckpointSaver sets the checkpoint store.
func WithCheckpointSaver(saver CheckpointSaver) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.CheckpointSaver = saver
	}
}

// WithNodeCallbacks sets callbacks that run around every node.
func WithNodeCallbacks(callbacks *NodeCallbacks) ExecutorOption {
	return func(opts *ExecutorOptions) {
		opts.NodeCallbacks = callbacks
	}
}

// NewExecutor creates a new graph executor.
func NewExecutor(graph *Graph, opts ...ExecutorOption) (*Executor, error) {
	if graph == nil {
		return nil, fmt.Errorf("%w: graph is nil", ErrInvalidGraph)
	}
	if err := graph.validate(); err != nil {
		return nil, err
	}
	options := ExecutorOptions{
		ChannelBufferSize: defaultChannelBufferSize,
		MaxSteps:          defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxSteps <= 0 {
		options.MaxSteps = defaultMaxSteps
	}
	if options.ChannelBufferSize < 0 {
		options.ChannelBufferSize = 0
	}
	return &Executor{
		graph:             graph,
		saver:             options.CheckpointSaver,
		callbacks:         options.NodeCallbacks,
		channelBufferSize: options.ChannelBufferSize,
		maxSteps:          options.MaxSteps,
	}, nil
}

// Graph returns the executed graph.
func (e *Executor) Graph() *Graph {
	return e.graph
}

// Saver returns the checkpoint saver, which may be nil.
func (e *Executor) Saver() CheckpointSaver {
	return e.saver
}

// execution is the mutable cursor of one run.
type execution struct {
	threadID   string
	state      State
	lastNode   string
	step       int
	parentID   string
	writeInput bool
}

// Execute starts a new run of the thread from the entry point and streams
// its events. The channel is closed after the final event, which is either
// a completion event carrying the final state or an error event.
func (e *Executor) Execute(ctx context.Context, initialState State, threadID string) (<-chan *event.Event, error) {
	if threadID == "" {
		return nil, ErrThreadIDRequired
	}
	schema := e.graph.Schema()
	state := schema.ApplyUpdate(schema.Initial(), initialState)
	if err := schema.Validate(state); err != nil {
		return nil, err
	}
	return e.start(ctx, &execution{
		threadID:   threadID,
		state:      state,
		lastNode:   Start,
		step:       -1,
		writeInput: true,
	}), nil
}

// Invoke runs Execute and waits for the final state.
func (e *Executor) Invoke(ctx context.Context, initialState State, threadID string) (State, error) {
	ch, err := e.Execute(ctx, initialState, threadID)
	if err != nil {
		return nil, err
	}
	return Drain(ctx, ch)
}

// Drain consumes an event stream and returns the final state, or the error
// that ended the run.
func Drain(ctx context.Context, ch <-chan *event.Event) (State, error) {
	var (
		final  State
		runErr error
		done   bool
	)
	for evt := range ch {
		if evt.Err != nil {
			runErr = evt.Err
		}
		if evt.Object == ObjectTypeGraphExecutionComplete {
			final = State(evt.State)
			done = true
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if !done {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("graph run ended without a final event")
	}
	return final, nil
}

func (e *Executor) start(ctx context.Context, exec *execution) <-chan *event.Event {
	eventChan := make(chan *event.Event, e.channelBufferSize)
	go func() {
		defer close(eventChan)
		ctx, span := trace.Tracer.Start(ctx, "execute_graph")
		defer span.End()
		span.SetAttributes(attribute.String(itelemetry.KeyThreadID, exec.threadID))

		err := e.run(ctx, exec, eventChan)
		if err == nil {
			return
		}
		span.SetStatus(codes.Error, err.Error())
		log.Errorf("thread %s failed at step %d: %v", exec.threadID, exec.step, err)
		errorEvent := newErrorEvent(exec.threadID, exec.step, err)
		// Prefer delivering the failure even when ctx is already done.
		select {
		case eventChan <- errorEvent:
		default:
			select {
			case eventChan <- errorEvent:
			case <-ctx.Done():
			}
		}
	}()
	return eventChan
}

func (e *Executor) run(ctx context.Context, exec *execution, ch chan<- *event.Event) error {
	if exec.writeInput {
		if err := e.checkpoint(ctx, exec, Start, CheckpointSourceInput); err != nil {
			return err
		}
	}
	current, err := e.graph.next(ctx, exec.lastNode, exec.state)
	if err != nil {
		return err
	}
	for steps := 0; ; steps++ {
		if current == End {
			return emit(ctx, ch, newCompletionEvent(exec.threadID, exec.step, exec.state))
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if steps >= e.maxSteps {
			return fmt.Errorf("%w (%d)", ErrMaxStepsExceeded, e.maxSteps)
		}
		exec.step++
		if err := e.executeNode(ctx, exec, current, ch); err != nil {
			return err
		}
		if err := e.checkpoint(ctx, exec, current, CheckpointSourceLoop); err != nil {
			return err
		}
		exec.lastNode = current
		if current, err = e.graph.next(ctx, current, exec.state); err != nil {
			return err
		}
		log.Debugf("thread %s: %s -> %s", exec.threadID, exec.lastNode, current)
	}
}

// executeNode runs one node and merges its update into exec.state.
func (e *Executor) executeNode(ctx context.Context, exec *execution, nodeID string, ch chan<- *event.Event) error {
	node, exists := e.graph.Node(nodeID)
	if !exists {
		return fmt.Errorf("%w: node %s not found", ErrInvalidGraph, nodeID)
	}

	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewNodeSpanName(nodeID))
	defer span.End()
	span.SetAttributes(
		attribute.String(itelemetry.KeyNodeID, nodeID),
		attribute.String(itelemetry.KeyThreadID, exec.threadID),
		attribute.Int(itelemetry.KeyStep, exec.step),
	)

	if err := emit(ctx, ch, newNodeStartEvent(exec.threadID, nodeID, exec.step)); err != nil {
		return err
	}

	info := &NodeInfo{
		ThreadID:  exec.threadID,
		NodeID:    nodeID,
		Step:      exec.step,
		StartedAt: time.Now(),
	}
	update, err := e.invokeNode(ctx, node, info, exec.state.Clone())
	if err == nil {
		exec.state = e.graph.Schema().ApplyUpdate(exec.state, update)
		err = e.graph.Schema().Validate(exec.state)
	}
	metric.RecordNodeExecution(ctx, nodeID, time.Since(info.StartedAt).Seconds(), err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		e.callbacks.onError(ctx, info, exec.state, err)
		return &NodeError{NodeID: nodeID, Step: exec.step, Err: err}
	}

	return emit(ctx, ch, newNodeCompleteEvent(exec.threadID, nodeID, exec.step,
		producedMessages(update), exec.state))
}

// invokeNode runs the callbacks and the node function on a copy of the
// state and returns the node's update.
func (e *Executor) invokeNode(ctx context.Context, node *Node, info *NodeInfo,
	state State) (update State, err error) {
	defer func() {
		if r := recover(); r != nil {
			update, err = nil, fmt.Errorf("node panicked: %v", r)
		}
	}()
	update, err = e.callbacks.before(ctx, info, state)
	if err != nil {
		return nil, fmt.Errorf("before node callback: %w", err)
	}
	var nodeErr error
	if update == nil {
		update, nodeErr = callNode(ctx, node, state)
	}
	update, err = e.callbacks.after(ctx, info, state, update, nodeErr)
	if err != nil {
		return nil, fmt.Errorf("after node callback: %w", err)
	}
	if nodeErr != nil {
		return nil, nodeErr
	}
	if update == nil {
		update = State{}
	}
	return update, nil
}

func callNode(ctx context.Context, node *Node, state State) (State, error) {
	result, err := node.Function(ctx, state)
	if err != nil {
		return nil, err
	}
	switch r := result.(type) {
	case nil:
		return nil, nil
	case State:
		return r, nil
	case map[string]any:
		return State(r), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidNodeResult, result)
	}
}

// checkpoint persists exec.state after node. Completed work is saved even
// if ctx was canceled meanwhile.
func (e *Executor) checkpoint(ctx context.Context, exec *execution, node string, source string) error {
	if e.saver == nil {
		return nil
	}
	data, err := e.graph.Schema().Encode(exec.state)
	if err != nil {
		return err
	}
	cp := NewCheckpoint(exec.threadID, exec.parentID, node, exec.step, source, data)
	seq, err := e.saver.Put(context.WithoutCancel(ctx), exec.threadID, cp)
	if err != nil {
		return fmt.Errorf("save checkpoint after %s: %w", node, err)
	}
	exec.parentID = cp.ID
	log.Debugf("thread %s: checkpoint %d after %s (step %d)", exec.threadID, seq, node, exec.step)
	return nil
}

func emit(ctx context.Context, ch chan<- *event.Event, evt *event.Event) error {
	select {
	case ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
