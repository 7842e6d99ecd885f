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
	"fmt"

	"trpc.group/trpc-go/trpc-ctxagent-go/event"
)

// Resume continues a thread from its latest checkpoint. The node that
// follows the checkpointed one is recomputed from the restored state, so a
// run that failed inside a node re-executes that node. Resuming a thread
// that already reached End yields a single completion event.
func (e *Executor) Resume(ctx context.Context, threadID string) (<-chan *event.Event, error) {
	if threadID == "" {
		return nil, ErrThreadIDRequired
	}
	if e.saver == nil {
		return nil, ErrNoCheckpointSaver
	}
	cp, err := e.saver.Latest(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("resume thread %s: %w", threadID, err)
	}
	state, err := e.graph.Schema().Decode(cp.State)
	if err != nil {
		return nil, fmt.Errorf("resume thread %s: %w", threadID, err)
	}
	return e.start(ctx, &execution{
		threadID: threadID,
		state:    state,
		lastNode: cp.Node,
		step:     cp.Step,
		parentID: cp.ID,
	}), nil
}

// ResumeInvoke runs Resume and waits for the final state.
func (e *Executor) ResumeInvoke(ctx context.Context, threadID string) (State, error) {
	ch, err := e.Resume(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return Drain(ctx, ch)
}
