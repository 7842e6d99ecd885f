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
	"trpc.group/trpc-go/trpc-ctxagent-go/event"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

const (
	// AuthorGraphExecutor is the author of the graph executor.
	AuthorGraphExecutor = "graph-executor"
)

// Event object types.
const (
	// ObjectTypeGraphNodeStart is the object type for node start events.
	ObjectTypeGraphNodeStart = "graph.node.start"
	// ObjectTypeGraphNodeComplete is the object type for node completion events.
	ObjectTypeGraphNodeComplete = "graph.node.complete"
	// ObjectTypeGraphExecutionComplete is the object type of the final event of a successful run.
	ObjectTypeGraphExecutionComplete = "graph.execution.complete"
	// ObjectTypeGraphExecutionError is the object type of the final event of a failed run.
	ObjectTypeGraphExecutionError = "graph.execution.error"
)

func newNodeStartEvent(threadID, nodeID string, step int) *event.Event {
	return event.New(threadID, nodeID,
		event.WithObject(ObjectTypeGraphNodeStart),
		event.WithStep(step),
	)
}

func newNodeCompleteEvent(threadID, nodeID string, step int, msgs []model.Message, state State) *event.Event {
	return event.New(threadID, nodeID,
		event.WithObject(ObjectTypeGraphNodeComplete),
		event.WithStep(step),
		event.WithMessages(msgs),
		event.WithState(state.Clone()),
	)
}

func newCompletionEvent(threadID string, step int, state State) *event.Event {
	return event.New(threadID, AuthorGraphExecutor,
		event.WithObject(ObjectTypeGraphExecutionComplete),
		event.WithStep(step),
		event.WithState(state.Clone()),
		event.WithDone(),
	)
}

func newErrorEvent(threadID string, step int, err error) *event.Event {
	return event.New(threadID, AuthorGraphExecutor,
		event.WithObject(ObjectTypeGraphExecutionError),
		event.WithStep(step),
		event.WithError(err),
	)
}

// producedMessages returns the messages a node update appends to the log.
func producedMessages(update State) []model.Message {
	v, ok := update[StateKeyMessages]
	if !ok {
		return nil
	}
	msgs, _ := MessageReducer(nil, v).([]model.Message)
	return msgs
}
