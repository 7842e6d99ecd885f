//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

func TestNew(t *testing.T) {
	e := New("thread-1", "planner",
		WithObject("graph.node.complete"),
		WithStep(3),
		WithMessages([]model.Message{model.NewAssistantMessage("plan")}),
		WithState(map[string]any{"task": "x"}),
	)
	assert.NotEmpty(t, e.ID)
	assert.NotZero(t, e.Timestamp)
	assert.Equal(t, "thread-1", e.ThreadID)
	assert.Equal(t, "planner", e.Author)
	assert.Equal(t, "graph.node.complete", e.Object)
	assert.Equal(t, 3, e.Step)
	assert.Len(t, e.Messages, 1)
	assert.False(t, e.Done)
	assert.False(t, e.IsError())

	other := New("thread-1", "planner")
	assert.NotEqual(t, e.ID, other.ID)
}

func TestWithError(t *testing.T) {
	cause := errors.New("boom")
	e := New("t", "graph", WithError(cause))
	assert.True(t, e.Done)
	assert.True(t, e.IsError())
	assert.Equal(t, "boom", e.Error)
	assert.ErrorIs(t, e.Err, cause)

	ok := New("t", "graph", WithError(nil), WithDone())
	assert.True(t, ok.Done)
	assert.False(t, ok.IsError())

	var nilEvent *Event
	assert.False(t, nilEvent.IsError())
}

func TestClone(t *testing.T) {
	msg := model.NewAssistantMessage("hi")
	msg.ToolCalls = []model.ToolCall{{ID: "1", Function: model.FunctionDefinitionParam{Name: "echo", Arguments: []byte(`{}`)}}}
	e := New("t", "runner", WithMessages([]model.Message{msg}), WithState(map[string]any{"k": "v"}))

	clone := e.Clone()
	require.NotNil(t, clone)
	clone.Messages[0].Content = "changed"
	clone.Messages[0].ToolCalls[0].Function.Arguments[0] = '['
	clone.State["k"] = "changed"

	assert.Equal(t, "hi", e.Messages[0].Content)
	assert.Equal(t, byte('{'), e.Messages[0].ToolCalls[0].Function.Arguments[0])
	assert.Equal(t, "v", e.State["k"])

	var nilEvent *Event
	assert.Nil(t, nilEvent.Clone())
}
