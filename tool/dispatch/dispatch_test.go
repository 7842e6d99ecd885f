//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-ctxagent-go/model"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool/function"
)

type echoArgs struct {
	Text string `json:"text" jsonschema:"description=text to echo"`
}

type echoResult struct {
	Echo string `json:"echo"`
}

type noArgs struct{}

func testRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	echo := function.NewFunctionTool(func(_ context.Context, in echoArgs) (echoResult, error) {
		return echoResult{Echo: in.Text}, nil
	}, function.WithName("echo"))
	plain := function.NewFunctionTool(func(_ context.Context, in echoArgs) (string, error) {
		return in.Text, nil
	}, function.WithName("plain"))
	fail := function.NewFunctionTool(func(_ context.Context, _ noArgs) (string, error) {
		return "", errors.New("disk on fire")
	}, function.WithName("fail"))
	boom := function.NewFunctionTool(func(_ context.Context, _ noArgs) (string, error) {
		panic("kaboom")
	}, function.WithName("boom"))
	return tool.MustNewRegistry(echo, plain, fail, boom)
}

func call(id, name, args string) model.ToolCall {
	return model.ToolCall{
		ID:   id,
		Type: "function",
		Function: model.FunctionDefinitionParam{
			Name:      name,
			Arguments: []byte(args),
		},
	}
}

func decodeFailure(t *testing.T, content string) failure {
	t.Helper()
	var f failure
	require.NoError(t, json.Unmarshal([]byte(content), &f), content)
	assert.False(t, f.Success)
	return f
}

func TestDispatch_OrderedResults(t *testing.T) {
	d, err := New(testRegistry(t))
	require.NoError(t, err)

	calls := []model.ToolCall{
		call("1", "echo", `{"text":"a"}`),
		call("2", "plain", `{"text":"b"}`),
		call("3", "echo", `{"text":"c"}`),
	}
	msgs := d.Dispatch(context.Background(), calls)
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, model.RoleTool, m.Role)
		assert.Equal(t, calls[i].ID, m.ToolID)
		assert.Equal(t, calls[i].Function.Name, m.ToolName)
	}
	assert.JSONEq(t, `{"echo":"a"}`, msgs[0].Content)
	assert.Equal(t, "b", msgs[1].Content)
	assert.JSONEq(t, `{"echo":"c"}`, msgs[2].Content)
}

func TestDispatch_FailuresBecomeContent(t *testing.T) {
	d, err := New(testRegistry(t))
	require.NoError(t, err)

	tests := []struct {
		name    string
		call    model.ToolCall
		wantErr string
	}{
		{"unknown tool", call("u", "nope", `{}`), "unknown tool: nope"},
		{"invalid json", call("j", "echo", `{"text":`), "invalid tool arguments JSON"},
		{"schema violation", call("s", "echo", `{"text":3}`), "schema validation failed"},
		{"missing required", call("r", "echo", `{}`), "schema validation failed"},
		{"tool error", call("e", "fail", ``), "disk on fire"},
		{"panic", call("p", "boom", `{}`), "tool panicked: kaboom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := d.Dispatch(context.Background(), []model.ToolCall{tt.call})
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.call.ID, msgs[0].ToolID)
			f := decodeFailure(t, msgs[0].Content)
			assert.Contains(t, f.Error, tt.wantErr)
		})
	}
}

func TestDispatch_MixedBatchKeepsCount(t *testing.T) {
	d, err := New(testRegistry(t))
	require.NoError(t, err)

	msgs := d.Dispatch(context.Background(), []model.ToolCall{
		call("1", "boom", `{}`),
		call("2", "echo", `{"text":"after panic"}`),
		call("3", "missing", `{}`),
	})
	require.Len(t, msgs, 3)
	decodeFailure(t, msgs[0].Content)
	assert.JSONEq(t, `{"echo":"after panic"}`, msgs[1].Content)
	decodeFailure(t, msgs[2].Content)
}

func TestDispatch_CanceledContext(t *testing.T) {
	d, err := New(testRegistry(t))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msgs := d.Dispatch(ctx, []model.ToolCall{call("1", "echo", `{"text":"x"}`), call("2", "plain", `{"text":"y"}`)})
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Contains(t, decodeFailure(t, m.Content).Error, "canceled")
	}
}

func TestDispatch_MissingCallID(t *testing.T) {
	d, err := New(testRegistry(t))
	require.NoError(t, err)

	a := d.Dispatch(context.Background(), []model.ToolCall{call("", "echo", `{"text":"x"}`)})
	b := d.Dispatch(context.Background(), []model.ToolCall{call("", "echo", `{"text":"x"}`)})
	require.Len(t, a, 1)
	assert.True(t, strings.HasPrefix(a[0].ToolID, "call_"))
	assert.Len(t, a[0].ToolID, len("call_")+16)
	assert.Equal(t, a[0].ToolID, b[0].ToolID)
}

func TestDispatch_Truncation(t *testing.T) {
	d, err := New(testRegistry(t), WithMaxOutputBytes(8))
	require.NoError(t, err)

	msgs := d.Dispatch(context.Background(), []model.ToolCall{call("1", "plain", `{"text":"0123456789abcdef"}`)})
	require.Len(t, msgs, 1)
	assert.Equal(t, "01234567"+truncatedMarker, msgs[0].Content)

	// Multi-byte runes are not split.
	msgs = d.Dispatch(context.Background(), []model.ToolCall{call("2", "plain", `{"text":"aaaaaaaé"}`)})
	assert.Equal(t, "aaaaaaa"+truncatedMarker, msgs[0].Content)

	unlimited, err := New(testRegistry(t), WithMaxOutputBytes(0))
	require.NoError(t, err)
	long := strings.Repeat("x", DefaultMaxOutputBytes*2)
	msgs = unlimited.Dispatch(context.Background(), []model.ToolCall{call("3", "plain", `{"text":"`+long+`"}`)})
	assert.Equal(t, long, msgs[0].Content)
}

func TestDispatch_EmptyAndNil(t *testing.T) {
	d, err := New(testRegistry(t))
	require.NoError(t, err)
	assert.Empty(t, d.Dispatch(context.Background(), nil))

	none, err := New(nil)
	require.NoError(t, err)
	msgs := none.Dispatch(context.Background(), []model.ToolCall{call("1", "echo", `{}`)})
	require.Len(t, msgs, 1)
	assert.Contains(t, decodeFailure(t, msgs[0].Content).Error, "unknown tool")
}

func TestNew_InvalidSchema(t *testing.T) {
	bad := &staticTool{decl: &tool.Declaration{
		Name:        "bad",
		InputSchema: &tool.Schema{Type: "no-such-type"},
	}}
	_, err := New(tool.MustNewRegistry(bad))
	assert.Error(t, err)
}

type staticTool struct {
	decl *tool.Declaration
}

func (s *staticTool) Declaration() *tool.Declaration { return s.decl }

func (s *staticTool) Call(context.Context, []byte) (any, error) { return nil, nil }
