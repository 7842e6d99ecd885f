//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanModel struct {
	responses []*Response
	err       error
}

func (m *chanModel) GenerateContent(ctx context.Context, req *Request) (<-chan *Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	ch := make(chan *Response, len(m.responses))
	for _, r := range m.responses {
		ch <- r
	}
	close(ch)
	return ch, nil
}

func (m *chanModel) Info() Info { return Info{Name: "chan"} }

func TestGenerate(t *testing.T) {
	t.Run("skips partial chunks", func(t *testing.T) {
		m := &chanModel{responses: []*Response{
			{IsPartial: true, Choices: []Choice{{Delta: Message{Content: "he"}}}},
			{Choices: []Choice{{Message: Message{Content: "hello"}}}, Done: true},
		}}
		msg, err := Generate(context.Background(), m, &Request{})
		require.NoError(t, err)
		assert.Equal(t, RoleAssistant, msg.Role)
		assert.Equal(t, "hello", msg.Content)
	})

	t.Run("api error surfaces", func(t *testing.T) {
		m := &chanModel{responses: []*Response{
			{Error: &ResponseError{Type: ErrorTypeAPIError, Message: "rate limited"}},
		}}
		_, err := Generate(context.Background(), m, &Request{})
		require.Error(t, err)
		var rspErr *ResponseError
		require.True(t, errors.As(err, &rspErr))
		assert.Equal(t, "rate limited", rspErr.Message)
	})

	t.Run("system error surfaces", func(t *testing.T) {
		boom := errors.New("dial failed")
		_, err := Generate(context.Background(), &chanModel{err: boom}, &Request{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty channel", func(t *testing.T) {
		_, err := Generate(context.Background(), &chanModel{}, &Request{})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestNewEnumOutput(t *testing.T) {
	out := NewEnumOutput("grade", "quality grade",
		[]EnumField{{Name: "grade", Values: []string{"good", "normal", "bad"}}},
		TextField{Name: "reason"},
	)
	require.NotNil(t, out.JSONSchema)
	assert.Equal(t, StructuredOutputJSONSchema, out.Type)
	assert.True(t, out.JSONSchema.Strict)
	assert.Equal(t, []string{"grade", "reason"}, out.JSONSchema.Schema["required"])
	props := out.JSONSchema.Schema["properties"].(map[string]any)
	grade := props["grade"].(map[string]any)
	assert.Equal(t, []string{"good", "normal", "bad"}, grade["enum"])
}

func TestDecodeStructured(t *testing.T) {
	var v struct {
		Grade string `json:"grade"`
	}
	require.NoError(t, DecodeStructured("```json\n{\"grade\":\"good\"}\n```", &v))
	assert.Equal(t, "good", v.Grade)
	assert.Error(t, DecodeStructured("good", &v))
}

func TestMessageClone(t *testing.T) {
	orig := Message{Role: RoleAssistant, ToolCalls: []ToolCall{{
		ID: "1", Function: FunctionDefinitionParam{Name: "read_file", Arguments: []byte(`{}`)},
	}}}
	c := orig.Clone()
	c.ToolCalls[0].Function.Arguments[0] = '['
	assert.Equal(t, byte('{'), orig.ToolCalls[0].Function.Arguments[0])
	assert.True(t, RoleTool.IsValid())
	assert.False(t, Role("robot").IsValid())
}
