//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package function_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-ctxagent-go/tool"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool/function"
)

type sumInput struct {
	A int `json:"a" jsonschema:"description=First integer operand"`
	B int `json:"b" jsonschema:"description=Second integer operand"`
}

type sumOutput struct {
	Result int `json:"result"`
}

func newSumTool() *function.FunctionTool[sumInput, sumOutput] {
	return function.NewFunctionTool(
		func(_ context.Context, in sumInput) (sumOutput, error) {
			if in.A < 0 {
				return sumOutput{}, errors.New("negative operand")
			}
			return sumOutput{Result: in.A + in.B}, nil
		},
		function.WithName("sum"),
		function.WithDescription("Calculates the sum of two integers."),
	)
}

func TestFunctionTool_Call(t *testing.T) {
	st := newSumTool()
	var _ tool.CallableTool = st

	got, err := st.Call(context.Background(), []byte(`{"a":2,"b":3}`))
	require.NoError(t, err)
	assert.Equal(t, sumOutput{Result: 5}, got)

	_, err = st.Call(context.Background(), []byte(`{"a":-1,"b":3}`))
	assert.EqualError(t, err, "negative operand")

	_, err = st.Call(context.Background(), []byte(`{"a":`))
	assert.ErrorContains(t, err, "sum: unmarshal arguments")

	got, err = st.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, sumOutput{}, got)
}

func TestFunctionTool_Declaration(t *testing.T) {
	decl := newSumTool().Declaration()
	assert.Equal(t, "sum", decl.Name)
	assert.Equal(t, "Calculates the sum of two integers.", decl.Description)
	require.NotNil(t, decl.InputSchema)
	assert.Equal(t, []string{"a", "b"}, decl.InputSchema.Required)
	assert.Equal(t, "First integer operand", decl.InputSchema.Properties["a"].Description)
	assert.Contains(t, decl.OutputSchema.Properties, "result")
}
