//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package contextagent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

func TestMergeMessages(t *testing.T) {
	q := model.NewUserMessage("question")
	a := model.NewAssistantMessage("answer")
	withCall := model.NewAssistantMessage("")
	withCall.ToolCalls = []model.ToolCall{toolCall("c1", "read_file", `{"file_path":"a"}`)}
	result := model.NewToolMessage("c1", "read_file", `{"success":true}`)
	next := model.NewUserMessage("next question")
	plan := model.NewAssistantMessage("plan")

	tests := []struct {
		name     string
		history  [][]model.Message
		inFlight []model.Message
		want     []model.Message
	}{
		{
			name:     "no history keeps repeats",
			inFlight: []model.Message{q, plan, a, plan},
			want:     []model.Message{q, plan, a, plan},
		},
		{
			name:     "repeated tool call and result survive",
			inFlight: []model.Message{q, withCall, result, withCall, result},
			want:     []model.Message{q, withCall, result, withCall, result},
		},
		{
			name:     "snapshots of the in-flight run are dropped",
			history:  [][]model.Message{{q}, {q, plan}},
			inFlight: []model.Message{q, plan, a, plan},
			want:     []model.Message{q, plan, a, plan},
		},
		{
			name:     "earlier run keeps only its last snapshot",
			history:  [][]model.Message{{q}, {q, plan}, {q, plan, a}, {next}},
			inFlight: []model.Message{next, plan},
			want:     []model.Message{q, plan, a, next, plan},
		},
		{
			name:     "same question asked twice is two runs",
			history:  [][]model.Message{{q}, {q, a}, {q}},
			inFlight: []model.Message{q, a},
			want:     []model.Message{q, a, q, a},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeMessages(tt.history, tt.inFlight))
		})
	}
	assert.Nil(t, mergeMessages(nil, nil))
}

func TestMergeMessages_Copies(t *testing.T) {
	call := model.NewAssistantMessage("")
	call.ToolCalls = []model.ToolCall{toolCall("c1", "read_file", `{"file_path":"a"}`)}
	inFlight := []model.Message{call}
	merged := mergeMessages(nil, inFlight)
	merged[0].ToolCalls[0].Function.Arguments[0] = '['
	assert.Equal(t, byte('{'), inFlight[0].ToolCalls[0].Function.Arguments[0])
}

func TestMessageFingerprint(t *testing.T) {
	user := model.NewUserMessage("x")
	assistant := model.NewAssistantMessage("x")
	assert.NotEqual(t, messageFingerprint(user), messageFingerprint(assistant))
	assert.Equal(t, messageFingerprint(user), messageFingerprint(model.NewUserMessage("x")))

	// Field boundaries are part of the hash.
	a := model.NewToolMessage("ab", "c", "")
	b := model.NewToolMessage("a", "bc", "")
	assert.NotEqual(t, messageFingerprint(a), messageFingerprint(b))
}
