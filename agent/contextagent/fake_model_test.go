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
	"context"
	"encoding/json"
	"errors"
	"sync"

	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

// scriptedModel answers requests from a fixed script and records them.
type scriptedModel struct {
	name string

	mu       sync.Mutex
	script   []scriptStep
	requests []*model.Request
}

type scriptStep struct {
	msg model.Message
	err error
	// apiErr is delivered inside the response instead of as a call error.
	apiErr *model.ResponseError
}

func newScriptedModel(name string, steps ...scriptStep) *scriptedModel {
	return &scriptedModel{name: name, script: steps}
}

func (m *scriptedModel) GenerateContent(_ context.Context, req *model.Request) (<-chan *model.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		return nil, errors.New(m.name + ": script exhausted")
	}
	step := m.script[0]
	m.script = m.script[1:]
	if step.err != nil {
		return nil, step.err
	}
	ch := make(chan *model.Response, 1)
	if step.apiErr != nil {
		ch <- &model.Response{Error: step.apiErr, Done: true}
	} else {
		ch <- &model.Response{
			Object:  model.ObjectTypeChatCompletion,
			Model:   m.name,
			Choices: []model.Choice{{Message: step.msg}},
			Done:    true,
		}
	}
	close(ch)
	return ch, nil
}

func (m *scriptedModel) Info() model.Info {
	return model.Info{Name: m.name}
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *scriptedModel) request(i int) *model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

func say(content string) scriptStep {
	return scriptStep{msg: model.NewAssistantMessage(content)}
}

func planStep(next, plan string) scriptStep {
	b, _ := json.Marshal(plannerDecision{Next: next, Plan: plan})
	return say(string(b))
}

func gradeStep(grade Verdict) scriptStep {
	b, _ := json.Marshal(evaluation{Grade: string(grade)})
	return say(string(b))
}

func callStep(calls ...model.ToolCall) scriptStep {
	msg := model.NewAssistantMessage("")
	msg.ToolCalls = calls
	return scriptStep{msg: msg}
}

func toolCall(id, name, args string) model.ToolCall {
	return model.ToolCall{
		ID:   id,
		Type: "function",
		Function: model.FunctionDefinitionParam{
			Name:      name,
			Arguments: []byte(args),
		},
	}
}

func failStep(err error) scriptStep {
	return scriptStep{err: err}
}
