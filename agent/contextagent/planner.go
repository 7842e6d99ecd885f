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
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/log"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

var plannerOutput = model.NewEnumOutput("plan", "The next step and the plan for the task.",
	[]model.EnumField{{
		Name:        "next",
		Description: "The branch that should run next.",
		Values:      []string{LabelRunner, LabelHistory},
	}},
	model.TextField{Name: "plan", Description: "A short plan for the task."},
)

type plannerDecision struct {
	Next string `json:"next"`
	Plan string `json:"plan"`
}

// plannerNode asks the model for a plan and the next branch. The plan text
// goes to the message log; the branch goes to the typed route field.
func (a *Agent) plannerNode(ctx context.Context, state graph.State) (any, error) {
	task := stateString(state, StateKeyTask)
	replans := stateReplans(state)

	msgs := make([]model.Message, 0, len(state.Messages())+2)
	msgs = append(msgs, model.NewSystemMessage(a.opts.PlannerInstruction))
	msgs = append(msgs, state.Messages()...)
	prompt := fmt.Sprintf("Here is the task: %s", task)
	if replans > 0 {
		prompt += "\nThe previous attempt was judged inadequate. Plan again."
	}
	msgs = append(msgs, model.NewUserMessage(prompt))

	rsp, err := a.generate(ctx, a.plannerModel, a.newRequest(msgs, plannerOutput, false))
	if err != nil {
		return nil, err
	}

	var decision plannerDecision
	content := strings.TrimSpace(rsp.Content)
	if err := model.DecodeStructured(content, &decision); err != nil || decision.Next == "" {
		// The model ignored the schema; use its answer as the label.
		decision = plannerDecision{Next: content, Plan: content}
	}
	plan := decision.Plan
	if plan == "" {
		plan = content
	}
	log.Debugf("planner: route %q after %d replans", decision.Next, replans)
	return graph.State{
		StateKeyMessages: model.NewAssistantMessage(plan),
		StateKeyRoute:    Route(strings.TrimSpace(decision.Next)),
		StateKeyReplans:  replans + 1,
	}, nil
}
