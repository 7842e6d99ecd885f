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
	"strings"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/log"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

var evaluatorOutput = model.NewEnumOutput("evaluation", "Decide if the llm result is ok or not.",
	[]model.EnumField{{
		Name:        "grade",
		Description: "Decide if the llm result is ok or not.",
		Values:      []string{LabelGood, LabelNormal, LabelBad},
	}},
)

type evaluation struct {
	Grade string `json:"grade"`
}

// evaluatorNode grades the accumulated messages. It only sets the verdict.
func (a *Agent) evaluatorNode(ctx context.Context, state graph.State) (any, error) {
	msgs := make([]model.Message, 0, len(state.Messages())+1)
	msgs = append(msgs, model.NewSystemMessage(a.opts.EvaluatorInstruction))
	msgs = append(msgs, state.Messages()...)

	rsp, err := a.generate(ctx, a.evaluatorModel, a.newRequest(msgs, evaluatorOutput, false))
	if err != nil {
		return nil, err
	}
	var eval evaluation
	if err := model.DecodeStructured(rsp.Content, &eval); err != nil || eval.Grade == "" {
		eval.Grade = strings.ToLower(strings.TrimSpace(rsp.Content))
	}
	log.Debugf("evaluator: verdict %q", eval.Grade)
	return graph.State{StateKeyVerdict: Verdict(eval.Grade)}, nil
}
