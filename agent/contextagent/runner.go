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

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/log"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

// runnerNode works on the task with tools. Every model response is followed
// by the results of its tool calls, in call order, and the model sees them
// on the next round.
func (a *Agent) runnerNode(ctx context.Context, state graph.State) (any, error) {
	msgs := make([]model.Message, 0, len(state.Messages())+1)
	msgs = append(msgs, model.NewSystemMessage(a.opts.RunnerInstruction))
	msgs = append(msgs, state.Messages()...)

	var produced []model.Message
	for round := 0; ; round++ {
		rsp, err := a.generate(ctx, a.runnerModel, a.newRequest(msgs, nil, true))
		if err != nil {
			return nil, err
		}
		produced = append(produced, *rsp)
		if len(rsp.ToolCalls) == 0 {
			break
		}
		results := a.dispatcher.Dispatch(ctx, rsp.ToolCalls)
		produced = append(produced, results...)
		if round+1 >= a.opts.MaxToolRounds {
			log.Warnf("runner: stopping after %d tool rounds", round+1)
			break
		}
		msgs = append(msgs, *rsp)
		msgs = append(msgs, results...)
	}
	return graph.State{StateKeyMessages: produced}, nil
}
