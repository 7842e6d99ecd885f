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
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

// optimizerNode runs the model on the merged context with no system
// instruction and appends its single answer.
func (a *Agent) optimizerNode(ctx context.Context, state graph.State) (any, error) {
	msgs := stateMergedContext(state)
	if len(msgs) == 0 {
		msgs = state.Messages()
	}
	rsp, err := a.generate(ctx, a.optimizerModel, a.newRequest(msgs, nil, false))
	if err != nil {
		return nil, err
	}
	return graph.State{StateKeyMessages: model.NewAssistantMessage(rsp.Content)}, nil
}
