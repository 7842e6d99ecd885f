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
)

// routeFromPlanner returns the planner's typed route. Anything but runner or
// history fails the run in the engine.
func routeFromPlanner(_ context.Context, state graph.State) (string, error) {
	return string(stateRoute(state)), nil
}

// routeFromEvaluator maps the verdict to a label of the same name. A bad
// verdict becomes give_up once the planner ran maxReplans times.
func routeFromEvaluator(maxReplans int) graph.ConditionalFunc {
	return func(_ context.Context, state graph.State) (string, error) {
		verdict := stateVerdict(state)
		if verdict == VerdictBad && stateReplans(state) >= maxReplans {
			return LabelGiveUp, nil
		}
		return string(verdict), nil
	}
}
