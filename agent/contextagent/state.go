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
	"reflect"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

// State keys.
const (
	StateKeyThreadID      = "thread_id"
	StateKeyTask          = "task"
	StateKeyVerdict       = "verdict"
	StateKeyMessages      = graph.StateKeyMessages
	StateKeyReplans       = "replans"
	StateKeyRoute         = "route"
	StateKeyMergedContext = "merged_context"
)

// Node IDs.
const (
	NodePlanner      = "planner"
	NodeRunner       = "runner"
	NodeHistoryMerge = "history_merge"
	NodeOptimizer    = "message_optimizer"
	NodeEvaluator    = "evaluator"
)

// Verdict is the evaluator's grade of the latest result.
type Verdict string

// Verdicts.
const (
	VerdictUnset  Verdict = ""
	VerdictGood   Verdict = "good"
	VerdictNormal Verdict = "normal"
	VerdictBad    Verdict = "bad"
)

// Route is the planner's decision about which branch runs next.
type Route string

// Routes.
const (
	RouteRunner  Route = "runner"
	RouteHistory Route = "history"
)

// Routing labels.
const (
	LabelRunner  = string(RouteRunner)
	LabelHistory = string(RouteHistory)
	LabelGood    = string(VerdictGood)
	LabelNormal  = string(VerdictNormal)
	LabelBad     = string(VerdictBad)
	LabelGiveUp  = "give_up"
)

// NewStateSchema returns the schema of the agent's thread state.
func NewStateSchema() *graph.StateSchema {
	return graph.MessagesStateSchema().
		AddField(StateKeyThreadID, graph.StateField{
			Type:    reflect.TypeOf(""),
			Default: func() any { return "" },
		}).
		AddField(StateKeyTask, graph.StateField{
			Type:     reflect.TypeOf(""),
			Required: true,
		}).
		AddField(StateKeyVerdict, graph.StateField{
			Type:    reflect.TypeOf(VerdictUnset),
			Default: func() any { return VerdictUnset },
		}).
		AddField(StateKeyReplans, graph.StateField{
			Type:    reflect.TypeOf(0),
			Default: func() any { return 0 },
		}).
		AddField(StateKeyRoute, graph.StateField{
			Type:    reflect.TypeOf(Route("")),
			Default: func() any { return Route("") },
		}).
		AddField(StateKeyMergedContext, graph.StateField{
			Type:    reflect.TypeOf([]model.Message{}),
			Default: func() any { return []model.Message{} },
		})
}

func stateString(s graph.State, key string) string {
	v, _ := s[key].(string)
	return v
}

func stateVerdict(s graph.State) Verdict {
	v, _ := s[StateKeyVerdict].(Verdict)
	return v
}

func stateRoute(s graph.State) Route {
	r, _ := s[StateKeyRoute].(Route)
	return r
}

func stateReplans(s graph.State) int {
	n, _ := s[StateKeyReplans].(int)
	return n
}

func stateMergedContext(s graph.State) []model.Message {
	msgs, _ := s[StateKeyMergedContext].([]model.Message)
	return msgs
}
