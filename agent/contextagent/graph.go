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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	itelemetry "trpc.group/trpc-go/trpc-ctxagent-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/trace"
)

// buildGraph wires the nodes:
//
//	planner --runner--> runner ------------------------> evaluator
//	        --history-> history_merge -> message_optimizer -^
//	evaluator --good|normal|give_up--> End, --bad--> planner
func (a *Agent) buildGraph() (*graph.Graph, error) {
	return graph.NewStateGraph(NewStateSchema()).
		AddNode(NodePlanner, a.plannerNode,
			graph.WithName("Planner"),
			graph.WithDescription("Plans the task and picks the next branch")).
		AddNode(NodeRunner, a.runnerNode,
			graph.WithName("Runner"),
			graph.WithDescription("Works on the task with tools")).
		AddNode(NodeHistoryMerge, a.historyMergeNode,
			graph.WithName("History merge"),
			graph.WithDescription("Merges checkpoint history into the context")).
		AddNode(NodeOptimizer, a.optimizerNode,
			graph.WithName("Message optimizer"),
			graph.WithDescription("Condenses the merged context")).
		AddNode(NodeEvaluator, a.evaluatorNode,
			graph.WithName("Evaluator"),
			graph.WithDescription("Grades the result")).
		SetEntryPoint(NodePlanner).
		AddConditionalEdges(NodePlanner, routeFromPlanner, map[string]string{
			LabelRunner:  NodeRunner,
			LabelHistory: NodeHistoryMerge,
		}, graph.WithLabels(LabelRunner, LabelHistory)).
		AddEdge(NodeRunner, NodeEvaluator).
		AddEdge(NodeHistoryMerge, NodeOptimizer).
		AddEdge(NodeOptimizer, NodeEvaluator).
		AddConditionalEdges(NodeEvaluator, routeFromEvaluator(a.opts.MaxReplans), map[string]string{
			LabelGood:   graph.End,
			LabelNormal: graph.End,
			LabelBad:    NodePlanner,
			LabelGiveUp: graph.End,
		}, graph.WithLabels(LabelGood, LabelNormal, LabelBad, LabelGiveUp)).
		Compile()
}

func (a *Agent) newRequest(msgs []model.Message, output *model.StructuredOutput, withTools bool) *model.Request {
	temperature := a.opts.Temperature
	req := &model.Request{
		Messages:         msgs,
		StructuredOutput: output,
		GenerationConfig: model.GenerationConfig{
			Temperature: &temperature,
		},
	}
	if withTools && a.opts.Tools.Len() > 0 {
		req.Tools = a.opts.Tools.Tools()
	}
	return req
}

// generate calls m inside a chat span and returns its final message.
func (a *Agent) generate(ctx context.Context, m model.Model, req *model.Request) (*model.Message, error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewChatSpanName(m.Info().Name))
	defer span.End()
	span.SetAttributes(attribute.String(itelemetry.KeyModelName, m.Info().Name))
	msg, err := model.Generate(ctx, m, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return msg, nil
}
