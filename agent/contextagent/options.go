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
	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool"
)

// Defaults.
const (
	DefaultName          = "context-agent"
	DefaultMaxReplans    = 3
	DefaultMaxToolRounds = 5
	defaultTemperature   = 0.1

	defaultPlannerInstruction   = "Generate a plan for the task. Choose \"runner\" to work on it with tools, or \"history\" to condense the conversation so far."
	defaultRunnerInstruction    = "You can get the file content by the bound tools."
	defaultEvaluatorInstruction = "You should evaluate the response of the question."
)

// Option configures an Agent.
type Option func(*Options)

// Options contains configuration options for creating an Agent.
type Options struct {
	Name        string
	Description string

	// Per-node models. Unset ones use the model passed to New.
	PlannerModel   model.Model
	RunnerModel    model.Model
	EvaluatorModel model.Model
	OptimizerModel model.Model

	// Tools is the immutable registry the runner may call.
	Tools *tool.Registry
	// CheckpointSaver stores thread history. A private in-memory saver is
	// used when unset.
	CheckpointSaver graph.CheckpointSaver
	// NodeCallbacks run around every node.
	NodeCallbacks *graph.NodeCallbacks

	// MaxReplans is the number of planner iterations after which a bad
	// verdict ends the run with give_up.
	MaxReplans int
	// MaxToolRounds caps model/tool round trips inside the runner.
	MaxToolRounds int
	// MaxSteps is the executor's step guard.
	MaxSteps int
	// MaxToolOutputBytes truncates tool results; 0 keeps the dispatcher
	// default and a negative value disables truncation.
	MaxToolOutputBytes int
	// Temperature is sent with every model request.
	Temperature float64

	PlannerInstruction   string
	RunnerInstruction    string
	EvaluatorInstruction string
}

// WithName sets the agent name.
func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithDescription sets the agent description.
func WithDescription(description string) Option {
	return func(o *Options) { o.Description = description }
}

// WithPlannerModel overrides the planner's model.
func WithPlannerModel(m model.Model) Option {
	return func(o *Options) { o.PlannerModel = m }
}

// WithRunnerModel overrides the runner's model.
func WithRunnerModel(m model.Model) Option {
	return func(o *Options) { o.RunnerModel = m }
}

// WithEvaluatorModel overrides the evaluator's model.
func WithEvaluatorModel(m model.Model) Option {
	return func(o *Options) { o.EvaluatorModel = m }
}

// WithOptimizerModel overrides the message optimizer's model.
func WithOptimizerModel(m model.Model) Option {
	return func(o *Options) { o.OptimizerModel = m }
}

// WithTools sets the tool registry.
func WithTools(r *tool.Registry) Option {
	return func(o *Options) { o.Tools = r }
}

// WithCheckpointSaver injects the checkpoint store.
func WithCheckpointSaver(s graph.CheckpointSaver) Option {
	return func(o *Options) { o.CheckpointSaver = s }
}

// WithNodeCallbacks sets graph node callbacks.
func WithNodeCallbacks(cb *graph.NodeCallbacks) Option {
	return func(o *Options) { o.NodeCallbacks = cb }
}

// WithMaxReplans sets the replan limit.
func WithMaxReplans(n int) Option {
	return func(o *Options) { o.MaxReplans = n }
}

// WithMaxToolRounds sets the runner's tool round limit.
func WithMaxToolRounds(n int) Option {
	return func(o *Options) { o.MaxToolRounds = n }
}

// WithMaxSteps sets the executor step guard.
func WithMaxSteps(n int) Option {
	return func(o *Options) { o.MaxSteps = n }
}

// WithMaxToolOutputBytes sets the tool output truncation limit.
func WithMaxToolOutputBytes(n int) Option {
	return func(o *Options) { o.MaxToolOutputBytes = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = t }
}

// WithPlannerInstruction replaces the planner's system instruction.
func WithPlannerInstruction(s string) Option {
	return func(o *Options) { o.PlannerInstruction = s }
}

// WithRunnerInstruction replaces the runner's system instruction.
func WithRunnerInstruction(s string) Option {
	return func(o *Options) { o.RunnerInstruction = s }
}

// WithEvaluatorInstruction replaces the evaluator's system instruction.
func WithEvaluatorInstruction(s string) Option {
	return func(o *Options) { o.EvaluatorInstruction = s }
}

func defaultOptions() Options {
	return Options{
		Name:                 DefaultName,
		MaxReplans:           DefaultMaxReplans,
		MaxToolRounds:        DefaultMaxToolRounds,
		Temperature:          defaultTemperature,
		PlannerInstruction:   defaultPlannerInstruction,
		RunnerInstruction:    defaultRunnerInstruction,
		EvaluatorInstruction: defaultEvaluatorInstruction,
	}
}
