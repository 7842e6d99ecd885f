//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"errors"
	"fmt"
)

// StateGraph provides a fluent interface for building graphs.
//
// Example usage:
//
//	schema := NewStateSchema().AddField("counter", StateField{...})
//	graph, err := NewStateGraph(schema).
//	  AddNode("increment", incrementFunc).
//	  SetEntryPoint("increment").
//	  SetFinishPoint("increment").
//	  Compile()
//
// Builder errors are collected and reported by Compile, so nodes and edges
// may be added in any order.
type StateGraph struct {
	graph *Graph
	errs  []error
}

// NewStateGraph creates a new graph builder with the given state schema.
func NewStateGraph(schema *StateSchema) *StateGraph {
	return &StateGraph{
		graph: newGraph(schema),
	}
}

// Option is a function that configures a Node.
type Option func(*Node)

// WithName sets the name of the node.
func WithName(name string) Option {
	return func(node *Node) {
		node.Name = name
	}
}

// WithDescription sets the description of the node.
func WithDescription(description string) Option {
	return func(node *Node) {
		node.Description = description
	}
}

// ConditionalOption configures a conditional edge.
type ConditionalOption func(*ConditionalEdge)

// WithLabels declares every label the routing function can return. Compile
// fails when one of them is missing from the path map.
func WithLabels(labels ...string) ConditionalOption {
	return func(e *ConditionalEdge) {
		e.Labels = append(e.Labels, labels...)
	}
}

func (sg *StateGraph) fail(format string, args ...any) {
	sg.errs = append(sg.errs, fmt.Errorf(format, args...))
}

// AddNode adds a node with the given ID and function.
// The name and description of the node can be set with the options.
func (sg *StateGraph) AddNode(id string, function NodeFunc, opts ...Option) *StateGraph {
	switch {
	case id == "":
		sg.fail("node ID cannot be empty")
		return sg
	case id == Start || id == End:
		sg.fail("node ID %s is reserved", id)
		return sg
	case function == nil:
		sg.fail("node %s has no function", id)
		return sg
	}
	if _, exists := sg.graph.nodes[id]; exists {
		sg.fail("node with ID %s already exists", id)
		return sg
	}
	node := &Node{
		ID:       id,
		Name:     id,
		Function: function,
	}
	for _, opt := range opts {
		opt(node)
	}
	sg.graph.nodes[id] = node
	return sg
}

// AddEdge adds a normal edge between two nodes. An edge from Start sets the
// entry point.
func (sg *StateGraph) AddEdge(from, to string) *StateGraph {
	if from == "" || to == "" {
		sg.fail("edge from and to cannot be empty")
		return sg
	}
	if from == Start {
		return sg.SetEntryPoint(to)
	}
	if from == End {
		sg.fail("edge cannot leave %s", End)
		return sg
	}
	if _, exists := sg.graph.edges[from]; exists {
		sg.fail("node %s already has an outgoing edge", from)
		return sg
	}
	sg.graph.edges[from] = &Edge{From: from, To: to}
	return sg
}

// AddConditionalEdges adds conditional routing from a node.
func (sg *StateGraph) AddConditionalEdges(
	from string,
	condition ConditionalFunc,
	pathMap map[string]string,
	opts ...ConditionalOption,
) *StateGraph {
	if from == "" || from == Start || from == End {
		sg.fail("invalid conditional edge source %q", from)
		return sg
	}
	if _, exists := sg.graph.conditionalEdges[from]; exists {
		sg.fail("node %s already has a conditional edge", from)
		return sg
	}
	copied := make(map[string]string, len(pathMap))
	for k, v := range pathMap {
		copied[k] = v
	}
	condEdge := &ConditionalEdge{
		From:      from,
		Condition: condition,
		PathMap:   copied,
	}
	for _, opt := range opts {
		opt(condEdge)
	}
	sg.graph.conditionalEdges[from] = condEdge
	return sg
}

// SetEntryPoint sets the entry point of the graph.
// This is equivalent to AddEdge(Start, nodeID).
func (sg *StateGraph) SetEntryPoint(nodeID string) *StateGraph {
	if sg.graph.entryPoint != "" && sg.graph.entryPoint != nodeID {
		sg.fail("entry point already set to %s", sg.graph.entryPoint)
		return sg
	}
	sg.graph.entryPoint = nodeID
	return sg
}

// SetFinishPoint adds an edge from the node to End.
// This is equivalent to AddEdge(nodeID, End).
func (sg *StateGraph) SetFinishPoint(nodeID string) *StateGraph {
	return sg.AddEdge(nodeID, End)
}

// Compile validates the graph and returns it for execution.
func (sg *StateGraph) Compile() (*Graph, error) {
	if len(sg.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGraph, errors.Join(sg.errs...))
	}
	if err := sg.graph.validate(); err != nil {
		return nil, err
	}
	return sg.graph, nil
}

// MustCompile compiles the graph or panics if invalid.
func (sg *StateGraph) MustCompile() *Graph {
	graph, err := sg.Compile()
	if err != nil {
		panic(err)
	}
	return graph
}
