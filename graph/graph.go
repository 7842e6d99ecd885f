//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package graph provides graph-based execution functionality: a state graph
// builder, a compiled immutable Graph and an Executor that runs it step by
// step with checkpoints.
package graph

import (
	"context"
	"fmt"
	"sort"
)

// Special node identifiers for graph routing.
const (
	// Start represents the virtual start node for routing.
	Start = "__start__"
	// End represents the virtual end node for routing.
	End = "__end__"
)

// NodeFunc is a function that can be executed by a node. It returns a State
// update (or nil for no update).
type NodeFunc func(ctx context.Context, state State) (any, error)

// ConditionalFunc determines the routing label from the state.
type ConditionalFunc func(ctx context.Context, state State) (string, error)

// Node represents a node in the graph.
type Node struct {
	ID          string
	Name        string
	Description string
	Function    NodeFunc
}

// Edge represents an unconditional edge in the graph.
type Edge struct {
	From string
	To   string
}

// ConditionalEdge represents a conditional edge with routing logic.
type ConditionalEdge struct {
	From      string
	Condition ConditionalFunc
	// PathMap maps a routing label to the target node.
	PathMap map[string]string
	// Labels is the complete set of labels Condition may return, if declared.
	Labels []string
}

// Graph represents a directed graph of nodes and edges.
// It is produced by StateGraph.Compile and never changes afterwards.
type Graph struct {
	schema           *StateSchema
	nodes            map[string]*Node
	edges            map[string]*Edge
	conditionalEdges map[string]*ConditionalEdge
	entryPoint       string
}

func newGraph(schema *StateSchema) *Graph {
	if schema == nil {
		schema = NewStateSchema()
	}
	return &Graph{
		schema:           schema,
		nodes:            make(map[string]*Node),
		edges:            make(map[string]*Edge),
		conditionalEdges: make(map[string]*ConditionalEdge),
	}
}

// Node returns a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// NodeIDs returns the sorted IDs of all nodes.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edge returns the unconditional outgoing edge of a node.
func (g *Graph) Edge(nodeID string) (*Edge, bool) {
	edge, exists := g.edges[nodeID]
	return edge, exists
}

// ConditionalEdge returns the conditional edge from a node.
func (g *Graph) ConditionalEdge(nodeID string) (*ConditionalEdge, bool) {
	edge, exists := g.conditionalEdges[nodeID]
	return edge, exists
}

// EntryPoint returns the entry point node ID.
func (g *Graph) EntryPoint() string {
	return g.entryPoint
}

// Schema returns the state schema.
func (g *Graph) Schema() *StateSchema {
	return g.schema
}

// next resolves the node that follows from. A label missing from the path
// map is a *RoutingError.
func (g *Graph) next(ctx context.Context, from string, state State) (string, error) {
	if from == Start {
		return g.entryPoint, nil
	}
	if cond, ok := g.conditionalEdges[from]; ok {
		label, err := cond.Condition(ctx, state)
		if err != nil {
			return "", fmt.Errorf("conditional edge from %s: %w", from, err)
		}
		to, ok := cond.PathMap[label]
		if !ok {
			return "", &RoutingError{From: from, Label: label}
		}
		return to, nil
	}
	if edge, ok := g.edges[from]; ok {
		return edge.To, nil
	}
	return "", fmt.Errorf("%w: node %s has no outgoing route", ErrInvalidGraph, from)
}

// validate checks the structure: entry point, targets, declared labels and
// exactly one route per node.
func (g *Graph) validate() error {
	if g.entryPoint == "" {
		return fmt.Errorf("%w: graph must have an entry point", ErrInvalidGraph)
	}
	if _, exists := g.nodes[g.entryPoint]; !exists {
		return fmt.Errorf("%w: entry point node %s does not exist", ErrInvalidGraph, g.entryPoint)
	}
	for from, edge := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: source node %s does not exist", ErrInvalidGraph, from)
		}
		if !g.isTarget(edge.To) {
			return fmt.Errorf("%w: target node %s does not exist", ErrInvalidGraph, edge.To)
		}
	}
	for from, cond := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: source node %s does not exist", ErrInvalidGraph, from)
		}
		if cond.Condition == nil {
			return fmt.Errorf("%w: conditional edge from %s has no condition", ErrInvalidGraph, from)
		}
		if len(cond.PathMap) == 0 {
			return fmt.Errorf("%w: conditional edge from %s has an empty path map", ErrInvalidGraph, from)
		}
		for label, to := range cond.PathMap {
			if !g.isTarget(to) {
				return fmt.Errorf("%w: label %q from %s targets unknown node %s",
					ErrInvalidGraph, label, from, to)
			}
		}
		for _, label := range cond.Labels {
			if _, ok := cond.PathMap[label]; !ok {
				return fmt.Errorf("%w: %w: node %s declares label %q",
					ErrInvalidGraph, ErrUnmappedLabel, from, label)
			}
		}
	}
	for _, id := range g.NodeIDs() {
		_, hasEdge := g.edges[id]
		_, hasCond := g.conditionalEdges[id]
		switch {
		case hasEdge && hasCond:
			return fmt.Errorf("%w: node %s has both an edge and a conditional edge", ErrInvalidGraph, id)
		case !hasEdge && !hasCond:
			return fmt.Errorf("%w: node %s has no outgoing route", ErrInvalidGraph, id)
		}
	}
	return nil
}

func (g *Graph) isTarget(id string) bool {
	if id == End {
		return true
	}
	_, ok := g.nodes[id]
	return ok
}
